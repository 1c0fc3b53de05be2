package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Carrier      CarrierConfig      `mapstructure:"carrier"`
	Storage      StorageConfig      `mapstructure:"storage"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// PublicBaseURL is the externally reachable base URL used to build
	// the webhook callback URLs registered with each purchased number.
	PublicBaseURL string        `mapstructure:"public_base_url"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type CarrierConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	BaseURL    string `mapstructure:"base_url"`
	// BundleSID identifies the regulatory bundle required by some
	// countries before a local number purchase is accepted.
	BundleSID string        `mapstructure:"bundle_sid"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Root string `mapstructure:"root"`
	// PublicBaseURL is prepended to stored object keys to form the
	// audio URL saved on messages.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SchedulerConfig struct {
	// SharedSecret authenticates the external scheduler's cron calls.
	SharedSecret string        `mapstructure:"shared_secret"`
	Interval     time.Duration `mapstructure:"interval"`
}

type ProvisioningConfig struct {
	// PurchaseThresholdDays controls how close to the event date a
	// number is purchased.
	PurchaseThresholdDays int `mapstructure:"purchase_threshold_days"`
	// RetentionDays is how long past the event date the number stays
	// reachable before release.
	RetentionDays    int `mapstructure:"retention_days"`
	ProvisionBatch   int `mapstructure:"provision_batch"`
	ReleaseBatch     int `mapstructure:"release_batch"`
	MaxRecordSeconds int `mapstructure:"max_record_seconds"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("WRR")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("carrier.base_url", "https://api.carrier.example.com")
	viper.SetDefault("carrier.timeout", 5*time.Second)
	viper.SetDefault("scheduler.interval", 24*time.Hour)
	viper.SetDefault("provisioning.purchase_threshold_days", 7)
	viper.SetDefault("provisioning.retention_days", 37)
	viper.SetDefault("provisioning.provision_batch", 50)
	viper.SetDefault("provisioning.release_batch", 50)
	viper.SetDefault("provisioning.max_record_seconds", 240)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

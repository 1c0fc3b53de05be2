package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin/binding"
	validatorv10 "github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/weddingringring/wrr-sub001/internal/carrier"
	"github.com/weddingringring/wrr-sub001/internal/config"
	adminHandler "github.com/weddingringring/wrr-sub001/internal/handler/admin"
	cronHandler "github.com/weddingringring/wrr-sub001/internal/handler/cron"
	healthHandler "github.com/weddingringring/wrr-sub001/internal/handler/health"
	webhookHandler "github.com/weddingringring/wrr-sub001/internal/handler/webhook"
	"github.com/weddingringring/wrr-sub001/internal/notifier"
	"github.com/weddingringring/wrr-sub001/internal/repository/postgres"
	"github.com/weddingringring/wrr-sub001/internal/router"
	"github.com/weddingringring/wrr-sub001/internal/service/provisioning"
	"github.com/weddingringring/wrr-sub001/internal/service/recording"
	"github.com/weddingringring/wrr-sub001/internal/service/release"
	"github.com/weddingringring/wrr-sub001/internal/service/voice"
	"github.com/weddingringring/wrr-sub001/internal/storage"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	redisbroker "github.com/weddingringring/wrr-sub001/pkg/messaging/redis"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
	"github.com/weddingringring/wrr-sub001/pkg/throttle"
	"github.com/weddingringring/wrr-sub001/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{Level: logger.InfoLevel})

	if engine, ok := binding.Validator.Engine().(*validatorv10.Validate); ok {
		if err := validator.Register(engine); err != nil {
			log.Fatal().Err(err).Msg("failed to register request validators")
		}
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse Redis URL")
	}
	redisClient := goredis.NewClient(redisOpts)
	defer redisClient.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis broker")
	}
	defer broker.Close()

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	venueRepo := postgres.NewVenueRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	// Shared infrastructure
	m := metrics.New("wrr")
	carrierClient := carrier.NewHTTPClient(cfg.Carrier, m)
	mediaStore := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
	emailNotifier := notifier.NewEmailNotifier(cfg.SMTP)
	provisionLocker := provisioning.NewRedisLocker(redisClient)
	callerLimits := throttle.NewCounter(redisClient, "throttle:caller")

	// Services
	provisioningSvc := provisioning.NewService(
		eventRepo, venueRepo, customerRepo, carrierClient, emailNotifier,
		provisionLocker, appLogger, m,
		provisioning.Config{
			PublicBaseURL:     cfg.Server.PublicBaseURL,
			PurchaseThreshold: time.Duration(cfg.Provisioning.PurchaseThresholdDays) * 24 * time.Hour,
			Retention:         time.Duration(cfg.Provisioning.RetentionDays) * 24 * time.Hour,
			BatchSize:         cfg.Provisioning.ProvisionBatch,
		},
	)
	voiceSvc := voice.NewService(eventRepo, appLogger, m, cfg.Server.PublicBaseURL)
	recordingSvc := recording.NewService(eventRepo, messageRepo, carrierClient, mediaStore, broker, appLogger, m)
	releaseSvc := release.NewService(eventRepo, carrierClient, appLogger, m, cfg.Provisioning.ReleaseBatch)

	// Handlers
	webhookH := webhookHandler.NewHandler(voiceSvc, recordingSvc, callerLimits, appLogger)
	adminH := adminHandler.NewHandler(eventRepo, provisioningSvc, releaseSvc)
	cronH := cronHandler.NewHandler(provisioningSvc, releaseSvc)
	healthH := healthHandler.NewHandler(db)

	r := router.NewRouter(webhookH, adminH, cronH, healthH, router.Config{
		JWTSecret:       cfg.JWT.Secret,
		SchedulerSecret: cfg.Scheduler.SharedSecret,
		RateLimit:       100,
		RateBurst:       200,
		MetricsPrefix:   "wrr_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

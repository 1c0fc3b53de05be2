package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/weddingringring/wrr-sub001/internal/carrier"
	"github.com/weddingringring/wrr-sub001/internal/config"
	"github.com/weddingringring/wrr-sub001/internal/notifier"
	"github.com/weddingringring/wrr-sub001/internal/repository/postgres"
	"github.com/weddingringring/wrr-sub001/internal/service/provisioning"
	"github.com/weddingringring/wrr-sub001/internal/service/release"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
)

// The worker runs the daily scans on an in-process ticker for
// deployments without an external scheduler. The scans are idempotent,
// so running both the worker and the cron endpoints is harmless.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLogger := logger.NewLogger(&logger.Config{Level: logger.InfoLevel})

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

	eventRepo := postgres.NewEventRepository(db)
	venueRepo := postgres.NewVenueRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	m := metrics.New("wrr_worker")
	carrierClient := carrier.NewHTTPClient(cfg.Carrier, m)
	emailNotifier := notifier.NewEmailNotifier(cfg.SMTP)
	provisionLocker := provisioning.NewRedisLocker(redisClient)

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
	releaseSvc := release.NewService(eventRepo, carrierClient, appLogger, m, cfg.Provisioning.ReleaseBatch)

	setupHealthAndMetrics(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	runScans(ctx, appLogger, provisioningSvc, releaseSvc, cfg.Scheduler.Interval)
}

func runScans(ctx context.Context, appLogger *logger.Logger, provisioningSvc *provisioning.Service, releaseSvc *release.Service, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	appLogger.Info("worker started", "interval", interval.String())

	// One pass at startup so a redeploy never delays a due scan by a
	// full interval.
	scanOnce(ctx, appLogger, provisioningSvc, releaseSvc)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scanOnce(ctx, appLogger, provisioningSvc, releaseSvc)
		}
	}
}

func scanOnce(ctx context.Context, appLogger *logger.Logger, provisioningSvc *provisioning.Service, releaseSvc *release.Service) {
	now := time.Now()

	if summary, err := provisioningSvc.RunDailyScan(ctx, now); err != nil {
		appLogger.Error(err, "provisioning scan failed")
	} else {
		appLogger.Info("provisioning scan summary", "purchased", summary.Purchased, "failed", summary.Failed)
	}

	if summary, err := releaseSvc.RunDailyScan(ctx, now); err != nil {
		appLogger.Error(err, "release scan failed")
	} else {
		appLogger.Info("release scan summary", "released", summary.Released, "failed", summary.Failed)
	}
}

func setupHealthAndMetrics(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clinic/internal/api"
	"clinic/internal/cache"
	"clinic/internal/config"
	"clinic/internal/database"
	"clinic/internal/events"
	"clinic/internal/metrics"
	"clinic/internal/service"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("failed to read .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CLINIC_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	setLevel(cfg.Logging.Level)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	checks := map[string]api.Pinger{"database": db}

	var windowCache *cache.WindowCache
	if cfg.Redis.Address != "" && cfg.Availability.CacheTTLSeconds > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		windowCache = cache.NewWindowCache(rdb, cfg.CacheTTL(), &logger)
		checks["redis"] = windowCache
	}

	bus := events.NewEventBus()
	var svcCache service.WindowCache
	if windowCache != nil {
		svcCache = windowCache
		bus.Subscribe(events.TypeScheduleUpdated, windowCache.OnScheduleUpdated)
	}
	svc := service.NewScheduleService(db, svcCache, bus, service.PolicyFromConfig(cfg.Availability), &logger)

	if cfg.Seed.Path != "" {
		if err := seed(ctx, svc, cfg, &logger); err != nil {
			logger.Fatal().Err(err).Msg("seed schedules")
		}
	}

	// Reload policy on config change; listeners and storage keep their settings.
	watcher := &config.Watcher{
		Path:     configPath,
		Interval: 30 * time.Second,
		Logger:   &logger,
		OnChange: func(updated *config.Config) {
			svc.SetPolicy(service.PolicyFromConfig(updated.Availability))
			setLevel(updated.Logging.Level)
		},
	}
	if err := watcher.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("config watch disabled")
	}

	backups := database.NewBackupService(db, cfg.Backup, &logger)
	go backups.Start(ctx)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(api.ServerConfig{
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, svc, checks, &logger)

	logger.Info().Int("port", cfg.Server.Port).Msg("clinic availability service started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("shutdown complete")
}

func seed(ctx context.Context, svc *service.ScheduleService, cfg *config.Config, logger *zerolog.Logger) error {
	actor, err := uuid.Parse(cfg.Seed.ActorID)
	if err != nil {
		return fmt.Errorf("seed.actor_id: %w", err)
	}
	file, err := config.LoadSeed(cfg.Seed.Path)
	if err != nil {
		return err
	}
	n, err := svc.SeedMissing(ctx, file, actor)
	if err != nil {
		return err
	}
	logger.Info().Int("stored", n).Int("total", len(file.Professionals)).Msg("seed schedules applied")
	return nil
}

func setLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/cache"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/events"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/notify"
	"shareit/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg); err != nil {
		logger.Error().Err(err).Msg("prepare directories")
		return err
	}

	db, err := database.New(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("database init")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer cache.Close(redisClient)
	}

	eventBus := events.NewEventBus()
	if cfg.Notify.Enabled && redisClient != nil {
		notifier := notify.NewNotifier(redisClient, cfg.Notify, logger)
		notifier.BindTo(eventBus)
		go notifier.Run(ctx)
	}

	userService := service.NewUsers(db, logger)

	itemOpts := []service.ItemsOption{service.WithItemsEvents(eventBus)}
	if redisClient != nil {
		ttl := time.Duration(cfg.Redis.CacheTTL) * time.Second
		itemOpts = append(itemOpts, service.WithItemsCache(cache.NewItemDetailsCache(redisClient, ttl)))
	}
	itemService := service.NewItems(db, db, db, db, logger, itemOpts...)

	bookingService := service.NewBookings(db, db, db, logger,
		service.WithBookingsEvents(eventBus),
		service.WithOverlapCheck(cfg.OverlapCheckEnabled()))

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg, logger)
	}

	server := api.NewServer(cfg, userService, itemService, bookingService, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config) error {
	if cfg.Database.Path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755)
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := cache.NewRedisClient(cfg.Redis)
	if err := cache.Ping(ctx, client); err != nil {
		// Redis is an accelerator here; the sqlite store stays authoritative
		logger.Warn().Err(err).Msg("Redis unavailable, cache and notifications disabled")
		_ = client.Close()
		return nil
	}
	return client
}

func startMetricsServer(cfg *config.Config, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	logger.Info().Str("addr", addr).Msg("metrics listening")
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

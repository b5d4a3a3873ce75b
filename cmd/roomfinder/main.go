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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomfinder/internal/api"
	"roomfinder/internal/availability"
	"roomfinder/internal/cache"
	"roomfinder/internal/config"
	"roomfinder/internal/db"
	"roomfinder/internal/events"
	"roomfinder/internal/metrics"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("ROOMFINDER_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Log.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		logger = logger.Level(level)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	database, err := db.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	bus := events.NewBus()
	database.SetEventBus(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store availability.Store = database
	var rdb *redis.Client
	if ttl := cfg.CacheTTL(); ttl > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		cached := cache.New(database, rdb, ttl, &logger)
		cached.InvalidateOn(bus)
		store = cached
		logger.Info().Str("redis", cfg.Redis.Address).Dur("ttl", ttl).Msg("redis cache enabled")
	}

	if cfg.Seed.Path != "" {
		err := config.WatchIntervals(ctx, cfg.Seed.Path, cfg.SeedWatchInterval(), &logger, func(ic *config.IntervalsConfig) {
			syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if _, err := database.SyncIntervalsFromConfig(syncCtx, ic); err != nil {
				logger.Error().Err(err).Msg("sync intervals failed")
			}
		})
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Seed.Path).Msg("load intervals file")
		}
	}

	if cfg.Backup.Enabled {
		interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
		retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour
		go db.NewBackupService(database, cfg.Backup.Path, interval, retention, &logger).Start(ctx)
	}

	checks := []api.ReadinessCheck{{Name: "db", Check: database.PingContext}}
	if rdb != nil {
		checks = append(checks, api.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	go serve(ctx, "health", cfg.Monitoring.HealthCheckPort, api.HealthHandler(checks...), &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go serve(ctx, "metrics", cfg.Monitoring.PrometheusPort, mux, &logger)
	}

	engine := availability.NewEngine(store, cfg.QueryTimeout(), &logger)
	server := api.NewHTTPServer(engine, api.Options{
		Address:           cfg.Server.Address,
		ReadTimeout:       cfg.ReadTimeout(),
		APIKeys:           cfg.Server.APIKeys,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	}, &logger)

	logger.Info().Str("timezone", loc.String()).Msg("roomfinder started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
	logger.Info().Msg("roomfinder stopped")
}

func serve(ctx context.Context, name string, port int, handler http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}

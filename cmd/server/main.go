package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/finbook/ledger/internal/config"
	"github.com/finbook/ledger/internal/events"
	"github.com/finbook/ledger/internal/events/kafka"
	"github.com/finbook/ledger/internal/ledger"
	"github.com/finbook/ledger/internal/rates"
	"github.com/finbook/ledger/internal/server"
	"github.com/finbook/ledger/internal/storage"
	"github.com/finbook/ledger/internal/storage/memory"
	"github.com/finbook/ledger/internal/storage/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	var store storage.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("migrate schema", "error", err)
			os.Exit(1)
		}
		store = pg
		logger.Info("using postgres store")
	} else {
		store = memory.NewStore()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	rateOpts := []rates.Option{
		rates.WithURL(cfg.ExchangeAPIURL),
		rates.WithTTL(cfg.RatesTTL),
		rates.WithLogger(logger),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, rate snapshots will not persist", "error", err)
		} else {
			rateOpts = append(rateOpts, rates.WithCache(rates.NewRedisCache(rdb, cfg.RatesTTL, logger)))
			logger.Info("redis rate snapshot cache enabled")
		}
	}
	provider := rates.NewProvider(rateOpts...)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		logger.Info("kafka event publisher enabled", "brokers", cfg.KafkaBrokers)
	}

	engine := ledger.NewEngine(store, provider, publisher, logger)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(engine, provider, logger).Handler(),
	}

	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

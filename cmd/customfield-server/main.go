package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	customfields "github.com/goliatone/go-customfields"
	"github.com/goliatone/go-customfields/internal/config"
	"github.com/goliatone/go-customfields/internal/httpapi"
	"github.com/goliatone/go-customfields/internal/logging"
	"github.com/goliatone/go-customfields/pkg/cache"
	"github.com/goliatone/go-customfields/pkg/store/postgres"
)

const serviceName = "customfield-server"

func main() {
	cfg, err := config.Load(config.Source{EnvFile: ".env", Args: os.Args[1:]})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	options := []customfields.Option{
		customfields.WithLogger(logger),
		customfields.WithPagination(cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit),
		customfields.WithCacheTTL(cfg.Cache.TTL),
	}

	var db *sql.DB
	if cfg.Store.Driver == config.StorePostgres {
		var err error
		db, err = postgres.Open(ctx, postgres.Options{
			DSN:          cfg.Store.DSN,
			MaxOpenConns: cfg.Store.MaxOpenConns,
			MaxIdleConns: cfg.Store.MaxIdleConns,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		options = append(options, customfields.WithPostgres(db))
	}

	var redisClient *redis.Client
	switch cfg.Cache.Driver {
	case config.CacheNone:
		options = append(options, customfields.WithoutCache())
	case config.CacheRedis:
		redisClient = cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer redisClient.Close()
		if err := cache.NewRedisKV(redisClient).Ping(ctx); err != nil {
			return err
		}
		options = append(options, customfields.WithRedisCache(redisClient))
	}

	engine := customfields.New(options...)
	api, err := httpapi.New(engine.Registry, engine.Values,
		httpapi.WithLogger(logger),
		httpapi.WithBuilder(engine.Builder),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("cache", cfg.Cache.Driver),
		)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// Package main is the entry point for the catalog admin server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tanhuynh200412/catalog-admin/internal/auth"
	"github.com/tanhuynh200412/catalog-admin/internal/catalog"
	"github.com/tanhuynh200412/catalog-admin/internal/config"
	"github.com/tanhuynh200412/catalog-admin/internal/server"
	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("category_namespace", cfg.CategoryNamespace),
		zap.String("item_namespace", cfg.ItemNamespace),
	)

	authenticator, err := createAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}

	recordStore, closeStore, err := createStore(cfg, logger)
	if err != nil {
		logger.Error("failed to create store", zap.Error(err))
		return 1
	}
	defer closeStore()

	cat := catalog.New(recordStore, catalog.Options{
		CategoryNamespace: cfg.CategoryNamespace,
		ItemNamespace:     cfg.ItemNamespace,
	}, logger)

	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()

	syncErrors := make(chan error, 1)
	go func() {
		syncErrors <- cat.Run(syncCtx)
	}()

	srv := server.New(cfg, logger, cat, authenticator)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case err := <-syncErrors:
		logger.Error("live view sync stopped", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}

		stopSync()
		if err := <-syncErrors; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("live view sync failed", zap.Error(err))
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// createAuthenticator builds the authenticator for the configured auth mode.
// It returns nil when authentication is disabled.
func createAuthenticator(cfg *config.Config, logger *zap.Logger) (auth.Authenticator, error) {
	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		return nil, fmt.Errorf("auth mode %s: %w", cfg.AuthMode, err)
	}

	if authenticator == nil {
		logger.Info("authentication disabled")
	} else {
		logger.Info("authentication enabled", zap.String("method", string(authenticator.Method())))
	}
	return authenticator, nil
}

// createStore connects the configured backend. The returned func releases
// it.
func createStore(cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}

		logger.Info("using redis store",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
			zap.String("key_prefix", cfg.RedisKeyPrefix),
		)
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.Error(err))
			}
		}
		return store.NewRedisStore(client, cfg.RedisKeyPrefix, logger), closeFn, nil

	default:
		mem := store.NewMemoryStore()
		if cfg.SeedFile != "" {
			data, err := store.ReadSeedFile(cfg.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			mem.Load(data)
			logger.Info("memory store seeded",
				zap.String("file", cfg.SeedFile),
				zap.Int("namespaces", len(data)),
			)
		}
		logger.Info("using memory store")
		return mem, func() {}, nil
	}
}

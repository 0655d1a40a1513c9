package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/yusakitchen/reviewboard/internal/blob"
	"github.com/yusakitchen/reviewboard/internal/config"
	"github.com/yusakitchen/reviewboard/internal/database"
	"github.com/yusakitchen/reviewboard/internal/logging"
	"github.com/yusakitchen/reviewboard/internal/monitoring"
	"github.com/yusakitchen/reviewboard/internal/server"
	"github.com/yusakitchen/reviewboard/internal/store/postgres"
	"github.com/yusakitchen/reviewboard/internal/store/sqlite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(&cfg.Logging, cfg.Server.Env)

	log.Info().
		Str("env", cfg.Server.Env).
		Str("name", cfg.Server.Name).
		Str("database", cfg.Database.Driver).
		Str("blobs", cfg.Blob.Backend).
		Msg("Starting reviewboard server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := openStore(ctx, &cfg.Database)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to open relational store")
	}
	defer closeStore()

	blobs, closeBlobs, err := openBlobs(ctx, &cfg.Blob)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open blob store")
	}
	defer closeBlobs()

	monitoring.Init()
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort)
	}

	srv, err := server.NewAPIServer(cfg, store, blobs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().
		Str("signal", sig.String()).
		Msg("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// openStore connects the configured relational store and applies migrations when enabled
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (server.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := database.RunMigrations(cfg.URL); err != nil {
				return nil, nil, err
			}
		}
		db, err := database.New(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(db), db.Close, nil

	case config.DriverSQLite:
		// The embedded store always migrates on open.
		store, err := sqlite.Open(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// openBlobs connects the configured blob backend
func openBlobs(ctx context.Context, cfg *config.BlobConfig) (blob.Store, func(), error) {
	switch cfg.Backend {
	case config.BlobGridFS:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		store, err := blob.NewGridFS(client.Database(cfg.MongoDatabase), cfg.GridFSBucket)
		if err != nil {
			client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info().Str("bucket", cfg.GridFSBucket).Msg("GridFS blob store connected")
		return store, func() { client.Disconnect(context.Background()) }, nil

	case config.BlobRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		log.Info().Msg("Redis blob store connected")
		return blob.NewRedis(client), func() { client.Close() }, nil

	case config.BlobLocal:
		store, err := blob.NewLocal(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.Dir).Msg("Local blob store ready")
		return store, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
}

func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())

	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info().
		Int("port", port).
		Msg("Prometheus metrics server listening")

	if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server error")
	}
}

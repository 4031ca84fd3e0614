// cmd/pipeline-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hiring-pipeline/internal/common/config"
	"hiring-pipeline/internal/common/database"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/pipeline/analytics"
	"hiring-pipeline/internal/pipeline/engine"
	"hiring-pipeline/internal/pipeline/qualify"
	"hiring-pipeline/internal/pipeline/service"
	"hiring-pipeline/internal/pipeline/store"
	"hiring-pipeline/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("storeBackend", cfg.Pipeline.StoreBackend),
	)

	ctx := context.Background()

	reg, err := registry.Default()
	if err != nil {
		zapLog.Fatal("stage registry load failed", zap.Error(err))
	}

	// --- Init record store ---
	var recordStore store.Store
	switch cfg.Pipeline.StoreBackend {
	case "postgres":
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		pgStore := store.NewPostgresStore(pg.DB)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		recordStore = pgStore
		zapLog.Info("PostgreSQL connected successfully")

	default:
		recordStore = store.NewMemoryStore()
		zapLog.Info("Using in-memory record store")
	}

	// --- Init Redis stats cache (optional) ---
	var redisClient *database.RedisClient
	statsTTL := time.Duration(cfg.Pipeline.StatsCacheTTL) * time.Second
	if statsTTL > 0 {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			// Stats stay correct without the cache, so a dead Redis only
			// costs latency.
			zapLog.Warn("redis unavailable, stats cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Wire the pipeline service ---
	var cacheClient *redis.Client
	if redisClient != nil {
		cacheClient = redisClient.Client
	}
	pipelineSvc := service.New(
		engine.New(recordStore, reg, log),
		qualify.NewEvaluator(log),
		analytics.NewService(recordStore, cacheClient, statsTTL, log),
		recordStore,
		log,
	)
	zapLog.Info("Pipeline service initialized")

	// --- Health, Metrics & Stats Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := pipelineSvc.Stats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Pipeline.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Pipeline.MetricsAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down metrics server", zap.Error(err))
	}

	zapLog.Info("Pipeline server stopped gracefully")
}

// cmd/shopping-assistant/main.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shopping-assistant/internal/api"
	"shopping-assistant/internal/common/camunda"
	"shopping-assistant/internal/common/config"
	"shopping-assistant/internal/common/database"
	"shopping-assistant/internal/common/genai"
	httpx "shopping-assistant/internal/common/http"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/common/observability"
	"shopping-assistant/internal/common/vectorstore"
	"shopping-assistant/internal/shop/cart"
	"shopping-assistant/internal/shop/catalog"
	"shopping-assistant/internal/shop/recommender"

	rr "shopping-assistant/internal/workers/shopping-assistant/room-recommendation"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting shopping assistant...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(observability.Options{
		ServiceName:   cfg.Observability.ServiceName,
		TraceSampling: cfg.Observability.TraceSampling,
		TraceExporter: cfg.Observability.TraceExporter,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.ConnectPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Pipeline collaborators ---
	genaiHTTP := httpx.NewClient(config.GetDuration(cfg.APIs.GenAI.Timeout), httpx.PoolConfig{
		MaxIdleConns:        cfg.APIs.GenAI.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.APIs.GenAI.MaxIdleConns,
	})
	model := genai.NewClient(cfg.APIs.GenAI, genaiHTTP, log)
	index := vectorstore.NewPGVectorIndex(pg.DB, cfg.Database.Postgres.CatalogTable)

	pipeline := rr.NewHandler(rr.LoadConfig(cfg.Pipeline), rr.Dependencies{
		Model:    model,
		Embedder: model,
		Index:    index,
	}, obs, log)

	// --- Peripheral shop services ---
	products := catalog.New(esClient.Client, cfg.Database.Elasticsearch.ProductsIndex, pg.DB, cfg.Database.Postgres.CatalogTable, log)
	carts := cart.NewStore(redis.Client, 0)
	recs := recommender.NewClient(
		cfg.Services.Recommendation.BaseURL,
		httpx.NewClient(config.GetDuration(cfg.Services.Recommendation.Timeout), httpx.PoolConfig{}),
	)

	checks := map[string]api.ReadinessCheck{
		"postgres":      pg.Ping,
		"redis":         redis.Ping,
		"elasticsearch": esClient.Ping,
		"genai": func(ctx context.Context) error {
			for name, state := range model.BreakerStates() {
				if state == "open" {
					return fmt.Errorf("%s circuit open", name)
				}
			}
			return nil
		},
	}

	// --- Optional Camunda job worker ---
	if cfg.Camunda.Enabled {
		zeebe, err := camunda.NewClient(ctx, cfg.Camunda)
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zeebe.Close()

		w := camunda.NewWorker(
			zeebe.Zeebe(),
			rr.TaskType,
			cfg.Camunda.MaxJobsActive,
			config.GetDuration(cfg.Camunda.Timeout),
			pipeline,
			log,
		)
		defer w.Stop()
		checks["zeebe"] = zeebe.HealthCheck
	}

	server := api.NewServer(pipeline, products, carts, recs, checks, log)
	err = server.Serve(ctx, cfg.Server.Addr(), api.ServeOptions{
		ReadTimeout:     config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:    config.GetDuration(cfg.Server.WriteTimeout),
		ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
	})
	if err != nil {
		zapLog.Error("HTTP server failed", zap.Error(err))
		return
	}
	zapLog.Info("Shopping assistant stopped")
}

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

	"go.uber.org/zap"

	"form-connectors/internal/api"
	"form-connectors/internal/catalog"
	"form-connectors/internal/common/aws"
	"form-connectors/internal/common/camunda"
	"form-connectors/internal/common/config"
	"form-connectors/internal/common/database"
	httpclient "form-connectors/internal/common/http"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/common/observability"
	"form-connectors/internal/connectors/executor"
	"form-connectors/internal/notify"
	"form-connectors/internal/persistence"
	"form-connectors/internal/session"
	"form-connectors/internal/submission"
	formsubmit "form-connectors/internal/workers/form-submit"
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
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting form server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("executorMode", cfg.Executor.Mode),
	)

	ctx := context.Background()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel meter unavailable, submission metrics limited to prometheus counters", zap.Error(err))
		obs = observability.NewNoop()
	}

	// --- Init PostgreSQL with retry ---
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
	if err := pg.Migrate(ctx, persistence.Schema...); err != nil {
		zapLog.Fatal("postgres migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis (optional catalog cache) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Connector catalog ---
	kibanaHTTP := httpclient.NewClient(config.GetDuration(cfg.Kibana.Timeout))
	var source catalog.Source = catalog.NewClient(cfg.Kibana, kibanaHTTP)
	if redis != nil {
		source = catalog.NewRedisCache(source, redis.Client, config.GetDuration(cfg.Catalog.CacheTTL), log)
	}

	// --- Connector executor ---
	exec, esClient, err := buildExecutor(ctx, cfg, kibanaHTTP, log, zapLog)
	if err != nil {
		zapLog.Fatal("executor setup failed", zap.Error(err))
	}

	// --- Notifications ---
	sinks := notify.MultiSink{notify.NewLogSink(log)}
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		sinks = append(sinks, notify.NewSNSSink(snsClient, cfg.Integrations.AWS.SNS.TopicARN, log, notify.KindDanger, notify.KindWarning))
	}

	repo := persistence.NewPostgresRepository(pg.DB, log)
	manager := session.NewManager(session.Dependencies{
		Repo:          repo,
		CatalogSource: source,
		AllowedTypes:  cfg.Catalog.AllowedTypes,
		Executor:      exec,
		Concurrency:   cfg.Executor.MaxConcurrency,
		Observability: obs,
		Sink:          sinks,
		Logger:        log,
	})
	defer manager.CloseAll()

	orch := submission.NewOrchestrator(exec, cfg.Executor.MaxConcurrency, sinks, obs, log)
	runner := submission.NewSavedFormRunner(repo, source, cfg.Catalog.AllowedTypes, orch, log)

	// --- Zeebe worker ---
	var (
		zeebe  *camunda.Client
		worker *camunda.Worker
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		if wcfg := config.GetWorkerConfig(cfg, formsubmit.TaskType); wcfg.Enabled {
			handler := formsubmit.NewHandler(&formsubmit.Config{
				Timeout: config.GetDuration(wcfg.Timeout),
			}, runner, log)
			worker = camunda.StartWorker(zeebe.GetClient(), formsubmit.TaskType, wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), handler, log)
		}
	}

	// --- HTTP API, health & metrics ---
	ready := func(ctx context.Context) error {
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		if esClient != nil {
			if err := esClient.Ping(ctx); err != nil {
				return fmt.Errorf("elasticsearch: %w", err)
			}
		}
		if zeebe != nil {
			if err := zeebe.HealthCheck(ctx); err != nil {
				return fmt.Errorf("zeebe: %w", err)
			}
		}
		return nil
	}
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewServer(manager, repo, runner, ready, log).Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
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
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if worker != nil {
		worker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down meter provider", zap.Error(err))
	}

	zapLog.Info("Form server stopped gracefully")
}

// buildExecutor returns the Kibana-backed executor, or the direct one wired to
// Elasticsearch, SES and plain HTTP.
func buildExecutor(ctx context.Context, cfg *config.Config, kibanaHTTP *httpclient.Client, log logger.Logger, zapLog *zap.Logger) (executor.Executor, *database.ElasticsearchClient, error) {
	if cfg.Executor.Mode == config.ExecutorModeKibana {
		return executor.NewKibanaExecutor(cfg.Kibana, kibanaHTTP, log), nil, nil
	}

	var esClient *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		return nil, nil, err
	}
	zapLog.Info("Elasticsearch connected successfully")

	var mailer executor.Mailer
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, nil, fmt.Errorf("ses client: %w", err)
		}
		mailer = executor.NewSESMailer(sesClient, cfg.Integrations.AWS.SES.FromEmail)
	}

	webhookHTTP := httpclient.NewClient(config.GetDuration(cfg.Executor.Timeout))
	return executor.NewDirectExecutor(executor.NewElasticsearchIndexer(esClient.Client), mailer, webhookHTTP, log), esClient, nil
}

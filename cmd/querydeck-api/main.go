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

	"github.com/querydeck/querydeck/internal/agent"
	"github.com/querydeck/querydeck/internal/api"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/db"
	"github.com/querydeck/querydeck/internal/db/duckdb"
	"github.com/querydeck/querydeck/internal/db/postgres"
	"github.com/querydeck/querydeck/internal/export"
	"github.com/querydeck/querydeck/internal/llm"
	"github.com/querydeck/querydeck/internal/memory"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/orchestrator"
	s3store "github.com/querydeck/querydeck/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("querydeck-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	executor, closeExecutor, err := openExecutor(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closeExecutor() }()

	generator, err := openLLMClient(cfg, cfg.LLM.GeneratorModel)
	if err != nil {
		logger.Error("failed to initialize sql generator", slog.Any("error", err))
		os.Exit(1)
	}
	router, err := openLLMClient(cfg, cfg.LLM.RouterModel)
	if err != nil {
		logger.Error("failed to initialize router", slog.Any("error", err))
		os.Exit(1)
	}
	summarizer, err := openLLMClient(cfg, cfg.LLM.SummarizerModel)
	if err != nil {
		logger.Error("failed to initialize summarizer", slog.Any("error", err))
		os.Exit(1)
	}

	workflow, err := agent.NewWorkflow(generator, executor, cfg.Agent.MaxAttempts, logger)
	if err != nil {
		logger.Error("failed to build sql workflow", slog.Any("error", err))
		os.Exit(1)
	}
	chat, err := orchestrator.New(router, workflow, cfg.Agent.MaxRouterSteps, logger)
	if err != nil {
		logger.Error("failed to build orchestrator", slog.Any("error", err))
		os.Exit(1)
	}
	conversations, err := memory.NewRegistry(func() (*memory.Store, error) {
		return memory.NewStore(summarizer, cfg.Memory.MaxBufferSize, logger)
	})
	if err != nil {
		logger.Error("failed to build conversation registry", slog.Any("error", err))
		os.Exit(1)
	}

	var exporter api.AnswerExporter
	if cfg.Export.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Export.Endpoint,
			Region:           cfg.Export.Region,
			Bucket:           cfg.Export.Bucket,
			AccessKeyID:      cfg.Export.AccessKeyID,
			SecretAccessKey:  cfg.Export.SecretAccessKey,
			UseSSL:           cfg.Export.UseSSL,
			Prefix:           cfg.Export.Prefix,
			AutoCreateBucket: cfg.Export.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		exporter, err = export.NewExporter(objectStore, logger)
		if err != nil {
			logger.Error("failed to initialize answer exporter", slog.Any("error", err))
			os.Exit(1)
		}
	}

	deps := api.Dependencies{
		Logger:        logger,
		Executor:      executor,
		Chat:          chat,
		Conversations: conversations,
		Exporter:      exporter,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseConfig(cfg),
			api.CheckLLMConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("driver", string(cfg.Database.Driver)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openExecutor(ctx context.Context, cfg config.Config) (db.Executor, func() error, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		executor, err := postgres.Open(ctx, postgres.Config{
			DSN:              cfg.Database.DSN,
			MaxOpenConns:     cfg.Database.MaxOpenConns,
			MaxIdleConns:     cfg.Database.MaxIdleConns,
			ConnMaxIdleTime:  cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime:  cfg.Database.ConnMaxLifetime,
			RowLimit:         cfg.Agent.RowLimit,
			SchemaSampleRows: cfg.Database.SchemaSampleRows,
		})
		if err != nil {
			return nil, nil, err
		}
		return executor, executor.Close, nil
	default:
		executor, err := duckdb.Open(duckdb.Config{
			Path:             cfg.Database.Path,
			RowLimit:         cfg.Agent.RowLimit,
			SchemaSampleRows: cfg.Database.SchemaSampleRows,
		})
		if err != nil {
			return nil, nil, err
		}
		return executor, executor.Close, nil
	}
}

func openLLMClient(cfg config.Config, model string) (llm.Generator, error) {
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
}

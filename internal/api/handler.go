package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/db"
	"github.com/querydeck/querydeck/internal/export"
	"github.com/querydeck/querydeck/internal/memory"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/orchestrator"
)

type ReadinessCheck func(ctx context.Context) error

// ChatRunner drives one chat turn end to end; satisfied by
// *orchestrator.Orchestrator.
type ChatRunner interface {
	Run(ctx context.Context, prompt string, convo memory.WorkingContext) (orchestrator.Output, error)
}

// AnswerExporter archives answered questions; satisfied by
// *export.Exporter. Optional.
type AnswerExporter interface {
	Export(ctx context.Context, answer export.Answer) (export.ExportResult, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Executor          db.Executor
	Chat              ChatRunner
	Conversations     *memory.Registry
	Exporter          AnswerExporter
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	mux.HandleFunc("GET /v1/conversations/{conversation}/memory", func(w http.ResponseWriter, r *http.Request) {
		handleConversationMemory(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDatabaseConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		switch cfg.Database.Driver {
		case config.DriverDuckDB:
			if cfg.Database.Path == "" {
				return errors.New("database path is not configured")
			}
		case config.DriverPostgres:
			if cfg.Database.DSN == "" {
				return errors.New("database dsn is not configured")
			}
		}
		return nil
	}
}

func CheckLLMConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.LLM.BaseURL == "" {
			return errors.New("llm base url is not configured")
		}
		if cfg.LLM.APIKey == "" {
			return errors.New("llm api key is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

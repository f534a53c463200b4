package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("querydeck-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != DriverDuckDB {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.SchemaSampleRows != 3 {
		t.Fatalf("Database.SchemaSampleRows = %d", cfg.Database.SchemaSampleRows)
	}
	if cfg.LLM.GeneratorModel != "gpt-5" {
		t.Fatalf("LLM.GeneratorModel = %q", cfg.LLM.GeneratorModel)
	}
	if cfg.Agent.MaxAttempts != 3 {
		t.Fatalf("Agent.MaxAttempts = %d", cfg.Agent.MaxAttempts)
	}
	if cfg.Agent.MaxRouterSteps != 8 {
		t.Fatalf("Agent.MaxRouterSteps = %d", cfg.Agent.MaxRouterSteps)
	}
	if cfg.Memory.MaxBufferSize != 10 {
		t.Fatalf("Memory.MaxBufferSize = %d", cfg.Memory.MaxBufferSize)
	}
	if cfg.Export.Enabled {
		t.Fatal("Export.Enabled should default to false")
	}
	if cfg.Export.Endpoint != "localhost:9000" {
		t.Fatalf("Export.Endpoint = %q", cfg.Export.Endpoint)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYDECK_PROFILE": "prod"})
	cfg, err := Load("querydeck-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Export.UseSSL {
		t.Fatal("Export.UseSSL should default to true in prod")
	}
	if cfg.Export.AutoCreateBucket {
		t.Fatal("Export.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"QUERYDECK_PROFILE":                "test",
		"QUERYDECK_SERVICE_NAME":           "querydeck-custom",
		"QUERYDECK_HTTP_ADDR":              ":9999",
		"QUERYDECK_HTTP_READ_TIMEOUT":      "2s",
		"QUERYDECK_HTTP_WRITE_TIMEOUT":     "3s",
		"QUERYDECK_LOG_LEVEL":              "error",
		"QUERYDECK_DB_DRIVER":              "postgres",
		"QUERYDECK_DB_DSN":                 "postgres://example",
		"QUERYDECK_DB_MAX_OPEN_CONNS":      "42",
		"QUERYDECK_DB_MAX_IDLE_CONNS":      "17",
		"QUERYDECK_DB_SCHEMA_SAMPLE_ROWS":  "7",
		"QUERYDECK_LLM_BASE_URL":           "https://api.example.com",
		"QUERYDECK_LLM_API_KEY":            "secret-key",
		"QUERYDECK_LLM_GENERATOR_MODEL":    "gpt-5.2",
		"QUERYDECK_LLM_ROUTER_MODEL":       "gpt-5.2-mini",
		"QUERYDECK_LLM_SUMMARIZER_MODEL":   "gpt-5.2-nano",
		"QUERYDECK_LLM_TEMPERATURE":        "0.3",
		"QUERYDECK_LLM_TIMEOUT":            "21s",
		"QUERYDECK_AGENT_MAX_ATTEMPTS":     "5",
		"QUERYDECK_AGENT_ROW_LIMIT":        "500",
		"QUERYDECK_AGENT_MAX_ROUTER_STEPS": "12",
		"QUERYDECK_MEMORY_MAX_BUFFER_SIZE": "20",
		"QUERYDECK_EXPORT_ENABLED":         "true",
		"QUERYDECK_EXPORT_ENDPOINT":        "s3.example.com",
		"QUERYDECK_EXPORT_BUCKET":          "querydeck-prod",
		"QUERYDECK_EXPORT_REGION":          "us-west-2",
		"QUERYDECK_EXPORT_ACCESS_KEY":      "abc",
		"QUERYDECK_EXPORT_SECRET_KEY":      "def",
		"QUERYDECK_EXPORT_USE_SSL":         "true",
		"QUERYDECK_EXPORT_PREFIX":          "answers",
	})
	cfg, err := Load("querydeck-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "querydeck-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 42 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.SchemaSampleRows != 7 {
		t.Fatalf("Database.SchemaSampleRows = %d", cfg.Database.SchemaSampleRows)
	}
	if cfg.LLM.BaseURL != "https://api.example.com" {
		t.Fatalf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Fatalf("LLM.Temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.Timeout != 21*time.Second {
		t.Fatalf("LLM.Timeout = %s", cfg.LLM.Timeout)
	}
	if cfg.Agent.MaxAttempts != 5 {
		t.Fatalf("Agent.MaxAttempts = %d", cfg.Agent.MaxAttempts)
	}
	if cfg.Agent.RowLimit != 500 {
		t.Fatalf("Agent.RowLimit = %d", cfg.Agent.RowLimit)
	}
	if cfg.Memory.MaxBufferSize != 20 {
		t.Fatalf("Memory.MaxBufferSize = %d", cfg.Memory.MaxBufferSize)
	}
	if !cfg.Export.Enabled {
		t.Fatal("Export.Enabled = false, want true")
	}
	if cfg.Export.Bucket != "querydeck-prod" {
		t.Fatalf("Export.Bucket = %q", cfg.Export.Bucket)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad profile":      {"QUERYDECK_PROFILE": "staging"},
		"bad driver":       {"QUERYDECK_DB_DRIVER": "oracle"},
		"bad duration":     {"QUERYDECK_LLM_TIMEOUT": "soon"},
		"bad int":          {"QUERYDECK_AGENT_MAX_ATTEMPTS": "three"},
		"bad log level":    {"QUERYDECK_LOG_LEVEL": "loud"},
		"zero attempts":    {"QUERYDECK_AGENT_MAX_ATTEMPTS": "0"},
		"tiny buffer size": {"QUERYDECK_MEMORY_MAX_BUFFER_SIZE": "1"},
	}
	for name, env := range cases {
		if _, err := Load("querydeck-api", mapLookup(env)); err == nil {
			t.Fatalf("%s: Load() expected error", name)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

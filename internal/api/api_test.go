package api_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/archivist/internal/api"
	"github.com/JaimeStill/archivist/internal/config"
	"github.com/JaimeStill/archivist/internal/infrastructure"
	"github.com/JaimeStill/archivist/pkg/database"
	"github.com/JaimeStill/archivist/pkg/pagination"
)

func validConfig() *config.Config {
	threshold := 0.8
	retries := 3

	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "archivist",
			User:            "archivist",
			Password:        "archivist",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		API: config.APIConfig{
			BasePath:    "/api",
			MetricsPath: "/metrics",
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
		Classification: config.ClassificationConfig{
			Method:              "auto",
			Threshold:           &threshold,
			DefaultAIConfidence: 0.7,
		},
		AI: config.AIConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.1:8b",
			Timeout: "60s",
		},
		Webhooks: config.WebhooksConfig{
			DefaultTimeout:    "30s",
			DefaultRetryCount: &retries,
			MaxBackoff:        "60s",
			MaxResponseSize:   "10000",
		},
		Scheduler: config.SchedulerConfig{
			Enabled:    true,
			Cron:       "@every 5m",
			Timezone:   "UTC",
			RunTimeout: "4m",
		},
		Lock:            config.LockConfig{TTL: "2m", Retry: "50ms"},
		ShutdownTimeout: "5s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	t.Cleanup(func() {
		infra.Lifecycle.Shutdown(time.Second)
		infra.Database.Connection().Close()
	})
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()

	m, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestNewModuleRejectsBadCron(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Cron = "every so often"

	if _, err := api.NewModule(cfg, setupInfra(t, cfg)); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNewModuleSchedulerDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Enabled = false
	cfg.Scheduler.Cron = "ignored when disabled"

	if _, err := api.NewModule(cfg, setupInfra(t, cfg)); err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t, cfg)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Logger == nil || runtime.Logger == infra.Logger {
		t.Error("runtime logger should be a module-scoped child logger")
	}
	if runtime.Database != infra.Database {
		t.Error("runtime database should be shared with infrastructure")
	}
	if runtime.Locker != infra.Locker {
		t.Error("runtime locker should be shared with infrastructure")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig()
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))

	domain := api.NewDomain(cfg, runtime)

	systems := map[string]any{
		"documents":       domain.Documents,
		"matching":        domain.Matching,
		"classifications": domain.Classifications,
		"webhooks":        domain.Webhooks,
		"workflows":       domain.Workflows,
		"scheduler":       domain.Scheduler,
	}
	for name, sys := range systems {
		if sys == nil {
			t.Errorf("%s system is nil", name)
		}
	}
}

package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"fintrack/internal/config"
	flog "fintrack/internal/log"
	"fintrack/internal/metrics"
)

func TestSessionSecret(t *testing.T) {
	logger := flog.New(flog.Config{Output: &bytes.Buffer{}})

	cfg := config.Default()
	cfg.SessionSecret = "0123456789abcdef"
	if got := SessionSecret(cfg, logger); got != cfg.SessionSecret {
		t.Fatalf("configured secret not used: %q", got)
	}

	cfg.SessionSecret = ""
	a, b := SessionSecret(cfg, logger), SessionSecret(cfg, logger)
	if len(a) != 64 || a == b {
		t.Fatalf("ephemeral secrets = %q, %q", a, b)
	}
}

func TestLoadConfigValidates(t *testing.T) {
	for _, k := range []string{config.FileEnv, "LOG_FORMAT", "AMQP_URL", "SESSION_SECRET", "BUDGET_WINDOW_MODE", "GOOGLE_SERVICE_ACCOUNT_FILE"} {
		t.Setenv(k, "")
	}
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "not-a-port")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error")
	}

	t.Setenv("PORT", "8089")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8089" {
		t.Fatalf("Port = %s", cfg.Port)
	}
}

func TestServeMetricsDisabled(t *testing.T) {
	logger := flog.New(flog.Config{Output: &bytes.Buffer{}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ServeMetrics(ctx, "", metrics.New(), logger); err != nil {
		t.Fatalf("empty addr: %v", err)
	}
	if err := ServeMetrics(ctx, "127.0.0.1:0", nil, logger); err != nil {
		t.Fatalf("nil metrics: %v", err)
	}
}

func TestServeMetricsStopsWithContext(t *testing.T) {
	logger := flog.New(flog.Config{Output: &bytes.Buffer{}})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ServeMetrics(ctx, "127.0.0.1:0", metrics.New(), logger) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ServeMetrics() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ServeMetrics did not stop")
	}
}

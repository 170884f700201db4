// Package cli holds the start-up steps shared by the fintrack binaries.
package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	flog "fintrack/internal/log"
	"fintrack/internal/metrics"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads .env, then the config, then validates it.
func LoadConfig() (*config.Config, error) {
	LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger installs the default logger described by cfg.
func SetupLogger(cfg *config.Config, component string) *flog.Logger {
	return flog.Setup(flog.Config{
		Level:     flog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
}

// MustLoad is LoadConfig plus SetupLogger, exiting on failure.
func MustLoad(component string) (*config.Config, *flog.Logger) {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, SetupLogger(cfg, component)
}

// SessionSecret returns the configured secret or a random one, in which
// case sessions end with the process.
func SessionSecret(cfg *config.Config, logger *flog.Logger) string {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.Error("Failed to generate session secret", flog.FieldError, err)
		os.Exit(1)
	}
	logger.Warn("SESSION_SECRET not set, using an ephemeral secret")
	return hex.EncodeToString(b)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ServeMetrics exposes m on addr until ctx is done. An empty addr or nil m
// returns immediately.
func ServeMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *flog.Logger) error {
	if addr == "" || m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving worker metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	flog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/reporting"
	"fintrack/internal/services"
)

func main() {
	cfg, logger := cli.MustLoad(flog.ComponentApp)
	logger.Info("Starting fintrack server", flog.FieldOperation, flog.OpStartup)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", flog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger, m).Open(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open backend", flog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", flog.FieldError, err)
		}
	}()

	users := cache.NewLRU[int64, core.User](1000, 5*time.Minute)
	if m != nil {
		m.RegisterCacheStats("users", users.Stats)
	}
	janitor := cache.NewJanitor(users)

	tokens := auth.NewTokenManager(cli.SessionSecret(cfg, logger), cfg.SessionTTL)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:    auth.NewService(res.Store, tokens, users),
		Ledger:  services.NewLedgerService(res.Store, res.Publisher),
		Reports: reporting.NewService(res.Store, reporting.WithWindowMode(cfg.WindowMode())),
		Store:   res.Store,
		Metrics: m,
		Logger:  logger,
	}, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", res.Publisher != nil,
			"window_mode", cfg.BudgetWindowMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		janitor.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", flog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

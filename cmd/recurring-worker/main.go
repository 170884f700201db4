package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	flog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

func main() {
	cfg, logger := cli.MustLoad(flog.ComponentRecurring)
	logger.Info("Starting recurring-worker", flog.FieldOperation, flog.OpStartup)

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

	// Materialized expenses publish ledger events like any other write, so
	// the mirror worker picks them up.
	ledger := services.NewLedgerService(res.Store, res.Publisher)
	processor := services.NewRecurringProcessor(res.Store, ledger)

	interval := cfg.RecurringInterval
	logger.Info("Recurring expense processor configured",
		"interval", interval,
		"backend", cfg.DataBackend)

	process := func(ctx context.Context, now time.Time) {
		count, err := processor.ProcessDueExpenses(ctx, now)
		if err != nil {
			logger.Failure(ctx, "Recurring processing failed", err)
			return
		}
		if m != nil {
			m.RecurringMaterialized(count)
		}
		logger.Info("Recurring processing complete",
			"expenses_created", count,
			"next_check", now.Add(interval).Format("15:04:05"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.ServeMetrics(gctx, cfg.WorkerMetricsAddr, m, logger)
	})
	g.Go(func() error {
		process(gctx, time.Now())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				process(gctx, now)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Recurring-worker failed", flog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}

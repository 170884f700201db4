package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	flog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/reporting"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.MustLoad(flog.ComponentWorker)
	logger.Info("Starting fintrack-worker", flog.FieldOperation, flog.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume ledger events")
		os.Exit(1)
	}

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
	factory := backend.NewFactory(logger.Logger, m)
	store, err := factory.OpenStore(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open store", flog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	mirror, err := factory.OpenMirror(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open sheet mirror", flog.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", flog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	var recorder worker.SyncRecorder
	if m != nil {
		recorder = m
	}
	mw := worker.NewMirrorWorker(reporting.NewService(store), mirror, recorder)

	// Catch up on anything written while no consumer was running.
	ids, err := store.ListUserIDs(ctx)
	if err != nil {
		logger.Failure(ctx, "Failed to list users for startup sync", err)
	} else {
		mw.SyncUsers(ctx, ids)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.ServeMetrics(gctx, cfg.WorkerMetricsAddr, m, logger)
	})
	g.Go(func() error {
		logger.Info("Consuming ledger events",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue,
			"mirror", cfg.MirrorEnabled())
		err := client.ConsumeLedgerEvents(gctx, mw.HandleLedgerEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", flog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

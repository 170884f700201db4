package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	memmirror "fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

type Factory struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewFactory accepts nil for either argument.
func NewFactory(logger *slog.Logger, m *metrics.Metrics) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger, metrics: m}
}

// Open creates the store and, when configured, the AMQP publisher.
// An unreachable broker is logged and the ledger runs without events.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := f.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{Store: store, Cleanup: store.Close}
	if cfg.AMQPURL == "" {
		return res, nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		return res, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	res.Publisher = instrument(client, f.metrics)
	res.Cleanup = func() error {
		return errors.Join(client.Close(), store.Close())
	}
	return res, nil
}

// OpenStore creates the storage backend alone.
func (f *Factory) OpenStore(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize PostgreSQL repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized PostgreSQL backend")
		return repo, nil
	case MemoryBackend:
		dir := cfg.DataDirectory
		if dir == "" {
			dir = "data"
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dir)
		return memory.NewFromFiles(dir), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

// OpenMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-process mirror otherwise.
func (f *Factory) OpenMirror(ctx context.Context, appCfg *config.Config) (sheets.Mirror, error) {
	if !appCfg.MirrorEnabled() {
		f.logger.InfoContext(ctx, "No spreadsheet configured, mirroring in memory")
		return memmirror.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      appCfg.GoogleSpreadsheetID,
		SheetName:          appCfg.GoogleSheetName,
		ServiceAccountFile: appCfg.GoogleServiceAccountFile,
		ServiceAccountJSON: appCfg.GoogleServiceAccountJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", appCfg.GoogleSheetName)
	return client, nil
}

type instrumentedPublisher struct {
	next    services.EventPublisher
	metrics *metrics.Metrics
}

func instrument(p services.EventPublisher, m *metrics.Metrics) services.EventPublisher {
	if m == nil {
		return p
	}
	return &instrumentedPublisher{next: p, metrics: m}
}

func (p *instrumentedPublisher) PublishLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	err := p.next.PublishLedgerEvent(ctx, ev)
	p.metrics.EventPublished(string(ev.Kind), err)
	return err
}

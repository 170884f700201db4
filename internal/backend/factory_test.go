package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	memmirror "fintrack/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Default()
	app.DataBackend = "postgres"
	app.DatabaseURL = "postgres://localhost/fintrack"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != app.DatabaseURL {
		t.Fatalf("cfg = %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Type: MemoryBackend}, false},
		{Config{Type: SQLiteBackend}, true},
		{Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{Config{Type: PostgresBackend}, true},
		{Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}

func TestOpenSQLiteWithoutAMQP(t *testing.T) {
	f := NewFactory(nil, nil)
	res, err := f.Open(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Cleanup()

	if res.Publisher != nil {
		t.Fatal("publisher must be nil without AMQP_URL")
	}
	if err := res.Store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpenMemory(t *testing.T) {
	res, err := NewFactory(nil, nil).Open(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cats, err := res.Store.ListCategories(context.Background(), 1)
	if err != nil || len(cats) == 0 {
		t.Fatalf("ListCategories = %v, %v", cats, err)
	}
}

func TestOpenMirrorDefaultsToMemory(t *testing.T) {
	app := config.Default()
	m, err := NewFactory(nil, nil).OpenMirror(context.Background(), app)
	if err != nil {
		t.Fatalf("OpenMirror: %v", err)
	}
	if _, ok := m.(*memmirror.Mirror); !ok {
		t.Fatalf("mirror = %T", m)
	}
}

type failingPublisher struct{}

func (failingPublisher) PublishLedgerEvent(context.Context, amqp.LedgerEvent) error {
	return errors.New("broker down")
}

func TestInstrumentedPublisherCountsOutcome(t *testing.T) {
	m := metrics.New()
	p := instrument(failingPublisher{}, m)
	ev := amqp.NewLedgerEvent(amqp.ExpenseCreated, 1, core.YearMonth{Year: 2026, Month: 1})
	if err := p.PublishLedgerEvent(context.Background(), ev); err == nil {
		t.Fatal("error must pass through")
	}
	if instrument(failingPublisher{}, nil) != (failingPublisher{}) {
		t.Fatal("nil metrics must return the publisher unchanged")
	}
}

// Package worker keeps the spreadsheet mirror in step with the ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	flog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

// RowSource yields a user's export rows, newest first.
type RowSource interface {
	ExportRows(ctx context.Context, userID int64, month, year string) ([]core.ExportRow, error)
}

// SyncRecorder is notified of every mirror rewrite attempt.
type SyncRecorder interface {
	MirrorSynced(err error)
}

// MirrorWorker rewrites a user's mirror tab whenever their ledger changes.
// Events carry no data, so every sync reloads the full export.
type MirrorWorker struct {
	rows     RowSource
	mirror   sheets.RowWriter
	recorder SyncRecorder

	mu     sync.Mutex
	synced map[int64]int // per-user rewrite count
}

func NewMirrorWorker(rows RowSource, mirror sheets.RowWriter, recorder SyncRecorder) *MirrorWorker {
	return &MirrorWorker{
		rows:     rows,
		mirror:   mirror,
		recorder: recorder,
		synced:   make(map[int64]int),
	}
}

// HandleLedgerEvent is an amqp.Handler.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		flog.FieldEventID, ev.ID,
		flog.FieldEventKind, ev.Kind,
		flog.FieldUserID, ev.UserID,
		flog.FieldMonth, ev.Month)
	return w.SyncUser(ctx, ev.UserID)
}

// SyncUser mirrors the user's whole history.
func (w *MirrorWorker) SyncUser(ctx context.Context, userID int64) error {
	err := w.syncUser(ctx, userID)
	if w.recorder != nil {
		w.recorder.MirrorSynced(err)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Mirror sync failed", flog.FieldUserID, userID, flog.FieldError, err)
		return err
	}

	w.mu.Lock()
	w.synced[userID]++
	w.mu.Unlock()
	return nil
}

func (w *MirrorWorker) syncUser(ctx context.Context, userID int64) error {
	rows, err := w.rows.ExportRows(ctx, userID, "", "")
	if err != nil {
		return fmt.Errorf("load export rows: %w", err)
	}
	if err := w.mirror.ReplaceRows(ctx, userID, rows); err != nil {
		return fmt.Errorf("replace mirror rows: %w", err)
	}
	slog.InfoContext(ctx, "Mirror synced", flog.FieldUserID, userID, "rows", len(rows))
	return nil
}

// SyncUsers mirrors each user in turn, continuing past failures.
// It returns how many succeeded.
func (w *MirrorWorker) SyncUsers(ctx context.Context, userIDs []int64) int {
	ok := 0
	for _, id := range userIDs {
		if ctx.Err() != nil {
			break
		}
		if err := w.SyncUser(ctx, id); err == nil {
			ok++
		}
	}
	slog.InfoContext(ctx, "Startup mirror sync completed", "users", len(userIDs), "synced", ok)
	return ok
}

// Synced returns how many successful rewrites the user has had.
func (w *MirrorWorker) Synced(userID int64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.synced[userID]
}

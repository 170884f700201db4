package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	flog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// RecurringProcessor turns due monthly and yearly templates into expenses.
type RecurringProcessor struct {
	store  storage.RecurringStore
	ledger *LedgerService
}

func NewRecurringProcessor(store storage.RecurringStore, ledger *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{store: store, ledger: ledger}
}

// ProcessDueExpenses materializes every template due on now's calendar day and
// returns how many expenses were created. One failing template does not stop
// the others.
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	templates, err := p.store.ListActiveRecurring(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list active recurring templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"processing_date", today.String())

	processed := 0
	for _, rt := range templates {
		checker, err := GetDuenessChecker(rt.Every)
		if errors.Is(err, ErrNotMaterialized) {
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring template", flog.FieldTemplateID, rt.ID, flog.FieldError, err)
			continue
		}
		if !checker.IsDue(rt.LastExecution, today, rt.StartDate) {
			continue
		}

		date := checker.Occurrence(today, rt.StartDate)
		if date.Before(rt.StartDate.Time) {
			date = rt.StartDate
		}
		if _, err := p.ledger.insertMaterialized(ctx, core.Expense{
			UserID:      rt.UserID,
			Date:        date,
			Amount:      rt.Amount,
			Category:    rt.Category,
			Description: rt.Description,
			RecurringID: rt.ID,
		}); err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				flog.FieldTemplateID, rt.ID,
				flog.FieldUserID, rt.UserID,
				flog.FieldError, err)
			continue
		}

		if err := p.store.MarkRecurringExecuted(ctx, rt.ID, today); err != nil {
			// the expense exists; the next run would duplicate it
			slog.ErrorContext(ctx, "Failed to record last execution date",
				flog.FieldTemplateID, rt.ID,
				flog.FieldError, err)
		}

		processed++
		slog.InfoContext(ctx, "Created expense from recurring template",
			flog.FieldTemplateID, rt.ID,
			flog.FieldUserID, rt.UserID,
			"date", date.String(),
			"amount_cents", rt.Amount.Cents,
			"frequency", rt.Every)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(templates))
	return processed, nil
}

// Package reconciler derives alert rows from the current inventory in one atomic
// pass.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/miiguelriios/WasteLessApp/pkg/alerts"
	"github.com/miiguelriios/WasteLessApp/pkg/model"
	"github.com/miiguelriios/WasteLessApp/pkg/storage"
)

// ErrInvalidWindow is returned for a negative or non-numeric window.
var ErrInvalidWindow = errors.New("invalid window")

// Store is the subset of storage.Storage the reconciler requires.
type Store interface {
	ExpiringCandidates(ctx context.Context, horizon model.Date) ([]model.Item, error)
	LowStockCandidates(ctx context.Context) ([]model.Item, error)
	InTx(ctx context.Context, fn func(tx storage.AlertTx) error) error
}

// Reconciler runs reconciliation passes against a store.
type Reconciler struct {
	store  Store
	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates a Reconciler. The clock decides what "today" is for both the
// expiring horizon and the one-alert-per-day rule.
func New(store Store, clk clockwork.Clock, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// Run executes one pass: it reads both candidate sets, then inserts at most one alert
// per item and type for today inside a single transaction. Either every new alert is
// committed or none is. Failures are returned, not logged; the caller reports them.
func (r *Reconciler) Run(ctx context.Context, windowDays int) (*model.RunSummary, error) {
	if windowDays < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, windowDays)
	}

	start := r.clock.Now()
	today := model.DateOf(start)
	horizon := alerts.Horizon(today, windowDays)

	expiring, err := r.store.ExpiringCandidates(ctx, horizon)
	if err != nil {
		return nil, fmt.Errorf("load expiring candidates: %w", err)
	}
	lowStock, err := r.store.LowStockCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load low stock candidates: %w", err)
	}

	summary := &model.RunSummary{
		ExpiringCandidates: len(expiring),
		LowStockCandidates: len(lowStock),
	}

	var expiringInserted, lowStockInserted int
	err = r.store.InTx(ctx, func(tx storage.AlertTx) error {
		expiringInserted, lowStockInserted = 0, 0

		n, err := r.insertAll(ctx, tx, model.AlertExpiring, expiring, start, today)
		if err != nil {
			return err
		}
		expiringInserted = n

		n, err = r.insertAll(ctx, tx, model.AlertLowStock, lowStock, start, today)
		if err != nil {
			return err
		}
		lowStockInserted = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write alerts: %w", err)
	}

	summary.ExpiringInserted = expiringInserted
	summary.LowStockInserted = lowStockInserted

	r.logger.Info("reconciliation complete",
		"window_days", windowDays,
		"today", today.String(),
		"expiring_candidates", summary.ExpiringCandidates,
		"low_stock_candidates", summary.LowStockCandidates,
		"expiring_inserted", summary.ExpiringInserted,
		"low_stock_inserted", summary.LowStockInserted,
	)
	return summary, nil
}

func (r *Reconciler) insertAll(ctx context.Context, tx storage.AlertTx, t model.AlertType, items []model.Item, now time.Time, today model.Date) (int, error) {
	inserted := 0
	for _, item := range items {
		day := today
		alert := &model.Alert{
			ItemID:     item.ID,
			Type:       t,
			Message:    alerts.Message(t, item),
			CreatedAt:  now.UTC(),
			CreatedOn:  today,
			DedupeDate: &day,
		}

		ok, err := tx.InsertAlertOnce(ctx, alert)
		if err != nil {
			return 0, err
		}
		if !ok {
			r.logger.Debug("alert already raised today", "item_id", item.ID, "alert_type", t)
			continue
		}
		inserted++
	}
	return inserted, nil
}

// ParseWindow interprets a caller-supplied window. An empty string yields def; any
// value that is not a non-negative integer is rejected with ErrInvalidWindow.
func ParseWindow(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidWindow, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidWindow, n)
	}
	return n, nil
}

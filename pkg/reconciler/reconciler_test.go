package reconciler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miiguelriios/WasteLessApp/pkg/inventory"
	"github.com/miiguelriios/WasteLessApp/pkg/model"
	"github.com/miiguelriios/WasteLessApp/pkg/reconciler"
	"github.com/miiguelriios/WasteLessApp/pkg/storage"
)

var day0 = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addItem(t *testing.T, store *storage.Store, item model.Item) model.Item {
	t.Helper()
	require.NoError(t, store.CreateItem(context.Background(), &item))
	return item
}

func datePtr(s string) *model.Date {
	d := model.MustParseDate(s)
	return &d
}

func listAlerts(t *testing.T, store *storage.Store) []model.Alert {
	t.Helper()
	list, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	return list
}

func TestRun_ScenarioA_ExpiringToday(t *testing.T) {
	store := newTestStore(t)
	addItem(t, store, model.Item{Name: "Milk", Quantity: decimal.NewFromInt(1), ExpiryDate: datePtr("2026-10-18")})

	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())
	summary, err := r.Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ExpiringCandidates)
	assert.Equal(t, 0, summary.LowStockCandidates)
	assert.Equal(t, 1, summary.ExpiringInserted)

	list := listAlerts(t, store)
	require.Len(t, list, 1)
	assert.Equal(t, model.AlertExpiring, list[0].Type)
	assert.Contains(t, list[0].Message, "Milk")
	assert.Contains(t, list[0].Message, "2026-10-18")
}

func TestRun_ScenarioB_LowStockMessage(t *testing.T) {
	store := newTestStore(t)
	addItem(t, store, model.Item{
		Name:         "Flour",
		Quantity:     decimal.NewFromInt(2),
		ReorderLevel: decimal.NewNullDecimal(decimal.NewFromInt(5)),
	})

	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())
	summary, err := r.Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.ExpiringCandidates)
	assert.Equal(t, 1, summary.LowStockCandidates)

	list := listAlerts(t, store)
	require.Len(t, list, 1)
	assert.Equal(t, model.AlertLowStock, list[0].Type)
	assert.Equal(t, `Low stock for "Flour": qty=2, reorder=5`, list[0].Message)
}

func scenarioC(t *testing.T, store *storage.Store) {
	t.Helper()
	addItem(t, store, model.Item{
		Name:         "Cream",
		Quantity:     decimal.NewFromInt(1),
		ExpiryDate:   datePtr("2026-10-19"),
		ReorderLevel: decimal.NewNullDecimal(decimal.NewFromInt(2)),
	})
}

func TestRun_ScenarioC_BothConditions(t *testing.T) {
	store := newTestStore(t)
	scenarioC(t, store)

	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())
	summary, err := r.Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, &model.RunSummary{
		ExpiringCandidates: 1,
		LowStockCandidates: 1,
		ExpiringInserted:   1,
		LowStockInserted:   1,
	}, summary)

	list := listAlerts(t, store)
	require.Len(t, list, 2)
	types := []model.AlertType{list[0].Type, list[1].Type}
	assert.ElementsMatch(t, []model.AlertType{model.AlertExpiring, model.AlertLowStock}, types)
}

func TestRun_ScenarioD_SameDayRerunIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	scenarioC(t, store)

	fake := clockwork.NewFakeClockAt(day0)
	r := reconciler.New(store, fake, testLogger())
	first, err := r.Run(context.Background(), 3)
	require.NoError(t, err)
	before := listAlerts(t, store)

	fake.Advance(5 * time.Hour)
	second, err := r.Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, first.ExpiringCandidates, second.ExpiringCandidates)
	assert.Equal(t, first.LowStockCandidates, second.LowStockCandidates)
	assert.Zero(t, second.ExpiringInserted)
	assert.Zero(t, second.LowStockInserted)
	assert.Equal(t, before, listAlerts(t, store))
}

func TestRun_DayBoundaryAddsOneAlertPerItemAndType(t *testing.T) {
	store := newTestStore(t)
	scenarioC(t, store)
	addItem(t, store, model.Item{
		Name:         "Rice",
		Quantity:     decimal.NewFromInt(1),
		ReorderLevel: decimal.NewNullDecimal(decimal.NewFromInt(4)),
	})

	fake := clockwork.NewFakeClockAt(day0)
	r := reconciler.New(store, fake, testLogger())
	_, err := r.Run(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, listAlerts(t, store), 3)

	fake.Advance(24 * time.Hour)
	summary, err := r.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExpiringInserted)
	assert.Equal(t, 2, summary.LowStockInserted)
	assert.Len(t, listAlerts(t, store), 6)
}

func TestRun_ManualAlertTodaySuppressesSameType(t *testing.T) {
	store := newTestStore(t)
	flour := addItem(t, store, model.Item{
		Name:         "Flour",
		Quantity:     decimal.NewFromInt(2),
		ExpiryDate:   datePtr("2026-10-19"),
		ReorderLevel: decimal.NewNullDecimal(decimal.NewFromInt(5)),
	})

	fake := clockwork.NewFakeClockAt(day0)
	inv := inventory.NewService(store, fake, 3, testLogger())
	require.NoError(t, inv.CreateAlert(context.Background(), &model.Alert{
		ItemID: flour.ID, Type: model.AlertLowStock, Message: "manual",
	}))

	r := reconciler.New(store, fake, testLogger())
	summary, err := r.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LowStockCandidates)
	assert.Zero(t, summary.LowStockInserted)
	assert.Equal(t, 1, summary.ExpiringInserted, "a manual alert only covers its own type")
	assert.Equal(t, 1, countAlerts(listAlerts(t, store), model.AlertLowStock))

	fake.Advance(24 * time.Hour)
	summary, err = r.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LowStockInserted)
	assert.Equal(t, 2, countAlerts(listAlerts(t, store), model.AlertLowStock))
}

func countAlerts(list []model.Alert, t model.AlertType) int {
	n := 0
	for _, a := range list {
		if a.Type == t {
			n++
		}
	}
	return n
}

func TestRun_ConcurrentPassesNeverDuplicate(t *testing.T) {
	store := newTestStore(t)
	const items = 20
	for i := range items {
		addItem(t, store, model.Item{
			Name:         fmt.Sprintf("item-%d", i),
			Quantity:     decimal.NewFromInt(1),
			ExpiryDate:   datePtr("2026-10-18"),
			ReorderLevel: decimal.NewNullDecimal(decimal.NewFromInt(5)),
		})
	}

	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())

	const passes = 8
	var wg sync.WaitGroup
	errs := make([]error, passes)
	inserted := make([]int, passes)
	for i := range passes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := r.Run(context.Background(), 3)
			errs[i] = err
			if err == nil {
				inserted[i] = summary.ExpiringInserted + summary.LowStockInserted
			}
		}()
	}
	wg.Wait()

	total := 0
	for i := range passes {
		require.NoError(t, errs[i], "pass %d", i)
		total += inserted[i]
	}
	assert.Equal(t, 2*items, total)

	list := listAlerts(t, store)
	require.Len(t, list, 2*items)
	seen := make(map[string]bool)
	for _, a := range list {
		key := fmt.Sprintf("%d/%s", a.ItemID, a.Type)
		assert.False(t, seen[key], "duplicate alert %s", key)
		seen[key] = true
	}
}

func TestRun_NullFieldsNeverQualify(t *testing.T) {
	store := newTestStore(t)
	addItem(t, store, model.Item{Name: "Salt", Quantity: decimal.Zero})

	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())
	summary, err := r.Run(context.Background(), 10000)
	require.NoError(t, err)
	assert.Equal(t, &model.RunSummary{}, summary)
	assert.Empty(t, listAlerts(t, store))
}

func TestRun_QuantityAboveReorderRemovesCandidate(t *testing.T) {
	store := newTestStore(t)
	item := addItem(t, store, model.Item{
		Name:         "Beans",
		Quantity:     decimal.NewFromInt(3),
		ReorderLevel: decimal.NewNullDecimal(decimal.NewFromInt(3)),
	})

	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())
	summary, err := r.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LowStockCandidates)

	item.Quantity = decimal.NewFromInt(4)
	require.NoError(t, store.UpdateItem(context.Background(), &item))

	summary, err = r.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.LowStockCandidates)
}

func TestRun_NegativeWindow(t *testing.T) {
	store := &failingStore{}
	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())

	_, err := r.Run(context.Background(), -1)
	assert.ErrorIs(t, err, reconciler.ErrInvalidWindow)
	assert.Zero(t, store.calls)
}

// failingStore fails every read and counts calls.
type failingStore struct {
	calls int
	txs   int
}

func (f *failingStore) ExpiringCandidates(context.Context, model.Date) ([]model.Item, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingStore) LowStockCandidates(context.Context) ([]model.Item, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingStore) InTx(context.Context, func(storage.AlertTx) error) error {
	f.txs++
	return nil
}

func TestRun_ReadFailureOpensNoTransaction(t *testing.T) {
	store := &failingStore{}
	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())

	_, err := r.Run(context.Background(), 3)
	assert.Error(t, err)
	assert.Equal(t, 1, store.calls)
	assert.Zero(t, store.txs)
}

// flakyStore wraps a real store and fails the kth insert of a pass.
type flakyStore struct {
	*storage.Store
	failAt int
}

func (f *flakyStore) InTx(ctx context.Context, fn func(storage.AlertTx) error) error {
	return f.Store.InTx(ctx, func(tx storage.AlertTx) error {
		return fn(&flakyTx{AlertTx: tx, failAt: f.failAt})
	})
}

type flakyTx struct {
	storage.AlertTx
	failAt int
	n      int
}

func (f *flakyTx) InsertAlertOnce(ctx context.Context, a *model.Alert) (bool, error) {
	f.n++
	if f.n == f.failAt {
		return false, fmt.Errorf("simulated failure on insert %d", f.n)
	}
	return f.AlertTx.InsertAlertOnce(ctx, a)
}

func TestRun_FailureOnAnyInsertRollsBackEverything(t *testing.T) {
	store := newTestStore(t)
	for i := range 3 {
		addItem(t, store, model.Item{
			Name:         fmt.Sprintf("item-%d", i),
			Quantity:     decimal.NewFromInt(1),
			ExpiryDate:   datePtr("2026-10-18"),
			ReorderLevel: decimal.NewNullDecimal(decimal.NewFromInt(5)),
		})
	}
	const pending = 6

	for k := 1; k <= pending; k++ {
		t.Run(fmt.Sprintf("fail at %d", k), func(t *testing.T) {
			r := reconciler.New(&flakyStore{Store: store, failAt: k}, clockwork.NewFakeClockAt(day0), testLogger())
			summary, err := r.Run(context.Background(), 3)
			assert.Error(t, err)
			assert.Nil(t, summary)
			assert.Empty(t, listAlerts(t, store))
		})
	}

	r := reconciler.New(store, clockwork.NewFakeClockAt(day0), testLogger())
	summary, err := r.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, pending, summary.ExpiringInserted+summary.LowStockInserted)
}

func TestRun_FailureIsReturnedNotLogged(t *testing.T) {
	store := newTestStore(t)
	addItem(t, store, model.Item{Name: "Milk", Quantity: decimal.NewFromInt(1), ExpiryDate: datePtr("2026-10-18")})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := reconciler.New(&flakyStore{Store: store, failAt: 1}, clockwork.NewFakeClockAt(day0), logger)

	_, err := r.Run(context.Background(), 3)
	require.Error(t, err)
	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 3, false},
		{"0", 0, false},
		{"7", 7, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"2.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := reconciler.ParseWindow(tt.raw, 3)
			if tt.wantErr {
				assert.ErrorIs(t, err, reconciler.ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

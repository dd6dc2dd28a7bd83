package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
	"github.com/miiguelriios/WasteLessApp/pkg/reconciler"
	"github.com/miiguelriios/WasteLessApp/pkg/storage"
)

func writeTestConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "wasteless.db")
	cfgPath = filepath.Join(dir, "config.yaml")

	cfg := fmt.Sprintf(`
storage:
  driver: sqlite
  path: %s
auth:
  enabled: false
logging:
  level: error
  format: text
`, dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, dbPath
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() { cfgFile = "" })
	return rootCmd.Execute()
}

func TestSeedAndRunAlerts(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)

	today := model.DateOf(time.Now())
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	seed := fmt.Sprintf(`
categories:
  - name: Dairy
items:
  - name: Milk
    category: Dairy
    quantity: 1
    expiry_date: %s
    reorder_level: 5
  - name: Rice
    quantity: 10
    expiry_date: %s
`, today, today.AddDays(30))
	require.NoError(t, os.WriteFile(seedPath, []byte(seed), 0o600))

	require.NoError(t, execute(t, "--config", cfgPath, "seed", "--file", seedPath))
	require.NoError(t, execute(t, "--config", cfgPath, "alerts", "run"))
	require.NoError(t, execute(t, "--config", cfgPath, "alerts", "run", "--window", "3"))

	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer store.Close()

	items, err := store.ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	list, err := store.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2, "second run must not duplicate alerts")
	for _, a := range list {
		assert.Equal(t, "Milk", a.ItemName)
	}
}

func TestAlertsRunRejectsNegativeWindow(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	err := execute(t, "--config", cfgPath, "alerts", "run", "--window", "-1")
	assert.Error(t, err)
}

func TestAlertsPreviewRejectsNegativeWindow(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	err := execute(t, "--config", cfgPath, "alerts", "preview", "--window", "-5")
	assert.ErrorIs(t, err, reconciler.ErrInvalidWindow)
}

type ctxRunner struct {
	err error
}

func (r *ctxRunner) Run(ctx context.Context, _ int) (*model.RunSummary, error) {
	r.err = ctx.Err()
	return &model.RunSummary{}, nil
}

func TestAlertJobOutlivesShutdown(t *testing.T) {
	runner := &ctxRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := alertJob(runner, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, job(ctx))
	assert.NoError(t, runner.err)
}

func TestUserAddValidatesRole(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	err := execute(t, "--config", cfgPath, "user", "add", "--email", "a@b.c", "--password", "longenough", "--role", "owner")
	assert.ErrorContains(t, err, "invalid role")
}

func TestUserAdd(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	require.NoError(t, execute(t, "--config", cfgPath, "user", "add",
		"--email", "chef@example.com", "--name", "Chef", "--password", "longenough", "--role", "admin"))

	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer store.Close()

	u, err := store.GetUserByEmail(context.Background(), "chef@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	assert.NotEqual(t, "longenough", u.PasswordHash)
}

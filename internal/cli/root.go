package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/miiguelriios/WasteLessApp/internal/config"
	"github.com/miiguelriios/WasteLessApp/internal/logging"
	"github.com/miiguelriios/WasteLessApp/pkg/inventory"
	"github.com/miiguelriios/WasteLessApp/pkg/reconciler"
	"github.com/miiguelriios/WasteLessApp/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wasteless",
	Short: "WasteLess - perishable inventory tracking with expiry and low-stock alerts",
	Long: `WasteLess tracks perishable stock, its categories and suppliers, and raises
alerts for items that are about to expire or have fallen below their reorder level.
Alerts are reconciled on demand through the API or the CLI, or periodically by the
built-in scheduler.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.wasteless/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// app bundles the dependencies shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Store
	clock  clockwork.Clock

	closeLog func()
}

// initApp loads config, sets up logging and opens the store.
func initApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Target())
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		clock:    clockwork.NewRealClock(),
		closeLog: closeLog,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close storage", "error", err)
	}
	a.closeLog()
}

func (a *app) inventory() *inventory.Service {
	return inventory.NewService(a.store, a.clock, a.cfg.Alerts.WindowDays, a.logger)
}

func (a *app) reconciler() *reconciler.Reconciler {
	return reconciler.New(a.store, a.clock, a.logger)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/miiguelriios/WasteLessApp/internal/server"
	"github.com/miiguelriios/WasteLessApp/pkg/auth"
	"github.com/miiguelriios/WasteLessApp/pkg/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the alert scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().Bool("no-schedule", false, "Disable the periodic alert run")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}
	if noSchedule, _ := cmd.Flags().GetBool("no-schedule"); noSchedule {
		cfg.Alerts.Schedule.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var tokens *auth.TokenService
	if cfg.Auth.Enabled {
		ttl, _ := cfg.TokenTTL()
		tokens = auth.NewTokenService(cfg.Auth.JWTSecret, ttl, a.clock)
	} else {
		a.logger.Warn("API authentication disabled")
	}

	rec := a.reconciler()
	apiServer := server.NewServer(a.inventory(), rec, a.store, tokens, server.Options{
		WindowDays:  cfg.Alerts.WindowDays,
		CORSOrigin:  cfg.Server.CORSOrigin,
		RequireAuth: cfg.Auth.Enabled,
	}, a.logger)

	interval, _ := cfg.ScheduleInterval()
	sched := scheduler.New(scheduler.Config{
		Enabled:    cfg.Alerts.Schedule.Enabled,
		Interval:   interval,
		RunOnStart: cfg.Alerts.Schedule.RunOnStart,
	}, alertJob(rec, cfg.Alerts.WindowDays, a.logger), a.clock, a.logger)

	readTimeout, _ := time.ParseDuration(cfg.Server.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.Server.WriteTimeout)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server started", "listen", cfg.Server.Listen)
		fmt.Fprintf(os.Stderr, "WasteLess API listening on %s\n", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sched.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// alertJob adapts a reconciliation pass to the scheduler. The pass is detached from
// shutdown cancellation so it commits or fails on its own; the scheduler waits for it.
func alertJob(runner server.Runner, windowDays int, logger *slog.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		summary, err := runner.Run(context.WithoutCancel(ctx), windowDays)
		if err != nil {
			return err
		}
		logger.Info("scheduled alert run",
			"expiring_inserted", summary.ExpiringInserted,
			"low_stock_inserted", summary.LowStockInserted,
		)
		return nil
	}
}

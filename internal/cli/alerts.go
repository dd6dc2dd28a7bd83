package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Run, preview and list alerts",
}

var alertsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile expiry and low-stock alerts once",
	RunE:  runAlertsRun,
}

var alertsPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the items the next run would alert on, without writing",
	RunE:  runAlertsPreview,
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored alerts, newest first",
	RunE:  runAlertsList,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsRunCmd)
	alertsCmd.AddCommand(alertsPreviewCmd)
	alertsCmd.AddCommand(alertsListCmd)

	alertsRunCmd.Flags().IntP("window", "w", -1, "Expiry window in days (default from config)")
	alertsPreviewCmd.Flags().IntP("window", "w", -1, "Expiry window in days (default from config)")
	alertsListCmd.Flags().IntP("limit", "n", 0, "Show at most this many alerts (0 for all)")
}

// windowFlag returns the --window value, falling back to the configured window when
// the flag was not given.
func windowFlag(cmd *cobra.Command, def int) int {
	if !cmd.Flags().Changed("window") {
		return def
	}
	w, _ := cmd.Flags().GetInt("window")
	return w
}

func runAlertsRun(cmd *cobra.Command, _ []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	window := windowFlag(cmd, a.cfg.Alerts.WindowDays)
	summary, err := a.reconciler().Run(context.Background(), window)
	if err != nil {
		return fmt.Errorf("run alerts: %w", err)
	}

	fmt.Printf("Alert run (window %d days)\n", window)
	fmt.Printf("  Expiring:  %d candidates, %d new alerts\n", summary.ExpiringCandidates, summary.ExpiringInserted)
	fmt.Printf("  Low stock: %d candidates, %d new alerts\n", summary.LowStockCandidates, summary.LowStockInserted)
	return nil
}

func runAlertsPreview(cmd *cobra.Command, _ []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	window := windowFlag(cmd, a.cfg.Alerts.WindowDays)
	cands, err := a.inventory().Preview(context.Background(), window)
	if err != nil {
		return fmt.Errorf("preview alerts: %w", err)
	}

	if len(cands.Expiring) == 0 && len(cands.LowStock) == 0 {
		fmt.Println("Nothing to alert on.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tITEM\tQUANTITY\tREORDER\tEXPIRES")
	fmt.Fprintln(w, "----\t----\t--------\t-------\t-------")
	printCandidates(w, model.AlertExpiring, cands.Expiring)
	printCandidates(w, model.AlertLowStock, cands.LowStock)
	return w.Flush()
}

func printCandidates(w *tabwriter.Writer, t model.AlertType, items []model.Item) {
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t, it.Name, it.Quantity.String(), reorderString(it), expiryString(it))
	}
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.inventory().ListAlerts(context.Background())
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	if len(list) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTYPE\tITEM\tMESSAGE")
	fmt.Fprintln(w, "--\t-------\t----\t----\t-------")
	for _, al := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			al.ID, al.CreatedAt.Local().Format("2006-01-02 15:04"), al.Type, al.ItemName, al.Message)
	}
	return w.Flush()
}

package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Inspect inventory",
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all items",
	RunE:  runItemsList,
}

var itemsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard totals",
	RunE:  runItemsStats,
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsStatsCmd)
}

func reorderString(it model.Item) string {
	if !it.ReorderLevel.Valid {
		return "-"
	}
	return it.ReorderLevel.Decimal.String()
}

func expiryString(it model.Item) string {
	if it.ExpiryDate == nil {
		return "-"
	}
	return it.ExpiryDate.String()
}

func runItemsList(_ *cobra.Command, _ []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.inventory().ListItems(context.Background())
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	if len(items) == 0 {
		fmt.Println("No items.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQUANTITY\tUNIT\tREORDER\tEXPIRES")
	fmt.Fprintln(w, "--\t----\t--------\t----\t-------\t-------")
	for _, it := range items {
		unit := "-"
		if it.Unit != nil {
			unit = *it.Unit
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Name, it.Quantity.String(), unit, reorderString(it), expiryString(it))
	}
	return w.Flush()
}

func runItemsStats(_ *cobra.Command, _ []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.inventory().Stats(context.Background())
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}

	fmt.Printf("Total items:    %d\n", stats.TotalItems)
	fmt.Printf("Expiring soon:  %d (within %d days)\n", stats.ExpiringSoon, a.cfg.Alerts.WindowDays)
	fmt.Printf("Low stock:      %d\n", stats.LowStock)

	if len(stats.ByCategory) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tITEMS")
		for _, c := range stats.ByCategory {
			fmt.Fprintf(w, "%s\t%d\n", c.Category, c.Count)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

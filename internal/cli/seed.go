package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miiguelriios/WasteLessApp/pkg/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load categories, suppliers and items from a YAML file",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringP("file", "f", "", "Seed file path (required)")
	_ = seedCmd.MarkFlagRequired("file")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")

	seed, err := catalog.Load(path)
	if err != nil {
		return err
	}

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := catalog.Apply(context.Background(), a.store, seed)
	if err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}

	a.logger.Info("seed applied", "file", path,
		"categories", res.Categories, "suppliers", res.Suppliers, "items", res.Items)
	fmt.Printf("Seeded %d categories, %d suppliers, %d items\n", res.Categories, res.Suppliers, res.Items)
	return nil
}

package commands

import (
	"fmt"
	"log/slog"

	"mintfigures/internal/accumulator"
	"mintfigures/internal/series"
	"mintfigures/internal/totals"

	"github.com/spf13/cobra"
)

const totalsKey = "american-innovation-totals"

func init() {
	rootCmd.AddCommand(totalsCmd)
}

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Derives the American Innovation dollar totals from the cumulative sales dataset.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath := cfg.outputPath(series.CumulativeSalesKey)
		records, err := accumulator.Load(inputPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", inputPath, err)
		}
		if records.Len() == 0 {
			return fmt.Errorf("%s has no items, run `mintfigures sales` first", inputPath)
		}

		dataset := totals.Derive(records, tel)
		outputPath := cfg.outputPath(totalsKey)
		err = totals.Save(outputPath, dataset)
		if err != nil {
			return fmt.Errorf("write %s: %w", outputPath, err)
		}
		slog.Info("wrote totals", "path", outputPath, "years", len(dataset.Years()))
		return nil
	},
}

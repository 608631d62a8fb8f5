package commands

import (
	"fmt"

	"mintfigures/internal/series"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(salesCmd)
}

var salesCmd = &cobra.Command{
	Use:   "sales [year]",
	Short: "Merges the cumulative sales reports into the cumulative sales dataset.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := yearArg(args, cfg.StartYear)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer cache.Close()

		deny, denyPath, err := loadDenyList(series.CumulativeSalesKey)
		if err != nil {
			return err
		}
		index, err := client.SalesIndex(ctx)
		if err != nil {
			return fmt.Errorf("sales index: %w", err)
		}

		periods, report := series.CumulativePeriods(index, deny, cfg.ExtrapolateDays, clock.Now())
		return itemsRun{
			source:   series.NewCumulativeSales(client),
			periods:  series.InYear(periods, year),
			report:   report,
			deny:     deny,
			denyPath: denyPath,
		}.run(ctx, cache)
	},
}

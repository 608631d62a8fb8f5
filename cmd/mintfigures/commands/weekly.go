package commands

import (
	"fmt"

	"mintfigures/internal/series"

	"github.com/spf13/cobra"
)

const report_weekly_missing_year = "weekly.missing-year"

func init() {
	rootCmd.AddCommand(weeklyCmd)
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly [year]",
	Short: "Merges the legacy weekly sales tables into the weekly sales dataset.",
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

		deny, denyPath, err := loadDenyList(series.WeeklySalesKey)
		if err != nil {
			return err
		}
		index, err := client.SalesIndex(ctx)
		if err != nil {
			return fmt.Errorf("sales index: %w", err)
		}

		var years []int
		if year != 0 {
			years = append(years, year)
		}
		periods, report, missing := series.WeeklyPeriods(index, deny, years...)
		for _, y := range missing {
			tel.ReportWarning(report_weekly_missing_year, fmt.Errorf("the index has no weeks for %d", y))
		}

		return itemsRun{
			source:   series.NewWeeklySales(client),
			periods:  periods,
			report:   report,
			deny:     deny,
			denyPath: denyPath,
		}.run(ctx, cache)
	},
}

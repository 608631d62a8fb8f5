package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"
	"mintfigures/internal/scrapers/usmint"
	"mintfigures/internal/series"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listEvery bool

func init() {
	periodsCmd.Flags().BoolVar(&listEvery, "all", false, "List every period instead of a summary per series.")
	rootCmd.AddCommand(periodsCmd)
}

// listing is the periods of one cache series.
type listing struct {
	series  string
	periods []period.Period
	report  period.Report
}

var periodsSeries = []string{series.CumulativeSalesKey, series.WeeklySalesKey, series.ProductionKey}

var periodsCmd = &cobra.Command{
	Use:       "periods [cumulative-sales|weekly-sales|circulating-coins-production]",
	Short:     "Lists the periods upstream has for each series and whether they are cached.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: periodsSeries,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wanted := periodsSeries
		if len(args) == 1 {
			wanted = args
		}

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer cache.Close()

		listings, err := listPeriods(ctx, client, wanted)
		if err != nil {
			return err
		}

		t := newTable()
		if listEvery {
			t.AppendHeader(table.Row{"Series", "Period", "Token", "Fetched"})
		} else {
			t.AppendHeader(table.Row{"Series", "Periods", "First", "Last", "Cached", "Denied", "Malformed"})
		}
		for _, l := range listings {
			if listEvery {
				for _, p := range l.periods {
					fetched, err := fetchedColumn(ctx, cache, l.series, p)
					if err != nil {
						return err
					}
					t.AppendRow(table.Row{l.series, p.Key(), p.Token, fetched})
				}
				continue
			}

			cached := 0
			for _, p := range l.periods {
				exists, err := cache.Exists(ctx, l.series, p)
				if err != nil {
					return fmt.Errorf("check cache: %w", err)
				}
				if exists {
					cached++
				}
			}

			first, last := "", ""
			if len(l.periods) > 0 {
				first = l.periods[0].Key()
				last = l.periods[len(l.periods)-1].Key()
			}
			t.AppendRow(table.Row{l.series, len(l.periods), first, last, cached, len(l.report.Denied), len(l.report.Malformed)})
		}
		t.Render()
		return nil
	},
}

// fetchedColumn is when the period's report was cached, empty if it is not.
func fetchedColumn(ctx context.Context, cache reportcache.Cache, name string, p period.Period) (string, error) {
	fetchedAt, err := cache.FetchedAt(ctx, name, p)
	if errors.Is(err, reportcache.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("check cache: %w", err)
	}
	return fetchedAt.Local().Format(time.DateTime), nil
}

func listPeriods(ctx context.Context, client *usmint.Client, wanted []string) ([]listing, error) {
	var out []listing

	if slices.Contains(wanted, series.CumulativeSalesKey) || slices.Contains(wanted, series.WeeklySalesKey) {
		index, err := client.SalesIndex(ctx)
		if err != nil {
			return nil, fmt.Errorf("sales index: %w", err)
		}

		if slices.Contains(wanted, series.CumulativeSalesKey) {
			deny, _, err := loadDenyList(series.CumulativeSalesKey)
			if err != nil {
				return nil, err
			}
			periods, report := series.CumulativePeriods(index, deny, cfg.ExtrapolateDays, clock.Now())
			out = append(out, listing{series: series.CumulativeSalesKey, periods: periods, report: report})
		}
		if slices.Contains(wanted, series.WeeklySalesKey) {
			deny, _, err := loadDenyList(series.WeeklySalesKey)
			if err != nil {
				return nil, err
			}
			periods, report, _ := series.WeeklyPeriods(index, deny)
			out = append(out, listing{series: series.WeeklySalesKey, periods: periods, report: report})
		}
	}

	if slices.Contains(wanted, series.ProductionKey) {
		names, err := client.ProductionManifest(ctx)
		if err != nil {
			return nil, fmt.Errorf("production manifest: %w", err)
		}
		grouped, report := series.ProductionPeriods(names, tel)
		for i, g := range grouped {
			l := listing{
				series:  series.NewProduction(client, g.Program, clock).Series(),
				periods: g.Periods,
			}
			// the manifest is parsed once, its rejections go on the first row
			if i == 0 {
				l.report = report
			}
			out = append(out, l)
		}
	}

	return out, nil
}

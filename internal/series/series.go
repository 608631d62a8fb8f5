// Package series binds each upstream report series to the pipeline: where its
// periods come from, how a period is fetched and how a cached payload is decoded.
package series

import (
	"context"

	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"
	"mintfigures/internal/scrapers/usmint"
)

const (
	CumulativeSalesKey = "cumulative-sales"
	WeeklySalesKey     = "weekly-sales"
	ProductionKey      = "circulating-coins-production"
)

// Fetcher is the part of the usmint client the series need.
type Fetcher interface {
	SalesIndex(ctx context.Context) (usmint.SalesIndex, error)
	SalesReport(ctx context.Context, p period.Period) (reportcache.Payload, error)
	WeeklyReport(ctx context.Context, p period.Period) (reportcache.Payload, error)
	ProductionManifest(ctx context.Context) ([]string, error)
	ProductionReport(ctx context.Context, programID string, year int) (reportcache.Payload, error)
}

var _ Fetcher = (*usmint.Client)(nil)

// InYear keeps the periods that fall in year, or all of them when year is 0.
func InYear(periods []period.Period, year int) []period.Period {
	if year == 0 {
		return periods
	}
	var out []period.Period
	for _, p := range periods {
		if p.Year == year {
			out = append(out, p)
		}
	}
	return out
}

package series

import (
	"context"
	"time"

	"mintfigures/internal/components/assert"
	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"
	"mintfigures/internal/scrapers/usmint"
)

// CumulativeSales is the JSON cumulative sales series, one report per date.
type CumulativeSales struct {
	fetcher Fetcher
}

func NewCumulativeSales(fetcher Fetcher) CumulativeSales {
	assert.NotNil(fetcher)
	return CumulativeSales{fetcher: fetcher}
}

func (CumulativeSales) Series() string {
	return CumulativeSalesKey
}

func (s CumulativeSales) Fetch(ctx context.Context, p period.Period) (reportcache.Payload, error) {
	return s.fetcher.SalesReport(ctx, p)
}

func (CumulativeSales) Decode(payload reportcache.Payload) ([]normalize.RawRow, error) {
	return normalize.DecodeJSON(payload.Body)
}

// Open is always false, a published sales report never changes.
func (CumulativeSales) Open(period.Period) bool {
	return false
}

// CumulativePeriods lists the dates of the dropdown index, followed by dates
// synthesized every extrapolateDays after the last one up to now, minus the
// deny-list.
func CumulativePeriods(index usmint.SalesIndex, deny *period.DenyList, extrapolateDays int, now time.Time) ([]period.Period, period.Report) {
	return period.Enumerate(
		deny,
		func(e *period.Enumerator) { e.AddDropdown(index.Dropdown) },
		func(e *period.Enumerator) { e.Extrapolate(extrapolateDays, now) },
	)
}

package series

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"mintfigures/internal/components/assert"
	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"
	"mintfigures/internal/scrapers/usmint"
	"mintfigures/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// weeklyColumns are the legacy table's columns in order, the table has no usable
// header row so cells are keyed by position.
var weeklyColumns = []string{
	"Program Name",
	"Item",
	"Item Description",
	"Adj. Net Demand",
	"Date Sales Report is Valid",
}

// WeeklySales is the legacy HTML sales series, one table per (year, week option).
type WeeklySales struct {
	fetcher Fetcher
}

func NewWeeklySales(fetcher Fetcher) WeeklySales {
	assert.NotNil(fetcher)
	return WeeklySales{fetcher: fetcher}
}

func (WeeklySales) Series() string {
	return WeeklySalesKey
}

func (s WeeklySales) Fetch(ctx context.Context, p period.Period) (reportcache.Payload, error) {
	return s.fetcher.WeeklyReport(ctx, p)
}

func (WeeklySales) Decode(payload reportcache.Payload) ([]normalize.RawRow, error) {
	if payload.Format != reportcache.FormatHTML {
		return nil, fmt.Errorf("weekly report is %s, not html", payload.Format)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Body))
	if err != nil {
		return nil, fmt.Errorf("parse weekly report: %w", err)
	}
	table, ok := htmlutil.ParseTable(doc.Selection)
	if !ok {
		return nil, fmt.Errorf("weekly report: %w", usmint.ErrStructureMissing)
	}
	return normalize.FromTable(weeklyColumns, table), nil
}

func (WeeklySales) Open(period.Period) bool {
	return false
}

// WeeklyPeriods lists the week options of the given years, or of every year the
// index has when years is empty. Requested years the index does not list are
// returned as missing.
func WeeklyPeriods(index usmint.SalesIndex, deny *period.DenyList, years ...int) (periods []period.Period, report period.Report, missing []int) {
	if len(years) == 0 {
		for year := range index.Weeks {
			years = append(years, year)
		}
	}
	years = slices.Clone(years)
	slices.Sort(years)

	e := period.NewEnumerator()
	for _, year := range years {
		tokens, ok := index.Weeks[year]
		if !ok {
			missing = append(missing, year)
			continue
		}
		e.AddOptions(year, tokens)
	}
	periods, report = e.Finish(deny)
	return periods, report, missing
}

package commands

import (
	"fmt"
	"os"

	"mintfigures/internal/period"
	"mintfigures/internal/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	report_enumerate_malformed    = "enumerate.malformed"
	report_enumerate_duplicate    = "enumerate.duplicate"
	report_enumerate_stale_denied = "enumerate.stale-deny-entry"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// reportEnumeration reports what the enumerator dropped, denied periods are
// printed at the end of the run instead.
func reportEnumeration(series string, report period.Report) {
	for _, rejected := range report.Malformed {
		tel.ReportWarning(report_enumerate_malformed, rejected.Err, series, rejected.Source, rejected.Value)
	}
	for _, key := range report.Duplicates {
		tel.ReportWarning(report_enumerate_duplicate, fmt.Errorf("period %s listed twice", key), series)
	}
	for _, key := range report.StaleDenied {
		tel.ReportWarning(report_enumerate_stale_denied, fmt.Errorf("%s is denied but no longer listed", key), series)
	}
}

func printSummary(series string, result pipeline.Result, items int) {
	t := newTable()
	t.SetTitle(series)
	t.AppendHeader(table.Row{"Processed", "Cache hits", "Fetched", "Rows", "Skipped", "Mismatched", "Items"})
	t.AppendRow(table.Row{
		result.Processed,
		result.CacheHits,
		result.Fetched,
		result.Rows,
		len(result.Skipped),
		len(result.Mismatched),
		items,
	})
	t.Render()

	if len(result.Skipped) > 0 {
		skipped := newTable()
		skipped.SetTitle("Skipped periods")
		skipped.AppendHeader(table.Row{"Period", "Reason"})
		for _, skip := range result.Skipped {
			skipped.AppendRow(table.Row{skip.Period.Key(), skip.Err.Error()})
		}
		skipped.Render()
	}
}

// printDenied lists the periods that were skipped because of the deny-list and
// the ones this run found to be mismatched.
func printDenied(report period.Report, mismatched []pipeline.Mismatch) {
	if len(report.Denied) > 0 {
		t := newTable()
		t.SetTitle("Previously denied")
		t.AppendHeader(table.Row{"Period"})
		for _, key := range report.Denied {
			t.AppendRow(table.Row{key})
		}
		t.Render()
	}

	if len(mismatched) > 0 {
		t := newTable()
		t.SetTitle("Report date mismatches")
		t.AppendHeader(table.Row{"Marked", "Actual"})
		for _, m := range mismatched {
			t.AppendRow(table.Row{longDate(m.Period.Start()), longDate(m.Reported)})
		}
		t.Render()
	}
}

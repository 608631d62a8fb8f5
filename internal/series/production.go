package series

import (
	"context"
	"fmt"
	"regexp"

	"mintfigures/internal/components/assert"
	"mintfigures/internal/components/chrono"
	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/internal/production"
	"mintfigures/internal/reportcache"
)

const report_series_unknown_program = "series.unknown-program"

// manifestPattern matches the circulating coin files of the production manifest,
// other files belong to series this module does not track.
var manifestPattern = regexp.MustCompile(`^CIRC-(?P<program>\w+)-(?P<key>[^.]+)\.csv$`)

// Production is the circulating coin production series of one program, one
// report per year.
type Production struct {
	fetcher Fetcher
	program production.Program
	time    chrono.TimeAPI
}

func NewProduction(fetcher Fetcher, program production.Program, time chrono.TimeAPI) Production {
	assert.NotNil(fetcher)
	assert.NotNil(time)
	return Production{fetcher: fetcher, program: program, time: time}
}

func (s Production) Series() string {
	return ProductionKey + "/" + s.program.Name
}

func (s Production) Fetch(ctx context.Context, p period.Period) (reportcache.Payload, error) {
	return s.fetcher.ProductionReport(ctx, s.program.ID, p.Year)
}

func (Production) Decode(payload reportcache.Payload) ([]normalize.RawRow, error) {
	return normalize.DecodeJSON(payload.Body)
}

// Open reports whether p is the current year (or later), whose figures are
// still being published.
func (s Production) Open(p period.Period) bool {
	return p.Year >= s.time.Now().Year()
}

// ProgramPeriods are the years the manifest lists for one program.
type ProgramPeriods struct {
	Program production.Program
	Periods []period.Period
}

// ProductionPeriods groups the manifest's circulating coin files by program.
// Every known program is listed, in table order, even when the manifest has no
// years for it. Programs the table does not know are appended after them.
func ProductionPeriods(names []string, tel telemetry.API) ([]ProgramPeriods, period.Report) {
	assert.NotNil(tel)

	entries, report := period.ParseManifest(names, manifestPattern)

	var order []production.Program
	enumerators := map[string]*period.Enumerator{}
	for _, program := range production.Programs {
		order = append(order, program)
		enumerators[program.ID] = period.NewEnumerator()
	}

	for _, entry := range entries {
		if entry.Period.Kind != period.KindYear {
			report.Malformed = append(report.Malformed, period.Rejected{
				Source: "manifest",
				Value:  entry.Name,
				Err:    fmt.Errorf("%w: production files are per year", period.ErrMalformedKey),
			})
			continue
		}

		program, ok := production.ProgramByID(entry.Program)
		if !ok {
			program = production.Program{ID: entry.Program, Name: entry.Program}
		}
		e, ok := enumerators[program.ID]
		if !ok {
			tel.ReportWarning(report_series_unknown_program, fmt.Errorf("manifest lists unknown program %q", entry.Program), entry.Name)
			e = period.NewEnumerator()
			enumerators[program.ID] = e
			order = append(order, program)
		}
		e.Add(entry.Period)
	}

	out := make([]ProgramPeriods, 0, len(order))
	for _, program := range order {
		periods, programReport := enumerators[program.ID].Finish(nil)
		report.Merge(programReport)
		out = append(out, ProgramPeriods{Program: program, Periods: periods})
	}
	return out, report
}

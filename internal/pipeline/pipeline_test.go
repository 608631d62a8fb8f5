package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"
	"mintfigures/internal/scrapers/usmint"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	bodies  map[string]string
	errs    map[string]error
	open    map[string]bool
	fetched []string
	onFetch func(p period.Period)
}

func (f *fakeSource) Series() string { return "fake" }

func (f *fakeSource) Open(p period.Period) bool { return f.open[p.Key()] }

func (f *fakeSource) Fetch(_ context.Context, p period.Period) (reportcache.Payload, error) {
	f.fetched = append(f.fetched, p.Key())
	if f.onFetch != nil {
		f.onFetch(p)
	}
	if err := f.errs[p.Key()]; err != nil {
		return reportcache.Payload{}, err
	}
	body, ok := f.bodies[p.Key()]
	if !ok {
		return reportcache.Payload{}, fmt.Errorf("no report for %s", p.Key())
	}
	return reportcache.Payload{Format: reportcache.FormatJSON, Body: []byte(body)}, nil
}

func (f *fakeSource) Decode(payload reportcache.Payload) ([]normalize.RawRow, error) {
	return normalize.DecodeJSON(payload.Body)
}

func salesBody(date, quantity string) string {
	return fmt.Sprintf(
		`[{"Program Name": "Proof", "Item": "20RA", "Item Description": "2020 Proof Set", "Adj. Net Demand": "%s", "Date Sales Report is Valid": "%s"}]`,
		quantity, date,
	)
}

type collected struct {
	keys       []string
	quantities []int64
}

func (c *collected) sink(p period.Period, rows []normalize.CanonicalRow) error {
	c.keys = append(c.keys, p.Key())
	for _, row := range rows {
		c.quantities = append(c.quantities, row.Quantity)
	}
	return nil
}

func setup(t *testing.T) (*Runner, reportcache.Cache, *telemetry.Recorder) {
	t.Helper()
	tel := telemetry.NewRecorder()
	cache := reportcache.NewFS(t.TempDir())
	runner := NewRunner(cache, normalize.New(tel), tel, Options{MaxStructuralFailures: 2})
	return runner, cache, tel
}

func TestRunFetchesAndCaches(t *testing.T) {
	runner, cache, _ := setup(t)
	source := &fakeSource{bodies: map[string]string{
		"2020-06-19": salesBody("6/19/2020", "10"),
		"2020-06-26": salesBody("6/26/2020", "12"),
	}}
	periods := []period.Period{period.Date(2020, 6, 19), period.Date(2020, 6, 26)}

	var out collected
	checkpoints := 0
	result, err := runner.Run(context.Background(), Job{
		Source:     source,
		Periods:    periods,
		Sink:       out.sink,
		Checkpoint: func() error { checkpoints++; return nil },
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, 2, result.Fetched)
	require.Equal(t, 0, result.CacheHits)
	require.Equal(t, 2, result.Rows)
	require.Equal(t, 2, checkpoints)
	require.Equal(t, []string{"2020-06-19", "2020-06-26"}, out.keys)
	require.Equal(t, []int64{10, 12}, out.quantities)

	exists, err := cache.Exists(context.Background(), "fake", periods[0])
	require.NoError(t, err)
	require.True(t, exists)

	// a second run is served entirely from the cache
	source.fetched = nil
	var again collected
	result, err = runner.Run(context.Background(), Job{Source: source, Periods: periods, Sink: again.sink})
	require.NoError(t, err)
	require.Empty(t, source.fetched)
	require.Equal(t, 2, result.CacheHits)
	require.Equal(t, out, again)
}

func TestRunOpenPeriodBypassesCache(t *testing.T) {
	runner, cache, _ := setup(t)
	p := period.Year(2024)
	err := cache.Write(context.Background(), "fake", p, reportcache.Payload{
		Format: reportcache.FormatJSON,
		Body:   []byte(`[{"Program Name": "Proof", "Item": "X", "Item Description": "Old", "Adj. Net Demand": "1"}]`),
	})
	require.NoError(t, err)

	source := &fakeSource{
		bodies: map[string]string{"2024": `[{"Program Name": "Proof", "Item": "X", "Item Description": "Old", "Adj. Net Demand": "5"}]`},
		open:   map[string]bool{"2024": true},
	}
	var out collected
	result, err := runner.Run(context.Background(), Job{Source: source, Periods: []period.Period{p}, Sink: out.sink})
	require.NoError(t, err)
	require.Equal(t, []string{"2024"}, source.fetched)
	require.Equal(t, 1, result.Fetched)
	require.Equal(t, []int64{5}, out.quantities)

	payload, err := cache.Read(context.Background(), "fake", p)
	require.NoError(t, err)
	require.Contains(t, string(payload.Body), `"5"`)
}

func TestRunSkipsMismatchedReport(t *testing.T) {
	runner, cache, tel := setup(t)
	mismatched := period.Date(2020, 6, 19)
	lateByOne := period.Date(2020, 6, 26)
	source := &fakeSource{bodies: map[string]string{
		"2020-06-19": salesBody("6/12/2020", "10"),
		"2020-06-26": salesBody("6/27/2020", "12"),
	}}

	var out collected
	result, err := runner.Run(context.Background(), Job{
		Source:  source,
		Periods: []period.Period{mismatched, lateByOne},
		Sink:    out.sink,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2020-06-26"}, out.keys)
	require.Len(t, result.Mismatched, 1)
	require.Equal(t, "2020-06-19", result.Mismatched[0].Period.Key())
	require.Equal(t, "2020-06-12", result.Mismatched[0].Reported.Format("2006-01-02"))
	require.Len(t, result.Skipped, 1)
	require.Len(t, tel.WarningsWith(report_runner_mismatch), 1)

	exists, err := cache.Exists(context.Background(), "fake", mismatched)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRunSkipsFailedPeriods(t *testing.T) {
	runner, _, tel := setup(t)
	source := &fakeSource{
		bodies: map[string]string{"2020-06-26": salesBody("6/26/2020", "12")},
		errs:   map[string]error{"2020-06-19": usmint.ErrEmptyReport},
	}

	var out collected
	result, err := runner.Run(context.Background(), Job{
		Source:  source,
		Periods: []period.Period{period.Date(2020, 6, 19), period.Date(2020, 6, 26)},
		Sink:    out.sink,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2020-06-26"}, out.keys)
	require.Len(t, result.Skipped, 1)
	require.ErrorIs(t, result.Skipped[0].Err, usmint.ErrEmptyReport)
	require.Len(t, tel.WarningsWith(report_runner_fetch), 1)
}

func TestRunAbortsAfterStructuralFailures(t *testing.T) {
	runner, _, tel := setup(t)
	structural := fmt.Errorf("weekly report: %w", usmint.ErrStructureMissing)
	source := &fakeSource{
		bodies: map[string]string{
			"2020-06-05": salesBody("6/5/2020", "1"),
			"2020-06-26": salesBody("6/26/2020", "4"),
		},
		errs: map[string]error{
			"2020-06-12": structural,
			"2020-06-19": structural,
		},
	}
	periods := []period.Period{
		period.Date(2020, 6, 5),
		period.Date(2020, 6, 12),
		period.Date(2020, 6, 19),
		period.Date(2020, 6, 26),
	}

	var out collected
	result, err := runner.Run(context.Background(), Job{Source: source, Periods: periods, Sink: out.sink})
	require.ErrorIs(t, err, ErrAborted)
	require.True(t, result.Aborted)
	require.Equal(t, []string{"2020-06-05"}, out.keys)
	require.Len(t, tel.BrokenWith(report_runner_aborted), 1)

	// an aborted runner refuses further work
	_, err = runner.Run(context.Background(), Job{Source: source, Periods: periods[3:], Sink: out.sink})
	require.ErrorIs(t, err, ErrAborted)
	require.Equal(t, []string{"2020-06-05"}, out.keys)
}

func TestRunStructuralCounterResets(t *testing.T) {
	runner, _, _ := setup(t)
	structural := usmint.ErrStructureMissing
	source := &fakeSource{
		bodies: map[string]string{"2020-06-12": salesBody("6/12/2020", "1")},
		errs: map[string]error{
			"2020-06-05": structural,
			"2020-06-19": structural,
		},
	}

	result, err := runner.Run(context.Background(), Job{
		Source: source,
		Periods: []period.Period{
			period.Date(2020, 6, 5),
			period.Date(2020, 6, 12),
			period.Date(2020, 6, 19),
		},
		Sink: (&collected{}).sink,
	})
	require.NoError(t, err)
	require.False(t, result.Aborted)
	require.Equal(t, 1, result.Processed)
	require.Len(t, result.Skipped, 2)
}

func TestRunCancelled(t *testing.T) {
	runner, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	source := &fakeSource{
		bodies: map[string]string{
			"2020-06-19": salesBody("6/19/2020", "10"),
			"2020-06-26": salesBody("6/26/2020", "12"),
		},
		onFetch: func(period.Period) { cancel() },
	}

	var out collected
	result, err := runner.Run(ctx, Job{
		Source:  source,
		Periods: []period.Period{period.Date(2020, 6, 19), period.Date(2020, 6, 26)},
		Sink:    out.sink,
	})
	require.ErrorIs(t, err, ErrAborted)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, result.Aborted)
	require.Equal(t, []string{"2020-06-19"}, source.fetched)
}

func TestRunSinkError(t *testing.T) {
	runner, _, _ := setup(t)
	source := &fakeSource{bodies: map[string]string{"2020-06-19": salesBody("6/19/2020", "10")}}
	failure := errors.New("disk full")

	_, err := runner.Run(context.Background(), Job{
		Source:  source,
		Periods: []period.Period{period.Date(2020, 6, 19)},
		Sink:    func(period.Period, []normalize.CanonicalRow) error { return failure },
	})
	require.ErrorIs(t, err, failure)
	require.NotErrorIs(t, err, ErrAborted)
}

func TestResultAdd(t *testing.T) {
	a := Result{Processed: 1, Rows: 3, Skipped: []Skip{{Period: period.Year(2020)}}}
	b := Result{Processed: 2, CacheHits: 2, Rows: 1, Aborted: true}
	a.Add(b)

	expected := Result{Processed: 3, CacheHits: 2, Rows: 4, Skipped: []Skip{{Period: period.Year(2020)}}, Aborted: true}
	if diff := cmp.Diff(expected, a); diff != "" {
		t.Fatal(diff)
	}
}

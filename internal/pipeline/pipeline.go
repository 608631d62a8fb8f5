// Package pipeline runs the period by period loop shared by every series: consult
// the cache, fetch and validate on a miss, normalize and hand the rows to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mintfigures/internal/components/assert"
	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"
	"mintfigures/internal/scrapers/usmint"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_runner_cache_read  = "runner.cache-read"
	report_runner_cache_write = "runner.cache-write"
	report_runner_fetch       = "runner.fetch"
	report_runner_decode      = "runner.decode"
	report_runner_mismatch    = "runner.mismatch"
	report_runner_aborted     = "runner.aborted"
	report_runner_periods     = "runner.periods"
)

// ErrAborted is returned when a run stops before its last period, either after
// too many consecutive structural failures or because its context was cancelled.
var ErrAborted = errors.New("run aborted")

// errMismatch marks a fetched report whose own date disagrees with the period.
var errMismatch = errors.New("report date does not match period")

var tracer = otel.Tracer("mintfigures/internal/pipeline")

// Source is one series as the runner sees it.
type Source interface {
	// Series is the cache namespace of the source.
	Series() string
	Fetch(ctx context.Context, p period.Period) (reportcache.Payload, error)
	Decode(payload reportcache.Payload) ([]normalize.RawRow, error)
	// Open reports whether upstream may still change the report of p, open
	// periods bypass the cache and their fresh payload replaces the cached one.
	Open(p period.Period) bool
}

// Sink receives the canonical rows of each processed period, in period order.
type Sink func(p period.Period, rows []normalize.CanonicalRow) error

type Job struct {
	Source  Source
	Periods []period.Period
	// Program is handed to the normalizer for production reports.
	Program string
	Sink    Sink
	// Checkpoint, when set, is called after every period that reached the sink.
	Checkpoint func() error
}

type Options struct {
	// MaxStructuralFailures is how many periods in a row may be missing their
	// expected structure before the run is aborted.
	MaxStructuralFailures int
}

// Skip is a period that was not processed.
type Skip struct {
	Period period.Period
	Err    error
}

// Mismatch is a fetched report that claims to be for a different date.
type Mismatch struct {
	Period   period.Period
	Reported time.Time
}

type Result struct {
	Processed  int
	CacheHits  int
	Fetched    int
	Rows       int
	Skipped    []Skip
	Mismatched []Mismatch
	Aborted    bool
}

// Add folds the counts of other into r.
func (r *Result) Add(other Result) {
	r.Processed += other.Processed
	r.CacheHits += other.CacheHits
	r.Fetched += other.Fetched
	r.Rows += other.Rows
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Mismatched = append(r.Mismatched, other.Mismatched...)
	r.Aborted = r.Aborted || other.Aborted
}

// Runner processes jobs strictly one period at a time. Consecutive structural
// failures are counted across jobs, once a runner has aborted every later job is
// aborted immediately.
type Runner struct {
	cache      reportcache.Cache
	normalizer normalize.Normalizer
	tel        telemetry.API
	opts       Options

	structuralFailures int
	aborted            bool

	rowsCounter    metric.Int64Counter
	skippedCounter metric.Int64Counter
	hitsCounter    metric.Int64Counter
}

func NewRunner(cache reportcache.Cache, normalizer normalize.Normalizer, tel telemetry.API, opts Options) *Runner {
	assert.NotNil(cache)
	assert.NotNil(tel)
	if opts.MaxStructuralFailures <= 0 {
		opts.MaxStructuralFailures = 3
	}

	tel = telemetry.NewScopedAPI("pipeline", tel)

	meter := otel.Meter("mintfigures/internal/pipeline")
	rowsCounter, err := meter.Int64Counter("rows_merged")
	if err != nil {
		tel.ReportBroken("runner.meter", err)
	}
	skippedCounter, err := meter.Int64Counter("periods_skipped")
	if err != nil {
		tel.ReportBroken("runner.meter", err)
	}
	hitsCounter, err := meter.Int64Counter("cache_hits")
	if err != nil {
		tel.ReportBroken("runner.meter", err)
	}

	return &Runner{
		cache:          cache,
		normalizer:     normalizer,
		tel:            tel,
		opts:           opts,
		rowsCounter:    rowsCounter,
		skippedCounter: skippedCounter,
		hitsCounter:    hitsCounter,
	}
}

// Run processes the job's periods in order. Per row and per period failures are
// recorded in the result and never stop the run. It returns ErrAborted when the
// run stopped early, everything handed to the sink until then stays valid and
// should still be persisted.
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	assert.NotNil(job.Source)
	assert.NotNil(job.Sink)

	var result Result
	series := job.Source.Series()
	r.tel.ReportCount(report_runner_periods, int64(len(job.Periods)))

	for i, p := range job.Periods {
		if r.aborted {
			result.Aborted = true
			return result, ErrAborted
		}
		if err := ctx.Err(); err != nil {
			r.abort(series, p, err)
			result.Aborted = true
			return result, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		r.tel.ReportDebug("processing period", "series", series, "period", p.Key(), "index", fmt.Sprintf("%d/%d", i+1, len(job.Periods)))

		err := r.processPeriod(ctx, job, series, p, &result)
		if errors.Is(err, ErrAborted) {
			result.Aborted = true
			return result, err
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (r *Runner) abort(series string, p period.Period, cause error) {
	r.aborted = true
	r.tel.ReportBroken(report_runner_aborted, fmt.Errorf("%s stopped at %s: %w", series, p.Key(), cause))
}

func (r *Runner) skip(ctx context.Context, result *Result, series string, p period.Period, err error) {
	result.Skipped = append(result.Skipped, Skip{Period: p, Err: err})
	if r.skippedCounter != nil {
		r.skippedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("series", series)))
	}
}

// processPeriod processes one period. Only a sink error or ErrAborted is returned,
// everything else is recorded in result.
func (r *Runner) processPeriod(ctx context.Context, job Job, series string, p period.Period, result *Result) error {
	ctx, span := tracer.Start(ctx, "period")
	defer span.End()
	span.SetAttributes(
		attribute.String("series", series),
		attribute.String("period", p.Key()),
	)

	rows, fresh, payload, err := r.load(ctx, job.Source, series, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load report")

		if errors.Is(err, ErrAborted) {
			return err
		}
		r.skip(ctx, result, series, p, err)
		return nil
	}

	if fresh {
		result.Fetched++
		reported, mismatched := checkReportDate(p, rows)
		if mismatched {
			r.tel.ReportWarning(
				report_runner_mismatch,
				fmt.Errorf("%w: report says %s", errMismatch, reported.Format("2006-01-02")),
				series,
				p.Key(),
			)
			result.Mismatched = append(result.Mismatched, Mismatch{Period: p, Reported: reported})
			r.skip(ctx, result, series, p, errMismatch)
			return nil
		}

		err = r.cache.Write(ctx, series, p, payload)
		if err != nil {
			r.tel.ReportBroken(report_runner_cache_write, err, series, p.Key())
		}
	} else {
		result.CacheHits++
		if r.hitsCounter != nil {
			r.hitsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("series", series)))
		}
	}

	canonical := r.normalizer.Normalize(rows, p, job.Program)
	err = job.Sink(p, canonical)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink failed")
		return fmt.Errorf("%s %s: %w", series, p.Key(), err)
	}
	result.Processed++
	result.Rows += len(canonical)
	if r.rowsCounter != nil {
		r.rowsCounter.Add(ctx, int64(len(canonical)), metric.WithAttributes(attribute.String("series", series)))
	}

	if job.Checkpoint != nil {
		err = job.Checkpoint()
		if err != nil {
			return fmt.Errorf("checkpoint after %s: %w", p.Key(), err)
		}
	}
	return nil
}

// load returns the decoded rows of p, from the cache when possible. fresh is set
// when the payload was fetched and has not been cached yet.
func (r *Runner) load(ctx context.Context, source Source, series string, p period.Period) (rows []normalize.RawRow, fresh bool, payload reportcache.Payload, err error) {
	if !source.Open(p) {
		payload, err = r.cache.Read(ctx, series, p)
		switch {
		case err == nil:
			rows, err = source.Decode(payload)
			if err != nil {
				r.tel.ReportBroken(report_runner_decode, fmt.Errorf("cached report: %w", err), series, p.Key())
				return nil, false, payload, err
			}
			return rows, false, payload, nil
		case !errors.Is(err, reportcache.ErrNotFound):
			r.tel.ReportBroken(report_runner_cache_read, err, series, p.Key())
		}
	}

	payload, err = source.Fetch(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			r.abort(series, p, ctx.Err())
			return nil, false, payload, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		if errors.Is(err, usmint.ErrStructureMissing) {
			r.structuralFailures++
			if r.structuralFailures >= r.opts.MaxStructuralFailures {
				r.abort(series, p, fmt.Errorf("%d consecutive structural failures: %w", r.structuralFailures, err))
				return nil, false, payload, fmt.Errorf("%w: %w", ErrAborted, err)
			}
		}
		r.tel.ReportWarning(report_runner_fetch, err, series, p.Key())
		return nil, false, payload, err
	}
	r.structuralFailures = 0

	rows, err = source.Decode(payload)
	if err != nil {
		r.tel.ReportWarning(report_runner_decode, err, series, p.Key())
		return nil, false, payload, err
	}
	return rows, true, payload, nil
}

// checkReportDate compares the date a fetched report claims to be for with the
// date period it was requested for. Reports more than a day off are mismatched.
func checkReportDate(p period.Period, rows []normalize.RawRow) (time.Time, bool) {
	if p.Kind != period.KindDate {
		return time.Time{}, false
	}
	reported, ok := normalize.ReportDate(rows)
	if !ok {
		return time.Time{}, false
	}
	return reported, period.DaysBetween(reported, p.Start()) > 1
}

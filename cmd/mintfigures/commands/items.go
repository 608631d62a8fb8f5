package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mintfigures/internal/accumulator"
	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/internal/pipeline"
	"mintfigures/internal/reportcache"
)

const report_merge_decrease = "merge.quantity-decrease"

func longDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// itemsRun is one run of an item sales series into its accumulator dataset.
type itemsRun struct {
	source   pipeline.Source
	periods  []period.Period
	report   period.Report
	deny     *period.DenyList
	denyPath string
}

func loadDenyList(series string) (*period.DenyList, string, error) {
	path := cfg.denyListPath(series)
	deny, err := period.LoadDenyList(path)
	if err != nil {
		return nil, "", fmt.Errorf("load deny-list: %w", err)
	}
	deny.Merge(period.NewDenyList(cfg.DenyList...))
	return deny, path, nil
}

// run merges every period into the dataset and writes it, also when the run
// stops early. Mismatched periods are added to the deny-list.
func (r itemsRun) run(ctx context.Context, cache reportcache.Cache) error {
	series := r.source.Series()
	reportEnumeration(series, r.report)

	datasetPath := cfg.outputPath(series)
	records, err := accumulator.Load(datasetPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", datasetPath, err)
	}

	runner := pipeline.NewRunner(cache, normalize.New(tel), tel, pipeline.Options{
		MaxStructuralFailures: cfg.MaxStructuralFailures,
	})

	job := pipeline.Job{
		Source:  r.source,
		Periods: r.periods,
		Sink: func(p period.Period, rows []normalize.CanonicalRow) error {
			var anomalies []accumulator.Anomaly
			records, anomalies = accumulator.Merge(records, rows)
			for _, anomaly := range anomalies {
				tel.ReportWarning(report_merge_decrease, errors.New(anomaly.String()), series)
			}
			return nil
		},
	}
	if cfg.Checkpoint {
		job.Checkpoint = func() error {
			return accumulator.Save(datasetPath, records)
		}
	}

	slog.Info("processing periods", "series", series, "count", len(r.periods))
	result, runErr := runner.Run(ctx, job)

	err = accumulator.Save(datasetPath, records)
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("write %s: %w", datasetPath, err))
	}

	added := false
	for _, m := range result.Mismatched {
		if m.Period.Synthetic {
			continue
		}
		if r.deny.Add(m.Period.Key()) {
			added = true
		}
	}
	if added {
		err = r.deny.Save(r.denyPath)
		if err != nil {
			return errors.Join(runErr, fmt.Errorf("write deny-list: %w", err))
		}
	}

	printSummary(series, result, records.Len())
	printDenied(r.report, result.Mismatched)
	return runErr
}

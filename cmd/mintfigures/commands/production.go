package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/internal/pipeline"
	"mintfigures/internal/production"
	"mintfigures/internal/series"

	"github.com/spf13/cobra"
)

const firstProductionYear = 1999

func init() {
	rootCmd.AddCommand(productionCmd)
}

var productionCmd = &cobra.Command{
	Use:   "production [year]",
	Short: "Builds the circulating coin production dataset.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := yearArg(args, firstProductionYear)
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

		names, err := client.ProductionManifest(ctx)
		if err != nil {
			return fmt.Errorf("production manifest: %w", err)
		}
		grouped, report := series.ProductionPeriods(names, tel)
		reportEnumeration(series.ProductionKey, report)

		// a single year is folded into the existing dataset, a full run starts over
		datasetPath := cfg.outputPath(series.ProductionKey)
		dataset := production.New()
		if year != 0 {
			dataset, err = production.Load(datasetPath)
			if err != nil {
				return fmt.Errorf("load %s: %w", datasetPath, err)
			}
		}

		normalizer := normalize.New(tel)
		runner := pipeline.NewRunner(cache, normalizer, tel, pipeline.Options{
			MaxStructuralFailures: cfg.MaxStructuralFailures,
		})

		save := func() error {
			return production.Save(datasetPath, dataset)
		}

		var total pipeline.Result
		var runErr error
		for _, g := range grouped {
			program := g.Program
			dataset.StartProgram(program.Name)

			slog.Info("processing program", "program", program.Name, "years", len(g.Periods))
			job := pipeline.Job{
				Source:  series.NewProduction(client, program, clock),
				Periods: series.InYear(g.Periods, year),
				Program: program.Name,
				Sink: func(p period.Period, rows []normalize.CanonicalRow) error {
					dataset.Add(program.Name, p, rows)
					return nil
				},
			}
			if cfg.Checkpoint {
				job.Checkpoint = save
			}

			result, err := runner.Run(ctx, job)
			total.Add(result)
			if err != nil {
				runErr = err
				break
			}
		}

		dataset.Finalize()
		err = save()
		if err != nil {
			return errors.Join(runErr, fmt.Errorf("write %s: %w", datasetPath, err))
		}

		printSummary(series.ProductionKey, total, len(dataset.Programs()))
		return runErr
	},
}

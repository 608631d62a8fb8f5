package commands

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"mintfigures/internal/components/chrono"
	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/reportcache"
	"mintfigures/internal/scrapers/usmint"
	"mintfigures/lib/configutil"
	"mintfigures/lib/serviceutil"

	"github.com/spf13/cobra"
)

const report_telemetry_shutdown = "telemetry.shutdown"

var (
	configPath string
	verbose    bool
	dumpDir    string

	cfg       Config
	tel       telemetry.API  = telemetry.SlogAPI{}
	clock     chrono.TimeAPI = chrono.NewStandardTime()
	providers telemetry.Telemetry
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mintfigures.json5", "The config file, a <name>.local.json5 next to it overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-http", "", "Write every upstream request and response to this directory.")
}

var rootCmd = &cobra.Command{
	Use:           "mintfigures",
	Short:         "mintfigures scrapes the U.S. Mint's sales and production reports into JSON datasets.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		cfg, err = configutil.ReadConfigWithDefaults(configPath, defaultConfig())
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		providers, err = telemetry.Setup(cmd.Context(), "mintfigures", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		if providers.MetricsEnabled() {
			telemetry.InstrumentPerfStats(cmd.Context(), tel)
		}
		return nil
	},
}

// ExecuteContext runs the command line, telemetry is flushed whether or not the
// command failed.
func ExecuteContext(ctx context.Context) {
	err := execute(ctx)
	if err != nil {
		serviceutil.Fatal("mintfigures failed", err)
	}
}

func execute(ctx context.Context) error {
	defer shutdownTelemetry()
	return rootCmd.ExecuteContext(ctx)
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := providers.Shutdown(ctx)
	if err != nil {
		tel.ReportBroken(report_telemetry_shutdown, err)
	}
	providers = telemetry.Telemetry{}
}

var yearRegex = regexp.MustCompile(`^\d{4}$`)

// yearArg reads the optional year argument, 0 means every year. A year must be
// four digits between earliest and the current year.
func yearArg(args []string, earliest int) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	if !yearRegex.MatchString(args[0]) {
		return 0, fmt.Errorf("invalid year %q: expected 4 digits", args[0])
	}
	year, _ := strconv.Atoi(args[0])
	current := clock.Now().Year()
	if year < earliest || year > current {
		return 0, fmt.Errorf("invalid year %d: must be between %d and %d", year, earliest, current)
	}
	return year, nil
}

func newClient(ctx context.Context) (*usmint.Client, error) {
	client, err := usmint.NewClient(usmint.Options{
		BaseUrl:      cfg.BaseUrl,
		RequestDelay: cfg.requestDelay(),
		Timeout:      cfg.timeout(),
		DumpDir:      dumpDir,
	}, tel)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	err = client.Prime(ctx)
	if err != nil {
		return nil, fmt.Errorf("prime session: %w", err)
	}
	return client, nil
}

func openCache(ctx context.Context) (reportcache.Cache, error) {
	cache, err := reportcache.Open(ctx, cfg.Cache, clock)
	if err != nil {
		return nil, fmt.Errorf("open report cache: %w", err)
	}
	return cache, nil
}

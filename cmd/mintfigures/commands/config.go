package commands

import (
	"path/filepath"
	"time"

	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/reportcache"
)

type Config struct {
	BaseUrl               string             `json:"base_url"`
	StartYear             int                `json:"start_year"`
	RequestDelayMs        int                `json:"request_delay_ms"`
	TimeoutSeconds        int                `json:"timeout_seconds"`
	OutputDir             string             `json:"output_dir"`
	MaxStructuralFailures int                `json:"max_structural_failures"`
	ExtrapolateDays       int                `json:"extrapolate_days"`
	Checkpoint            bool               `json:"checkpoint"`
	DenyList              []string           `json:"deny_list"`
	Cache                 reportcache.Config `json:"cache"`
	Telemetry             telemetry.Config   `json:"telemetry"`
}

func defaultConfig() Config {
	return Config{
		BaseUrl:               "https://www.usmint.gov",
		StartYear:             2015,
		RequestDelayMs:        250,
		TimeoutSeconds:        30,
		OutputDir:             "lists",
		MaxStructuralFailures: 3,
		ExtrapolateDays:       7,
		Cache: reportcache.Config{
			Driver: "fs",
			Dir:    "saved-reports",
		},
	}
}

func (c Config) requestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) outputPath(series string) string {
	return filepath.Join(c.OutputDir, series+".json")
}

// denyListPath is kept next to the series' cached reports even when the cache
// itself lives in a database.
func (c Config) denyListPath(series string) string {
	return filepath.Join(c.Cache.Dir, series, "ignored-dates-with-invalid-data.json")
}

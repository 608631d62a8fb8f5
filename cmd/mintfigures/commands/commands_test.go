package commands

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mintfigures/internal/accumulator"
	"mintfigures/internal/components/chrono"
	"mintfigures/internal/period"
	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/pipeline"
	"mintfigures/internal/production"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestYearArg(t *testing.T) {
	clock = chrono.Fixed(time.Date(2024, 5, 1, 0, 0, 0, 0, chrono.Eastern()))
	t.Cleanup(func() { clock = chrono.NewStandardTime() })

	testCases := []struct {
		args     []string
		expected int
		fails    bool
	}{
		{args: nil, expected: 0},
		{args: []string{"2020"}, expected: 2020},
		{args: []string{"2015"}, expected: 2015},
		{args: []string{"2024"}, expected: 2024},
		{args: []string{"2014"}, fails: true},
		{args: []string{"2025"}, fails: true},
		{args: []string{"20"}, fails: true},
		{args: []string{"02020"}, fails: true},
		{args: []string{"20x0"}, fails: true},
	}
	for _, test := range testCases {
		t.Run(fmt.Sprint(test.args), func(t *testing.T) {
			year, err := yearArg(test.args, 2015)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, year)
		})
	}
}

func TestConfigPaths(t *testing.T) {
	c := defaultConfig()
	require.Equal(t, filepath.Join("lists", "cumulative-sales.json"), c.outputPath("cumulative-sales"))
	require.Equal(t,
		filepath.Join("saved-reports", "cumulative-sales", "ignored-dates-with-invalid-data.json"),
		c.denyListPath("cumulative-sales"),
	)
	require.Equal(t, 250*time.Millisecond, c.requestDelay())
}

func salesRow(date, quantity string) string {
	return fmt.Sprintf(
		`[{"Program Name": "Proof", "Item": "20RA", "Item Description": "2020 Proof Set", "Adj. Net Demand": "%s", "Date Sales Report is Valid": "%s"}]`,
		quantity, date,
	)
}

func fakeMint() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/libs/granite/csrf/token.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token": ""}`)
	})
	mux.HandleFunc("/about/production-sales-figures/cumulative-sales", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div data-tabletype="cumulative" data-dropdownitems="{&#34;2020&#34;:{&#34;June&#34;:[&#34;19&#34;,&#34;26&#34;]}}"></div>`)
	})
	mux.HandleFunc("/content/usmint/us/en/about/production-sales-figures/cumulative-sales/jcr:content/root/container/productionsalesdata.dropdowns.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("date") {
		case "2020-06-19":
			fmt.Fprint(w, salesRow("6/19/2020", "1,000"))
		case "2020-06-26":
			fmt.Fprint(w, salesRow("6/12/2020", "900"))
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

// writeConfig writes a config pointing at server with every output under dir.
func writeConfig(t *testing.T, dir, serverUrl string) string {
	configFile := filepath.Join(dir, "mintfigures.json5")
	config := fmt.Sprintf(`{
		// test config
		base_url: %q,
		request_delay_ms: 1,
		max_structural_failures: 1,
		output_dir: %q,
		cache: { dir: %q },
	}`, serverUrl, filepath.Join(dir, "lists"), filepath.Join(dir, "saved-reports"))
	require.NoError(t, os.WriteFile(configFile, []byte(config), 0644))
	return configFile
}

func TestSalesAndTotals(t *testing.T) {
	server := httptest.NewServer(fakeMint())
	t.Cleanup(server.Close)

	clock = chrono.Fixed(time.Date(2020, 6, 30, 12, 0, 0, 0, chrono.Eastern()))
	t.Cleanup(func() { clock = chrono.NewStandardTime() })

	dir := t.TempDir()
	configFile := writeConfig(t, dir, server.URL)

	rootCmd.SetArgs([]string{"--config", configFile, "sales"})
	require.NoError(t, execute(context.Background()))

	records, err := accumulator.Load(filepath.Join(dir, "lists", "cumulative-sales.json"))
	require.NoError(t, err)
	record, ok := records.Get("2020 Proof Set")
	require.True(t, ok)
	require.Equal(t, int64(1000), record.Quantity)
	require.Equal(t, "2020-06-19", record.Latest.Key())

	deny, err := period.LoadDenyList(filepath.Join(dir, "saved-reports", "cumulative-sales", "ignored-dates-with-invalid-data.json"))
	require.NoError(t, err)
	require.Equal(t, []string{"2020-06-26"}, deny.Keys())

	_, err = os.Stat(filepath.Join(dir, "saved-reports", "cumulative-sales", "2020", "6", "19.json"))
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"--config", configFile, "totals"})
	require.NoError(t, execute(context.Background()))
	_, err = os.Stat(filepath.Join(dir, "lists", "american-innovation-totals.json"))
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"--config", configFile, "sales", "1999"})
	require.Error(t, execute(context.Background()))
}

// productionMint serves a manifest for three programs, CIRC reports are
// garbage until fixed is set.
type productionMint struct {
	mu        sync.Mutex
	fixed     bool
	requested []string
}

func (m *productionMint) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/libs/granite/csrf/token.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token": ""}`)
	})
	mux.HandleFunc("/content/dam/usmint/csv_data.1.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"CIRC-ATBQ-2014.csv": {}, "CIRC-ATBQ-2015.csv": {}, "CIRC-CIRC-2019.csv": {}, "CIRC-WJNS-2005.csv": {}}`)
	})
	mux.HandleFunc("/bin/usmint/psd", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		program := r.URL.Query().Get("program")
		year := r.URL.Query().Get("year")
		m.requested = append(m.requested, program+"-"+year)

		switch program + "-" + year {
		case "ATBQ-2014":
			fmt.Fprint(w, `[{"Design": "Great Smoky Mountains", "Philadelphia": "73.2", "Denver": "99.4"}]`)
		case "ATBQ-2015":
			fmt.Fprint(w, `[{"Design": "Homestead", "Philadelphia": "21.6", "Denver": "20.4"}]`)
		case "CIRC-2019":
			if !m.fixed {
				fmt.Fprint(w, `<html>Access denied</html>`)
				return
			}
			fmt.Fprint(w, `[{"": "Philadelphia", "1 Cent": "1", "5 Cent": "2"}]`)
		case "WJNS-2005":
			fmt.Fprint(w, `[{"Design": "Bison", "Philadelphia": "448.32", "Denver": "487.68"}]`)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func (m *productionMint) takeRequested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.requested
	m.requested = nil
	return out
}

func TestProduction(t *testing.T) {
	mint := &productionMint{}
	server := httptest.NewServer(mint.handler())
	t.Cleanup(server.Close)

	clock = chrono.Fixed(time.Date(2020, 6, 30, 12, 0, 0, 0, chrono.Eastern()))
	t.Cleanup(func() { clock = chrono.NewStandardTime() })

	dir := t.TempDir()
	configFile := writeConfig(t, dir, server.URL)
	datasetPath := filepath.Join(dir, "lists", "circulating-coins-production.json")

	// CIRC aborts the run, WJNS is never reached but ATBQ is still written
	rootCmd.SetArgs([]string{"--config", configFile, "production"})
	err := execute(context.Background())
	require.ErrorIs(t, err, pipeline.ErrAborted)
	require.Equal(t, []string{"ATBQ-2014", "ATBQ-2015", "CIRC-2019"}, mint.takeRequested())

	dataset, err := production.Load(datasetPath)
	require.NoError(t, err)
	q, ok := dataset.Value("America the Beautiful Quarters", "2014", "Great Smoky Mountains", "Denver")
	require.True(t, ok)
	require.Equal(t, int64(99_400_000), q)
	require.NotContains(t, dataset.Programs(), "Westward Journey Nickel Series")
	circ, ok := dataset.Year("Circulating Coins", "2019")
	require.False(t, ok)
	require.Nil(t, circ)

	// a single year is folded into the existing dataset, 2014 comes from the file
	mint.mu.Lock()
	mint.fixed = true
	mint.mu.Unlock()
	rootCmd.SetArgs([]string{"--config", configFile, "production", "2015"})
	require.NoError(t, execute(context.Background()))
	require.Empty(t, mint.takeRequested())

	dataset, err = production.Load(datasetPath)
	require.NoError(t, err)
	_, ok = dataset.Value("America the Beautiful Quarters", "2014", "Great Smoky Mountains", "Denver")
	require.True(t, ok)
	q, ok = dataset.Value("America the Beautiful Quarters", "2015", "Homestead", "Philadelphia")
	require.True(t, ok)
	require.Equal(t, int64(21_600_000), q)

	// a full run starts over and fetches only what is not cached
	rootCmd.SetArgs([]string{"--config", configFile, "production"})
	require.NoError(t, execute(context.Background()))
	require.Equal(t, []string{"CIRC-2019", "WJNS-2005"}, mint.takeRequested())

	dataset, err = production.Load(datasetPath)
	require.NoError(t, err)
	q, ok = dataset.Value("Circulating Coins", "2019", "Philadelphia", "Nickel")
	require.True(t, ok)
	require.Equal(t, int64(2_000_000), q)
	q, ok = dataset.Value("Westward Journey Nickel Series", "2005", "Bison", "Denver")
	require.True(t, ok)
	require.Equal(t, int64(487_680_000), q)

	t.Cleanup(func() { listEvery = false })
	rootCmd.SetArgs([]string{"--config", configFile, "periods", "--all", "circulating-coins-production"})
	require.NoError(t, execute(context.Background()))
	require.Empty(t, mint.takeRequested())
}

type shutdownProcessor struct {
	shutdown bool
}

func (p *shutdownProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *shutdownProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (p *shutdownProcessor) ForceFlush(context.Context) error {
	return nil
}

func (p *shutdownProcessor) Shutdown(context.Context) error {
	p.shutdown = true
	return nil
}

func TestTelemetryFlushedOnFailure(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "mintfigures.json5")
	require.NoError(t, os.WriteFile(configFile, []byte("{ base_url: "), 0644))

	processor := &shutdownProcessor{}
	providers = telemetry.Telemetry{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(processor)),
	}

	rootCmd.SetArgs([]string{"--config", configFile, "totals"})
	require.Error(t, execute(context.Background()))
	require.True(t, processor.shutdown)
	require.Nil(t, providers.TracerProvider)
}

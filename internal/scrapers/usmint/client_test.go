package usmint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"

	"github.com/stretchr/testify/require"
)

const salesIndexPage = `<html><body>
<div class="sales" data-tabletype="cumulative" data-dropdownitems="{&#34;2020&#34;:{&#34;June&#34;:[&#34;19&#34;,26]}}"></div>
<select id="2017weeks"><option value="">Select</option><option value="1">Week 1</option><option value="2">Week 2</option></select>
<select id="2018weeks"><option value="2018-01-05">Jan 5</option></select>
<select id="yearweeks"><option value="9">x</option></select>
</body></html>`

const weeklyReportPage = `<html><body><h1>Sales</h1>
<table class="data"><thead><tr><th>Program</th></tr></thead><tbody><tr><td>Proof Sets</td></tr></tbody></table>
</body></html>`

type fakeMint struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (f *fakeMint) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(csrfTokenPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "primed", Path: "/"})
		fmt.Fprint(w, `{"token": ""}`)
	})
	mux.HandleFunc(cumulativeSalesPath, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("years") {
		case "":
			fmt.Fprint(w, salesIndexPage)
		case "2017":
			if r.URL.Query().Get("2017weeks") == "1" {
				fmt.Fprint(w, weeklyReportPage)
				return
			}
			fmt.Fprint(w, `<html><body>Access denied</body></html>`)
		}
	})
	mux.HandleFunc(salesReportPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "2020-06-26" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"Item": "19AB", "Date Sales Report is Valid": "6/19/2020"}]`)
	})
	mux.HandleFunc(productionManifestPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"CIRC-ATBQ-2011.csv": {}, "CIRC-ATBQ-2010.csv": {}, "NUMIS-2010.csv": {}}`)
	})
	mux.HandleFunc(productionReportPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("program") == "MISSING" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[{"Design": "Total"}]`)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeMint) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func setup(t *testing.T, delay time.Duration) (*Client, *fakeMint, *telemetry.Recorder) {
	fake := &fakeMint{}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	tel := telemetry.NewRecorder()
	client, err := NewClient(Options{BaseUrl: server.URL, RequestDelay: delay, Timeout: time.Second * 5}, tel)
	require.NoError(t, err)
	return client, fake, tel
}

func TestPrimeKeepsCookies(t *testing.T) {
	client, fake, _ := setup(t, 0)
	ctx := context.Background()

	require.NoError(t, client.Prime(ctx))
	_, err := client.SalesReport(ctx, period.Date(2020, 6, 19))
	require.NoError(t, err)

	cookie, err := fake.last().Cookie("session")
	require.NoError(t, err)
	require.Equal(t, "primed", cookie.Value)
}

func TestSalesIndex(t *testing.T) {
	client, _, _ := setup(t, 0)

	index, err := client.SalesIndex(context.Background())
	require.NoError(t, err)
	require.Equal(t, period.Dropdown{"2020": {"June": {"19", "26"}}}, index.Dropdown)
	require.Equal(t, map[int][]string{
		2017: {"", "1", "2"},
		2018: {"2018-01-05"},
	}, index.Weeks)

	_, err = ParseSalesIndex([]byte(`<html><body>maintenance</body></html>`))
	require.True(t, errors.Is(err, ErrStructureMissing))
}

func TestSalesReport(t *testing.T) {
	client, fake, tel := setup(t, 0)
	ctx := context.Background()

	payload, err := client.SalesReport(ctx, period.Date(2020, 6, 19))
	require.NoError(t, err)
	require.Equal(t, reportcache.FormatJSON, payload.Format)

	query := fake.last().URL.Query()
	require.Equal(t, "2020", query.Get("firstDropdown"))
	require.Equal(t, "June", query.Get("secondDropdown"))
	require.Equal(t, "2020-06-19", query.Get("date"))

	_, err = client.SalesReport(ctx, period.Date(2020, 6, 26))
	require.True(t, errors.Is(err, ErrEmptyReport))
	require.Len(t, tel.WarningsWith(report_client_sales_report), 1)
}

func TestWeeklyReport(t *testing.T) {
	client, fake, _ := setup(t, 0)
	ctx := context.Background()

	payload, err := client.WeeklyReport(ctx, period.Week(2017, 1, "1"))
	require.NoError(t, err)
	require.Equal(t, reportcache.FormatHTML, payload.Format)
	require.Contains(t, string(payload.Body), "<td>Proof Sets</td>")
	require.NotContains(t, string(payload.Body), "<h1>")
	require.Equal(t, "1", fake.last().URL.Query().Get("2017weeks"))

	_, err = client.WeeklyReport(ctx, period.Week(2017, 2, "2"))
	require.True(t, errors.Is(err, ErrStructureMissing))
}

func TestProduction(t *testing.T) {
	client, fake, tel := setup(t, 0)
	ctx := context.Background()

	names, err := client.ProductionManifest(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"CIRC-ATBQ-2011.csv", "CIRC-ATBQ-2010.csv", "NUMIS-2010.csv"}, names)

	payload, err := client.ProductionReport(ctx, "ATBQ", 2011)
	require.NoError(t, err)
	require.JSONEq(t, `[{"Design": "Total"}]`, string(payload.Body))
	query := fake.last().URL.Query()
	require.Equal(t, productionDataPath, query.Get("path"))
	require.Equal(t, "ATBQ", query.Get("program"))
	require.Equal(t, "2011", query.Get("year"))

	_, err = client.ProductionReport(ctx, "MISSING", 2011)
	require.Error(t, err)
	require.Len(t, tel.WarningsWith(report_client_production_report), 1)
}

func TestRequestDelay(t *testing.T) {
	client, _, _ := setup(t, 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.SalesReport(ctx, period.Date(2020, 6, 19))
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestDumpDir(t *testing.T) {
	fake := &fakeMint{}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	dir := filepath.Join(t.TempDir(), "http")
	client, err := NewClient(Options{BaseUrl: server.URL, DumpDir: dir}, telemetry.NewRecorder())
	require.NoError(t, err)
	require.NoError(t, client.Prime(context.Background()))

	dump, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(dump), "GET "+server.URL+csrfTokenPath)
	require.Contains(t, string(dump), `{"token": ""}`)
}

// Package usmint fetches report indexes and reports from the U.S. Mint website.
// It only knows how to reach things, interpreting report rows is left to the
// normalize package.
package usmint

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"mintfigures/internal/components/assert"
	"mintfigures/internal/components/telemetry"
	"mintfigures/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const (
	report_client_prime               = "client.prime"
	report_client_sales_index         = "client.sales-index"
	report_client_sales_report        = "client.sales-report"
	report_client_weekly_report       = "client.weekly-report"
	report_client_production_manifest = "client.production-manifest"
	report_client_production_report   = "client.production-report"
)

// ErrStructureMissing is returned when a response does not contain the table or
// data structure it should. Several of these in a row usually means upstream has
// started blocking requests.
var ErrStructureMissing = errors.New("expected structure missing from response")

// ErrEmptyReport is returned for a well formed report without any rows.
var ErrEmptyReport = errors.New("report has no rows")

const (
	csrfTokenPath          = "/libs/granite/csrf/token.json"
	cumulativeSalesPath    = "/about/production-sales-figures/cumulative-sales"
	salesReportPath        = "/content/usmint/us/en/about/production-sales-figures/cumulative-sales/jcr:content/root/container/productionsalesdata.dropdowns.json"
	productionManifestPath = "/content/dam/usmint/csv_data.1.json"
	productionReportPath   = "/bin/usmint/psd"
	productionDataPath     = "/content/dam/usmint/csv_data"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl   string
	UserAgent string
	// RequestDelay is the minimum time between two requests, zero disables it.
	RequestDelay time.Duration
	Timeout      time.Duration
	// DumpDir, when set, receives every request and response as a text file.
	DumpDir string
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tel telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmpty("base url", opts.BaseUrl)

	tel = telemetry.NewScopedAPI("usmint", tel)

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	httpClient.SetTimeout(timeout)

	// burst of 1 so consecutive requests are always spaced out
	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}
	rateLimiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	var output restyutil.Output
	if opts.DumpDir != "" {
		dir, err := restyutil.NewDirOutput(opts.DumpDir)
		if err != nil {
			return nil, err
		}
		output = dir
	}
	restyutil.InstrumentClient(httpClient, otel.Tracer("mintfigures/internal/scrapers/usmint"), output)

	c := &Client{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		tel:     tel,
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, id, endpoint string, query map[string]string) ([]byte, error) {
	c.tel.ReportDebug(id, endpoint, query)

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(endpoint)
	if err != nil {
		c.tel.ReportBroken(id, fmt.Errorf("fetch: %w", err), endpoint)
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("%s: unexpected status %s", endpoint, res.Status())
		c.tel.ReportWarning(id, err)
		return nil, err
	}
	return res.Body(), nil
}

// Prime requests a CSRF token, which leaves upstream's session cookies in the
// client's cookie jar. Report endpoints refuse requests without them.
func (c *Client) Prime(ctx context.Context) error {
	_, err := c.get(ctx, report_client_prime, csrfTokenPath, nil)
	if err != nil {
		return fmt.Errorf("usmint: prime session: %w", err)
	}
	return nil
}

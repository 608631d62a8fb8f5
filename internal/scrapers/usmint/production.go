package usmint

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"mintfigures/internal/reportcache"
	"mintfigures/lib/jsonutil"
)

// ProductionManifest returns the file names listed by the production data
// manifest, in the order upstream lists them.
func (c *Client) ProductionManifest(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, report_client_production_manifest, productionManifestPath, nil)
	if err != nil {
		return nil, err
	}
	var manifest jsonutil.OrderedMap[json.RawMessage]
	err = json.Unmarshal(body, &manifest)
	if err != nil {
		err = fmt.Errorf("production manifest: %w: %v", ErrStructureMissing, err)
		c.tel.ReportBroken(report_client_production_manifest, err)
		return nil, err
	}
	return manifest.Keys(), nil
}

// ProductionReport fetches the production report of a program for a year.
func (c *Client) ProductionReport(ctx context.Context, programID string, year int) (reportcache.Payload, error) {
	body, err := c.get(ctx, report_client_production_report, productionReportPath, map[string]string{
		"path":    productionDataPath,
		"program": programID,
		"year":    strconv.Itoa(year),
	})
	if err != nil {
		return reportcache.Payload{}, err
	}
	err = checkRows(body)
	if err != nil {
		c.tel.ReportWarning(report_client_production_report, err, programID, year)
		return reportcache.Payload{}, err
	}
	return reportcache.Payload{Format: reportcache.FormatJSON, Body: body}, nil
}

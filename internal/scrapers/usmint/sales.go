package usmint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mintfigures/internal/period"
	"mintfigures/internal/reportcache"
	"mintfigures/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// SalesIndex is what the cumulative sales page lists as available.
type SalesIndex struct {
	// Dropdown is the index of the JSON cumulative sales reports.
	Dropdown period.Dropdown
	// Weeks holds the option values of each year's legacy week <select>.
	Weeks map[int][]string
}

// SalesIndex fetches and parses the cumulative sales page.
func (c *Client) SalesIndex(ctx context.Context) (SalesIndex, error) {
	body, err := c.get(ctx, report_client_sales_index, cumulativeSalesPath, nil)
	if err != nil {
		return SalesIndex{}, err
	}
	index, err := ParseSalesIndex(body)
	if err != nil {
		c.tel.ReportBroken(report_client_sales_index, err)
		return SalesIndex{}, err
	}
	return index, nil
}

// ParseSalesIndex reads the dropdown index, stored as html escaped JSON in the
// data-dropdownitems attribute, and the legacy <select id="<year>weeks"> options.
// Either may be missing but not both.
func ParseSalesIndex(body []byte) (SalesIndex, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return SalesIndex{}, fmt.Errorf("parse sales index: %w", err)
	}

	index := SalesIndex{Weeks: map[int][]string{}}

	attr, ok := doc.Find(`[data-tabletype="cumulative"]`).First().Attr("data-dropdownitems")
	if ok {
		index.Dropdown, err = decodeDropdown(attr)
		if err != nil {
			return SalesIndex{}, fmt.Errorf("decode dropdown items: %w", err)
		}
	}

	doc.Find(`select[id$="weeks"]`).Each(func(_ int, sel *goquery.Selection) {
		id := sel.AttrOr("id", "")
		year, err := strconv.Atoi(id[:len(id)-len("weeks")])
		if err != nil {
			return
		}
		index.Weeks[year] = htmlutil.OptionValues(sel)
	})

	if index.Dropdown == nil && len(index.Weeks) == 0 {
		return SalesIndex{}, fmt.Errorf("sales index: %w", ErrStructureMissing)
	}
	return index, nil
}

// decodeDropdown accepts days written either as strings or as numbers.
func decodeDropdown(attr string) (period.Dropdown, error) {
	dec := json.NewDecoder(strings.NewReader(attr))
	dec.UseNumber()
	var raw map[string]map[string][]any
	err := dec.Decode(&raw)
	if err != nil {
		return nil, err
	}

	out := period.Dropdown{}
	for year, months := range raw {
		out[year] = map[string][]string{}
		for month, days := range months {
			for _, day := range days {
				out[year][month] = append(out[year][month], fmt.Sprint(day))
			}
		}
	}
	return out, nil
}

// SalesReport fetches the JSON cumulative sales report of a date period.
func (c *Client) SalesReport(ctx context.Context, p period.Period) (reportcache.Payload, error) {
	body, err := c.get(ctx, report_client_sales_report, salesReportPath, map[string]string{
		"firstDropdown":  strconv.Itoa(p.Year),
		"secondDropdown": p.MonthName(),
		"date":           p.Key(),
	})
	if err != nil {
		return reportcache.Payload{}, err
	}
	err = checkRows(body)
	if err != nil {
		c.tel.ReportWarning(report_client_sales_report, err, p.Key())
		return reportcache.Payload{}, err
	}
	return reportcache.Payload{Format: reportcache.FormatJSON, Body: body}, nil
}

// WeeklyReport fetches a legacy weekly report and returns just its table.
func (c *Client) WeeklyReport(ctx context.Context, p period.Period) (reportcache.Payload, error) {
	token := p.Token
	if token == "" {
		token = strconv.Itoa(p.Week)
	}
	year := strconv.Itoa(p.Year)

	body, err := c.get(ctx, report_client_weekly_report, cumulativeSalesPath, map[string]string{
		"years":        year,
		year + "weeks": token,
	})
	if err != nil {
		return reportcache.Payload{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		c.tel.ReportBroken(report_client_weekly_report, fmt.Errorf("parse: %w", err), p.Key())
		return reportcache.Payload{}, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 || table.Find("tbody").Length() == 0 {
		err := fmt.Errorf("weekly report %s: %w", p.Key(), ErrStructureMissing)
		c.tel.ReportWarning(report_client_weekly_report, err)
		return reportcache.Payload{}, err
	}
	html, err := goquery.OuterHtml(table)
	if err != nil {
		c.tel.ReportBroken(report_client_weekly_report, fmt.Errorf("serialize table: %w", err), p.Key())
		return reportcache.Payload{}, err
	}
	return reportcache.Payload{Format: reportcache.FormatHTML, Body: []byte(html)}, nil
}

// checkRows makes sure a JSON report body is a non empty array of objects.
func checkRows(body []byte) error {
	var rows []json.RawMessage
	err := json.Unmarshal(body, &rows)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStructureMissing, err)
	}
	if len(rows) == 0 {
		return ErrEmptyReport
	}
	return nil
}

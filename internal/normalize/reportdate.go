package normalize

import (
	"strings"
	"time"
)

var reportDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ReportDate returns the date a sales report says it is valid for, taken from the
// first row. ok is false when the report does not say or the date cannot be read.
func ReportDate(rows []RawRow) (time.Time, bool) {
	if len(rows) == 0 {
		return time.Time{}, false
	}
	value, found := rows[0].First(colSalesValidDate, colSalesReportDate)
	if !found {
		return time.Time{}, false
	}
	return ParseReportDate(value)
}

// ParseReportDate reads a date in any of the formats upstream has used.
func ParseReportDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range reportDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Package totals derives per year, region and mint totals for the American
// Innovation dollar rolls and bags from the cumulative sales records.
package totals

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mintfigures/internal/accumulator"
	"mintfigures/internal/components/assert"
	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/period"
	"mintfigures/lib/jsonutil"
)

const report_totals_unmatched_name = "totals.unmatched-name"

const (
	program    = "Rolls & Bags & Boxes"
	namePrefix = "AI $1"
)

var itemNameRegex = regexp.MustCompile(`(\d{4}) AI \$1 (25|100)-COIN (?:ROLL|BAG|)(?: - ([A-Z]{2}))? \((P|D)\)`)

// Bucket is the coin total for one (year, [region], mint).
type Bucket struct {
	Total   int64 `json:"total"`
	SoldOut bool  `json:"soldOut"`

	latest []period.Period
}

// entry is either a mint bucket or a region holding mint buckets.
type entry struct {
	bucket *Bucket
	region *jsonutil.OrderedMap[*Bucket]
}

func (e *entry) MarshalJSON() ([]byte, error) {
	if e.bucket != nil {
		return json.Marshal(e.bucket)
	}
	return e.region.MarshalJSON()
}

// Dataset is year -> mint -> bucket for items without a region and
// year -> region -> mint -> bucket for items with one.
type Dataset struct {
	years *jsonutil.OrderedMap[*jsonutil.OrderedMap[*entry]]
}

// Years returns the years in ascending order.
func (d Dataset) Years() []string {
	return d.years.Keys()
}

// Bucket looks up a bucket, region is empty for items without one.
func (d Dataset) Bucket(year, region, mint string) (Bucket, bool) {
	entries, ok := d.years.Get(year)
	if !ok {
		return Bucket{}, false
	}
	if region == "" {
		e, ok := entries.Get(mint)
		if !ok || e.bucket == nil {
			return Bucket{}, false
		}
		return *e.bucket, true
	}
	e, ok := entries.Get(region)
	if !ok || e.region == nil {
		return Bucket{}, false
	}
	b, ok := e.region.Get(mint)
	if !ok {
		return Bucket{}, false
	}
	return *b, true
}

func (d Dataset) MarshalJSON() ([]byte, error) {
	if d.years == nil {
		return []byte("{}"), nil
	}
	return d.years.MarshalJSON()
}

// Derive buckets every American Innovation roll or bag record. A bucket is sold
// out when all of its records were last seen before the most recent period of
// the whole map.
func Derive(records accumulator.Map, tel telemetry.API) Dataset {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("totals", tel)

	years := map[string]*jsonutil.OrderedMap[*entry]{}
	var buckets []*Bucket

	for _, name := range records.Names() {
		record, _ := records.Get(name)
		if record.Program != program || !strings.Contains(name, namePrefix) {
			continue
		}
		groups := itemNameRegex.FindStringSubmatch(name)
		if groups == nil {
			tel.ReportWarning(report_totals_unmatched_name, fmt.Errorf("unrecognized item name %q", name))
			continue
		}
		year, amount, code, mintMark := groups[1], groups[2], groups[3], groups[4]
		perUnit, _ := strconv.ParseInt(amount, 10, 64)
		mint := mintNames[mintMark]

		entries, ok := years[year]
		if !ok {
			entries = jsonutil.NewOrderedMap[*entry]()
			years[year] = entries
		}

		var b *Bucket
		if code == "" {
			e, ok := entries.Get(mint)
			if !ok {
				e = &entry{bucket: &Bucket{}}
				entries.Set(mint, e)
				buckets = append(buckets, e.bucket)
			}
			b = e.bucket
		} else {
			region, ok := regionNames[code]
			if !ok {
				region = code
			}
			e, ok := entries.Get(region)
			if !ok {
				e = &entry{region: jsonutil.NewOrderedMap[*Bucket]()}
				entries.Set(region, e)
			}
			b, ok = e.region.Get(mint)
			if !ok {
				b = &Bucket{}
				e.region.Set(mint, b)
				buckets = append(buckets, b)
			}
		}
		b.Total += record.Quantity * perUnit
		b.latest = append(b.latest, record.Latest)
	}

	newest, _ := records.MaxLatest()
	for _, b := range buckets {
		b.SoldOut = true
		for _, p := range b.latest {
			if !p.Before(newest) {
				b.SoldOut = false
				break
			}
		}
	}

	sortedYears := make([]string, 0, len(years))
	for year := range years {
		sortedYears = append(sortedYears, year)
	}
	sort.Strings(sortedYears)

	out := Dataset{years: jsonutil.NewOrderedMap[*jsonutil.OrderedMap[*entry]]()}
	for _, year := range sortedYears {
		out.years.Set(year, years[year])
	}
	return out
}

// Save atomically writes d to path.
func Save(path string, d Dataset) error {
	return jsonutil.WriteFile(path, d)
}

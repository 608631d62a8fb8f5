package period

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Rejected is an index entry that could not be turned into a period.
type Rejected struct {
	Source string
	Value  string
	Err    error
}

func (r Rejected) String() string {
	return fmt.Sprintf("%s: %q: %v", r.Source, r.Value, r.Err)
}

// Report describes everything that was dropped while enumerating, none of it is
// fatal.
type Report struct {
	Malformed  []Rejected
	Duplicates []string
	// Denied are the enumerated keys removed by the deny-list.
	Denied []string
	// StaleDenied are deny-list keys that matched nothing that was enumerated.
	StaleDenied []string
}

// Merge folds other into r.
func (r *Report) Merge(other Report) {
	r.Malformed = append(r.Malformed, other.Malformed...)
	r.Duplicates = append(r.Duplicates, other.Duplicates...)
	r.Denied = append(r.Denied, other.Denied...)
	r.StaleDenied = append(r.StaleDenied, other.StaleDenied...)
}

// Enumerator collects periods from any number of index sources and produces the
// ordered, deduplicated sequence for one series.
type Enumerator struct {
	seen    map[string]struct{}
	periods []Period
	report  Report
}

func NewEnumerator() *Enumerator {
	return &Enumerator{seen: map[string]struct{}{}}
}

// Add appends p unless a period with the same key was already added, in which
// case the key is reported as a duplicate and the first occurrence is kept.
func (e *Enumerator) Add(p Period) bool {
	key := p.Key()
	if _, ok := e.seen[key]; ok {
		e.report.Duplicates = append(e.report.Duplicates, key)
		return false
	}
	e.seen[key] = struct{}{}
	e.periods = append(e.periods, p)
	return true
}

// AddKey parses key with ParseKey and adds the result, source is only used to
// describe the rejection.
func (e *Enumerator) AddKey(source, key string) {
	p, err := ParseKey(key)
	if err != nil {
		e.reject(source, key, err)
		return
	}
	e.Add(p)
}

func (e *Enumerator) reject(source, value string, err error) {
	e.report.Malformed = append(e.report.Malformed, Rejected{Source: source, Value: value, Err: err})
}

var placeholderTokens = []string{"", "0", "select", "select week"}

func isPlaceholder(token string) bool {
	return slices.Contains(placeholderTokens, strings.ToLower(strings.TrimSpace(token)))
}

var weekTokenRegex = regexp.MustCompile(`^\d{1,2}$`)

// AddOptions adds the option values of a year's week <select>. A value is either
// a 1-2 digit week index or a date key, placeholders are skipped.
func (e *Enumerator) AddOptions(year int, tokens []string) {
	source := fmt.Sprintf("%dweeks", year)
	for _, token := range tokens {
		if isPlaceholder(token) {
			continue
		}
		if weekTokenRegex.MatchString(token) {
			week, _ := strconv.Atoi(token)
			if week < 1 || week > 53 {
				e.reject(source, token, fmt.Errorf("%w: week out of range", ErrMalformedKey))
				continue
			}
			e.Add(Week(year, week, token))
			continue
		}
		p, err := ParseKey(token)
		if err != nil || p.Kind != KindDate {
			if err == nil {
				err = fmt.Errorf("%w: not a week or a date", ErrMalformedKey)
			}
			e.reject(source, token, err)
			continue
		}
		p.Token = token
		e.Add(p)
	}
}

// Dropdown is the cumulative sales index: year -> month name -> days of month.
type Dropdown map[string]map[string][]string

// AddDropdown adds one date period per day listed in the index. Years and months
// are visited in sorted order so duplicate handling does not depend on map order.
func (e *Enumerator) AddDropdown(index Dropdown) {
	years := make([]string, 0, len(index))
	for year := range index {
		years = append(years, year)
	}
	sort.Strings(years)

	for _, yearStr := range years {
		months := index[yearStr]
		monthNames := make([]string, 0, len(months))
		for name := range months {
			monthNames = append(monthNames, name)
		}
		sort.Strings(monthNames)

		for _, monthName := range monthNames {
			for _, day := range months[monthName] {
				value := fmt.Sprintf("%s %s, %s", monthName, day, yearStr)
				p, err := parseDropdownEntry(yearStr, monthName, day)
				if err != nil {
					e.reject("dropdown", value, err)
					continue
				}
				e.Add(p)
			}
		}
	}
}

var (
	dropdownYearRegex = regexp.MustCompile(`^\d{4}$`)
	dropdownDayRegex  = regexp.MustCompile(`^\d{1,2}$`)
)

func parseDropdownEntry(yearStr, monthName, dayStr string) (Period, error) {
	yearStr = strings.TrimSpace(yearStr)
	dayStr = strings.TrimSpace(dayStr)
	if !dropdownYearRegex.MatchString(yearStr) {
		return Period{}, fmt.Errorf("%w: bad year", ErrMalformedKey)
	}
	if !dropdownDayRegex.MatchString(dayStr) {
		return Period{}, fmt.Errorf("%w: bad day", ErrMalformedKey)
	}
	month, err := time.Parse("January", strings.TrimSpace(monthName))
	if err != nil {
		return Period{}, fmt.Errorf("%w: bad month: %v", ErrMalformedKey, err)
	}
	year, _ := strconv.Atoi(yearStr)
	day, _ := strconv.Atoi(dayStr)

	// round trip through the key so calendar validation lives in one place
	return ParseKey(Date(year, int(month.Month()), day).Key())
}

// AddAll adds every period in order.
func (e *Enumerator) AddAll(periods []Period) {
	for _, p := range periods {
		e.Add(p)
	}
}

// Latest is the most recent period added so far.
func (e *Enumerator) Latest() (Period, bool) {
	if len(e.periods) == 0 {
		return Period{}, false
	}
	latest := e.periods[0]
	for _, p := range e.periods[1:] {
		if latest.Before(p) {
			latest = p
		}
	}
	return latest, true
}

// Extrapolate adds the periods Extrapolate synthesizes after the latest date
// period added so far, and returns how many were added.
func (e *Enumerator) Extrapolate(everyDays int, now time.Time) int {
	var last Period
	for _, p := range e.periods {
		if p.Kind == KindDate && (last.IsZero() || last.Before(p)) {
			last = p
		}
	}
	if last.IsZero() {
		return 0
	}
	added := 0
	for _, p := range Extrapolate(last, everyDays, now) {
		if e.Add(p) {
			added++
		}
	}
	return added
}

// Finish sorts the collected periods oldest first and removes the ones on the
// deny-list (which may be nil).
func (e *Enumerator) Finish(deny *DenyList) ([]Period, Report) {
	report := e.report
	report.Malformed = slices.Clone(report.Malformed)
	report.Duplicates = slices.Clone(report.Duplicates)

	sorted := slices.Clone(e.periods)
	slices.SortStableFunc(sorted, Period.Compare)

	if deny == nil || deny.Len() == 0 {
		return sorted, report
	}

	matched := map[string]struct{}{}
	out := sorted[:0]
	for _, p := range sorted {
		key := p.Key()
		if deny.Contains(key) {
			matched[key] = struct{}{}
			report.Denied = append(report.Denied, key)
			continue
		}
		out = append(out, p)
	}
	for _, key := range deny.Keys() {
		if _, ok := matched[key]; !ok {
			report.StaleDenied = append(report.StaleDenied, key)
		}
	}
	return out, report
}

// Extrapolate synthesizes date periods every everyDays days after last, stopping
// before the calendar date of now. The results are marked Synthetic.
func Extrapolate(last Period, everyDays int, now time.Time) []Period {
	if everyDays <= 0 || last.Kind != KindDate {
		return nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out []Period
	for t := last.Start().AddDate(0, 0, everyDays); t.Before(today); t = t.AddDate(0, 0, everyDays) {
		p := FromTime(t)
		p.Synthetic = true
		out = append(out, p)
	}
	return out
}

// ManifestEntry is a manifest file name that matched a series pattern.
type ManifestEntry struct {
	Name    string
	Program string
	Period  Period
}

// ParseManifest extracts periods from manifest file names. pattern must have a
// "key" group and may have a "program" group. Names that do not match belong to
// some other series and are ignored, names whose key fails ParseKey are reported
// malformed, and a (program, key) pair seen twice is reported as a duplicate with
// the first occurrence kept.
func ParseManifest(names []string, pattern *regexp.Regexp) ([]ManifestEntry, Report) {
	keyIdx := pattern.SubexpIndex("key")
	if keyIdx < 0 {
		panic(fmt.Sprintf("manifest pattern %q has no key group", pattern.String()))
	}
	programIdx := pattern.SubexpIndex("program")

	var report Report
	var entries []ManifestEntry
	seen := map[string]struct{}{}
	for _, name := range names {
		groups := pattern.FindStringSubmatch(name)
		if groups == nil {
			continue
		}
		p, err := ParseKey(groups[keyIdx])
		if err != nil {
			report.Malformed = append(report.Malformed, Rejected{Source: "manifest", Value: name, Err: err})
			continue
		}
		program := ""
		if programIdx >= 0 {
			program = groups[programIdx]
		}

		id := program + "/" + p.Key()
		if _, ok := seen[id]; ok {
			report.Duplicates = append(report.Duplicates, name)
			continue
		}
		seen[id] = struct{}{}
		entries = append(entries, ManifestEntry{Name: name, Program: program, Period: p})
	}
	return entries, report
}

// Enumerate runs every source through one Enumerator and finishes it against
// deny, it is shorthand for the common case of a series with fixed sources.
func Enumerate(deny *DenyList, sources ...func(e *Enumerator)) ([]Period, Report) {
	e := NewEnumerator()
	for _, source := range sources {
		source(e)
	}
	return e.Finish(deny)
}

// Empty reports whether nothing was dropped.
func (r Report) Empty() bool {
	return len(r.Malformed) == 0 && len(r.Duplicates) == 0 && len(r.Denied) == 0 && len(r.StaleDenied) == 0
}

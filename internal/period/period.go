// Package period models the reporting intervals upstream reports are published for
// and the ways the list of periods for a series is discovered.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedKey is returned (wrapped) by ParseKey for anything that is not a
// canonical period key.
var ErrMalformedKey = errors.New("malformed period key")

type Kind int

const (
	// KindDate is an explicit reporting date, key YYYY-MM-DD.
	KindDate Kind = iota
	// KindWeek is a (year, week index) pair, key YYYY-Wnn.
	KindWeek
	// KindYear is a whole year, key YYYY.
	KindYear
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindWeek:
		return "week"
	case KindYear:
		return "year"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Period is a single reporting interval. Two periods with the same Key are the
// same period, Token and Synthetic only carry how the period was discovered.
type Period struct {
	Kind  Kind
	Year  int
	Month int
	Day   int
	Week  int

	// Token is the upstream value that selects this period (ex. a <select> option
	// value), empty when the key itself is what upstream expects.
	Token string
	// Synthetic is set on periods generated by Extrapolate rather than read from
	// an upstream index.
	Synthetic bool
}

func Date(year, month, day int) Period {
	return Period{Kind: KindDate, Year: year, Month: month, Day: day}
}

func Week(year, week int, token string) Period {
	return Period{Kind: KindWeek, Year: year, Week: week, Token: token}
}

func Year(year int) Period {
	return Period{Kind: KindYear, Year: year}
}

// FromTime returns the date period t falls on, in t's location.
func FromTime(t time.Time) Period {
	return Date(t.Year(), int(t.Month()), t.Day())
}

func (p Period) IsZero() bool {
	return p.Year == 0
}

func (p Period) Key() string {
	switch p.Kind {
	case KindDate:
		return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
	case KindWeek:
		return fmt.Sprintf("%04d-W%02d", p.Year, p.Week)
	default:
		return fmt.Sprintf("%04d", p.Year)
	}
}

func (p Period) String() string {
	return p.Key()
}

// Start is the first calendar day covered by the period, at midnight UTC. Weeks
// are counted in 7 day steps from January 1st.
func (p Period) Start() time.Time {
	switch p.Kind {
	case KindDate:
		return time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
	case KindWeek:
		return time.Date(p.Year, time.January, 1+7*(p.Week-1), 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Compare orders periods by Start, ties are broken by Key so the order is total.
func (p Period) Compare(other Period) int {
	a, b := p.Start(), other.Start()
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return strings.Compare(p.Key(), other.Key())
}

func (p Period) Before(other Period) bool {
	return p.Compare(other) < 0
}

// Canonical drops the discovery details, what is left is fully described by Key.
func (p Period) Canonical() Period {
	p.Token = ""
	p.Synthetic = false
	return p
}

// MonthName is the english month name of a date period, upstream indexes
// cumulative reports by it.
func (p Period) MonthName() string {
	return time.Month(p.Month).String()
}

func (p Period) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("marshal zero period")
	}
	return []byte(p.Key()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

var (
	dateKeyRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	weekKeyRegex = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)
	yearKeyRegex = regexp.MustCompile(`^\d{4}$`)
)

// ParseKey parses a canonical period key. It never coerces: "2020-3-15",
// "2017-11020", "2020-02-30" and keys with surrounding whitespace are all
// rejected with ErrMalformedKey.
func ParseKey(key string) (Period, error) {
	if groups := dateKeyRegex.FindStringSubmatch(key); groups != nil {
		year, _ := strconv.Atoi(groups[1])
		month, _ := strconv.Atoi(groups[2])
		day, _ := strconv.Atoi(groups[3])
		p := Date(year, month, day)
		if year == 0 || !validDate(year, month, day) {
			return Period{}, fmt.Errorf("%w: %q is not a calendar date", ErrMalformedKey, key)
		}
		return p, nil
	}
	if groups := weekKeyRegex.FindStringSubmatch(key); groups != nil {
		year, _ := strconv.Atoi(groups[1])
		week, _ := strconv.Atoi(groups[2])
		if year == 0 || week < 1 || week > 53 {
			return Period{}, fmt.Errorf("%w: %q week out of range", ErrMalformedKey, key)
		}
		return Week(year, week, ""), nil
	}
	if yearKeyRegex.MatchString(key) {
		year, _ := strconv.Atoi(key)
		if year == 0 {
			return Period{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
		}
		return Year(year), nil
	}
	return Period{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// DaysBetween is the absolute number of calendar days between the dates of a and b.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

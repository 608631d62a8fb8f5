package normalize

import "strings"

var denominations = map[string]string{
	"1":        "Penny",
	"5":        "Nickel",
	"10":       "Dime",
	"25":       "Quarter",
	"50":       "Half Dollar",
	"N.A. $1":  "Native American Dollar",
	"Pres. $1": "Presidential Dollar",
}

// knownDenominations is the set of canonical names, in face value order.
var knownDenominations = []string{
	"Penny",
	"Nickel",
	"Dime",
	"Quarter",
	"Half Dollar",
	"Native American Dollar",
	"Presidential Dollar",
}

// alternativeDenominations maps names used by older reports to denomination
// table keys. Order matters: when several match, the last one wins.
var alternativeDenominations = []struct {
	contains string
	key      string
}{
	{"Lincoln", "1"},
	{"Jefferson", "5"},
	{"Roosevelt", "10"},
	{"Quarter", "25"},
	{"Kennedy", "50"},
	{"Native American", "N.A. $1"},
	{"Presidential", "Pres. $1"},
}

// formatDenomination maps a by-mint column header ("1 Cent", "Pres $1", "") to
// its canonical denomination.
func formatDenomination(header string) (string, bool) {
	header = strings.Replace(header, "Cent", "", 1)
	header = strings.Replace(header, "Pres ", "Pres. ", 1)
	header = strings.TrimSpace(header)
	if header == "" {
		header = "1"
	}
	name, ok := denominations[header]
	return name, ok
}

// resolveDenomination maps the label of a by-denomination row.
func resolveDenomination(label string) (string, bool) {
	resolved := ""
	for _, alt := range alternativeDenominations {
		if strings.Contains(label, alt.contains) {
			resolved, _ = formatDenomination(alt.key)
		}
	}
	if resolved != "" {
		return resolved, true
	}
	return formatDenomination(label)
}

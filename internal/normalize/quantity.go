package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// encodingArtifact is left behind upstream where a comma did not survive a
// character set conversion.
const encodingArtifact = "Ω"

// millionsThreshold is the value below which a bare production number is taken to
// be expressed in millions.
const millionsThreshold = 10_000

var decimalRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseMintage parses a production quantity. An "M" suffix means millions, a
// value written with thousands separators is a plain count, and any other value
// below 10,000 is in millions. The result is rounded to a whole coin.
func ParseMintage(value string) (int64, error) {
	s := strings.ReplaceAll(value, encodingArtifact, "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSpace(s)

	millions := false
	if trimmed, ok := strings.CutSuffix(s, "M"); ok {
		s = trimmed
		millions = true
	}
	grouped := strings.Contains(s, ",")
	s = strings.ReplaceAll(s, ",", "")

	if !decimalRegex.MatchString(s) {
		return 0, fmt.Errorf("parse mintage %q: not a number", value)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse mintage %q: %w", value, err)
	}
	if millions || (!grouped && f < millionsThreshold) {
		f *= 1_000_000
	}
	rounded := math.Round(f)
	if rounded > math.MaxInt64 {
		return 0, fmt.Errorf("parse mintage %q: out of range", value)
	}
	return int64(rounded), nil
}

// ParseCount parses an item sales count: thousands separators and the encoding
// artifact are dropped and what is left must be a non-negative integer.
func ParseCount(value string) (int64, error) {
	s := strings.ReplaceAll(value, ",", "")
	s = strings.ReplaceAll(s, encodingArtifact, "")
	s = strings.TrimSpace(s)

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("parse count %q: negative", value)
	}
	return n, nil
}

var (
	unsafeNameChars = regexp.MustCompile(`[^\w $&()+./Š-]`)
	repeatedSpaces  = regexp.MustCompile(` {2,}`)
)

// SanitizeName cleans an item description into the name items are keyed by.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "&amp;", "&")
	name = strings.ReplaceAll(name, "–", "-")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// SanitizeProgram cleans a program name.
func SanitizeProgram(program string) string {
	return strings.TrimSpace(strings.ReplaceAll(program, "&amp;", "&"))
}

var designYearPrefix = regexp.MustCompile(`^\d{4} `)

// normalizeDesign strips a leading year and restores commas lost to the encoding
// artifact.
func normalizeDesign(design string) string {
	design = designYearPrefix.ReplaceAllString(strings.TrimSpace(design), "")
	design = strings.ReplaceAll(design, encodingArtifact, ",")
	return strings.TrimSpace(design)
}

package period

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mintfigures/lib/jsonutil"
)

// DenyList is the set of period keys known to carry invalid upstream data.
type DenyList struct {
	keys map[string]struct{}
}

func NewDenyList(keys ...string) *DenyList {
	d := &DenyList{keys: map[string]struct{}{}}
	for _, k := range keys {
		d.Add(k)
	}
	return d
}

// LoadDenyList reads a JSON array of keys, a missing file is an empty list.
// Entries written as long form dates ("June 19, 2020") are converted to keys.
func LoadDenyList(path string) (*DenyList, error) {
	var keys []string
	_, err := jsonutil.ReadFile(path, &keys)
	if err != nil {
		return nil, fmt.Errorf("load deny-list: %w", err)
	}
	return NewDenyList(keys...), nil
}

// Add inserts key and reports whether it was new.
func (d *DenyList) Add(key string) bool {
	key = normalizeDenyEntry(key)
	if key == "" {
		return false
	}
	if _, ok := d.keys[key]; ok {
		return false
	}
	d.keys[key] = struct{}{}
	return true
}

func (d *DenyList) Contains(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.keys[key]
	return ok
}

func (d *DenyList) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in sorted order.
func (d *DenyList) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.keys))
	for k := range d.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge adds every key of other.
func (d *DenyList) Merge(other *DenyList) {
	for _, k := range other.Keys() {
		d.Add(k)
	}
}

// Save writes the sorted keys as a JSON array.
func (d *DenyList) Save(path string) error {
	keys := d.Keys()
	if keys == nil {
		keys = []string{}
	}
	return jsonutil.WriteFile(path, keys)
}

func normalizeDenyEntry(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}
	t, err := time.Parse("January 2, 2006", entry)
	if err == nil {
		return FromTime(t).Key()
	}
	return entry
}

// Package accumulator keeps the latest known state of every item across all the
// reports processed for a series.
package accumulator

import (
	"encoding/json"
	"fmt"

	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/lib/jsonutil"
)

// ItemRecord is the persisted state of one item.
type ItemRecord struct {
	ItemID   string `json:"itemId"`
	Program  string `json:"program"`
	Quantity int64  `json:"quantity"`
	// FirstSeen is set when the record is created and never changes.
	FirstSeen period.Period `json:"firstSeen"`
	Latest    period.Period `json:"latestPeriod"`
}

// Map is the set of item records keyed by sanitized item name, in the order the
// items were first seen.
type Map struct {
	items *jsonutil.OrderedMap[ItemRecord]
}

func NewMap() Map {
	return Map{items: jsonutil.NewOrderedMap[ItemRecord]()}
}

func (m Map) Len() int {
	return m.items.Len()
}

func (m Map) Get(name string) (ItemRecord, bool) {
	return m.items.Get(name)
}

// Names returns the item names in order.
func (m Map) Names() []string {
	return m.items.Keys()
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	return Map{items: m.items.Clone()}
}

// MaxLatest is the most recent latestPeriod of any record.
func (m Map) MaxLatest() (period.Period, bool) {
	var latest period.Period
	for _, name := range m.items.Keys() {
		record, _ := m.items.Get(name)
		if latest.IsZero() || latest.Before(record.Latest) {
			latest = record.Latest
		}
	}
	return latest, !latest.IsZero()
}

func (m Map) MarshalJSON() ([]byte, error) {
	if m.items == nil {
		return []byte("{}"), nil
	}
	return m.items.MarshalJSON()
}

func (m *Map) UnmarshalJSON(data []byte) error {
	items := jsonutil.NewOrderedMap[ItemRecord]()
	err := json.Unmarshal(data, items)
	if err != nil {
		return err
	}
	m.items = items
	return nil
}

// Anomaly is a quantity that went down between two observations of an item,
// quantities are cumulative so this points at an upstream data problem.
type Anomaly struct {
	Name     string
	Previous int64
	Current  int64
	From     period.Period
	To       period.Period
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%q went from %d (%s) to %d (%s)", a.Name, a.Previous, a.From, a.Current, a.To)
}

// Merge folds the rows of one report into existing and returns the result,
// existing is left untouched.
//
//   - an unseen name is inserted with firstSeen = latestPeriod = the row's period
//   - a row at or after a record's latestPeriod overwrites its quantity and
//     latestPeriod, even if the quantity went down (reported as an Anomaly)
//   - a row before a record's latestPeriod is ignored
//   - rows without a name or with a negative quantity are dropped
func Merge(existing Map, rows []normalize.CanonicalRow) (Map, []Anomaly) {
	out := existing.Clone()
	var anomalies []Anomaly

	for _, row := range rows {
		if row.ItemName == "" || row.Quantity < 0 || row.NoData {
			continue
		}
		p := row.Period.Canonical()

		record, ok := out.items.Get(row.ItemName)
		if !ok {
			out.items.Set(row.ItemName, ItemRecord{
				ItemID:    row.ItemID,
				Program:   row.ProgramName,
				Quantity:  row.Quantity,
				FirstSeen: p,
				Latest:    p,
			})
			continue
		}
		if p.Before(record.Latest) {
			continue
		}
		if row.Quantity < record.Quantity {
			anomalies = append(anomalies, Anomaly{
				Name:     row.ItemName,
				Previous: record.Quantity,
				Current:  row.Quantity,
				From:     record.Latest,
				To:       p,
			})
		}
		record.Quantity = row.Quantity
		record.Latest = p
		out.items.Set(row.ItemName, record)
	}

	return out, anomalies
}

// Load reads a dataset written by Save, a missing file is an empty map.
func Load(path string) (Map, error) {
	m := NewMap()
	_, err := jsonutil.ReadFile(path, &m)
	if err != nil {
		return Map{}, fmt.Errorf("load item records: %w", err)
	}
	return m, nil
}

// Save atomically writes m to path.
func Save(path string, m Map) error {
	return jsonutil.WriteFile(path, m)
}

// Package production folds circulating coin production reports into the nested
// program -> year -> design or mint -> mint or denomination dataset.
package production

import (
	"encoding/json"
	"fmt"

	"mintfigures/internal/normalize"
	"mintfigures/internal/period"
	"mintfigures/lib/jsonutil"
)

type (
	// Quantities is mint -> quantity for a design, or denomination -> quantity for a mint.
	Quantities = *jsonutil.OrderedMap[int64]
	// YearData is design or mint -> Quantities, a nil Quantities is a design with no data.
	YearData = *jsonutil.OrderedMap[Quantities]
	// ProgramData is year -> YearData, a nil YearData is a year without data.
	ProgramData = *jsonutil.OrderedMap[YearData]
)

// Dataset is program name -> ProgramData, a nil ProgramData is a program without
// any years.
type Dataset struct {
	programs *jsonutil.OrderedMap[ProgramData]
}

func New() *Dataset {
	return &Dataset{programs: jsonutil.NewOrderedMap[ProgramData]()}
}

// StartProgram makes sure the program exists so it is written even if no year
// produces data.
func (d *Dataset) StartProgram(program string) {
	data, ok := d.programs.Get(program)
	if !ok || data == nil {
		d.programs.Set(program, jsonutil.NewOrderedMap[YearData]())
	}
}

// Programs returns the program names in order.
func (d *Dataset) Programs() []string {
	return d.programs.Keys()
}

// Add replaces the data of the report's year with the fold of rows.
func (d *Dataset) Add(program string, p period.Period, rows []normalize.CanonicalRow) {
	d.StartProgram(program)
	programData, _ := d.programs.Get(program)

	year := jsonutil.NewOrderedMap[Quantities]()
	byMint := false
	for _, row := range rows {
		switch row.Shape {
		case normalize.ShapeByDesign:
			existing, ok := year.Get(row.Group)
			if row.NoData {
				if !ok {
					year.Set(row.Group, nil)
				}
				continue
			}
			if existing == nil {
				existing = jsonutil.NewOrderedMap[int64]()
				year.Set(row.Group, existing)
			}
			existing.Set(row.Mint, row.Quantity)
		case normalize.ShapeByDenomination, normalize.ShapeByMint:
			byMint = true
			existing, _ := year.Get(row.Group)
			if existing == nil {
				existing = jsonutil.NewOrderedMap[int64]()
				year.Set(row.Group, existing)
			}
			existing.Set(row.ItemName, row.Quantity)
		}
	}
	if byMint {
		year.Reorder(normalize.Mints...)
	}
	programData.Set(p.Key(), year)
}

// Value looks up a single quantity.
func (d *Dataset) Value(program, year, group, key string) (int64, bool) {
	groups, ok := d.Year(program, year)
	if !ok || groups == nil {
		return 0, false
	}
	quantities, ok := groups.Get(group)
	if !ok || quantities == nil {
		return 0, false
	}
	return quantities.Get(key)
}

// Year returns a program's year, ok is false when it is not present at all and
// the returned data is nil when the year has no data.
func (d *Dataset) Year(program, year string) (YearData, bool) {
	programData, ok := d.programs.Get(program)
	if !ok || programData == nil {
		return nil, false
	}
	return programData.Get(year)
}

// Finalize turns years without any data and programs without any years into nulls.
func (d *Dataset) Finalize() {
	for _, program := range d.programs.Keys() {
		programData, _ := d.programs.Get(program)
		if programData == nil {
			continue
		}
		for _, year := range programData.Keys() {
			groups, _ := programData.Get(year)
			if groups != nil && !hasData(groups) {
				programData.Set(year, nil)
			}
		}
		if programData.Len() == 0 {
			d.programs.Set(program, nil)
		}
	}
}

func hasData(groups YearData) bool {
	for _, key := range groups.Keys() {
		quantities, _ := groups.Get(key)
		if quantities != nil {
			return true
		}
	}
	return false
}

func (d *Dataset) MarshalJSON() ([]byte, error) {
	return d.programs.MarshalJSON()
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	programs := jsonutil.NewOrderedMap[ProgramData]()
	err := json.Unmarshal(data, programs)
	if err != nil {
		return err
	}
	d.programs = programs
	return nil
}

// Load reads a dataset written by Save, a missing file is an empty dataset.
func Load(path string) (*Dataset, error) {
	d := New()
	_, err := jsonutil.ReadFile(path, d)
	if err != nil {
		return nil, fmt.Errorf("load production dataset: %w", err)
	}
	return d, nil
}

// Save atomically writes d to path.
func Save(path string, d *Dataset) error {
	return jsonutil.WriteFile(path, d)
}

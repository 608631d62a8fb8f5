package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"mintfigures/lib/htmlutil"
	"mintfigures/lib/jsonutil"
)

// RawRow is one upstream row as column -> text, columns keep their upstream order.
type RawRow struct {
	fields *jsonutil.OrderedMap[string]
}

// NewRawRow builds a row from column, value pairs.
func NewRawRow(pairs ...string) RawRow {
	if len(pairs)%2 != 0 {
		panic("NewRawRow: odd number of arguments")
	}
	r := RawRow{fields: jsonutil.NewOrderedMap[string]()}
	for i := 0; i < len(pairs); i += 2 {
		r.fields.Set(pairs[i], pairs[i+1])
	}
	return r
}

func (r RawRow) Get(column string) (string, bool) {
	return r.fields.Get(column)
}

// Value is Get without the presence flag.
func (r RawRow) Value(column string) string {
	v, _ := r.fields.Get(column)
	return v
}

func (r RawRow) Has(column string) bool {
	_, ok := r.fields.Get(column)
	return ok
}

// First returns the value of the first of columns present in the row.
func (r RawRow) First(columns ...string) (string, bool) {
	for _, c := range columns {
		if v, ok := r.fields.Get(c); ok {
			return v, true
		}
	}
	return "", false
}

func (r RawRow) Columns() []string {
	return r.fields.Keys()
}

func (r *RawRow) Set(column, value string) {
	if r.fields == nil {
		r.fields = jsonutil.NewOrderedMap[string]()
	}
	r.fields.Set(column, value)
}

func (r RawRow) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON accepts an object of scalars, numbers and booleans keep their
// literal text and null becomes an empty string.
func (r *RawRow) UnmarshalJSON(data []byte) error {
	var fields jsonutil.OrderedMap[json.RawMessage]
	err := json.Unmarshal(data, &fields)
	if err != nil {
		return err
	}
	r.fields = jsonutil.NewOrderedMap[string]()
	for _, column := range fields.Keys() {
		raw, _ := fields.Get(column)
		value, err := scalarText(raw)
		if err != nil {
			return fmt.Errorf("column %q: %w", column, err)
		}
		r.fields.Set(column, value)
	}
	return nil
}

func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '{', '[':
		return "", fmt.Errorf("expected a scalar value, got %s", raw)
	}
	return string(raw), nil
}

// DecodeJSON decodes a report body holding an array of row objects.
func DecodeJSON(body []byte) ([]RawRow, error) {
	var rows []RawRow
	err := json.Unmarshal(body, &rows)
	if err != nil {
		return nil, fmt.Errorf("decode report rows: %w", err)
	}
	return rows, nil
}

// FromTable keys every table row by the given headers. Cells past the last header
// are dropped and missing cells are left out of the row.
func FromTable(headers []string, table htmlutil.Table) []RawRow {
	rows := make([]RawRow, 0, len(table.Rows))
	for _, cells := range table.Rows {
		row := RawRow{fields: jsonutil.NewOrderedMap[string]()}
		for i, header := range headers {
			if i >= len(cells) {
				break
			}
			row.fields.Set(header, cells[i])
		}
		rows = append(rows, row)
	}
	return rows
}

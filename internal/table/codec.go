package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/buger/jsonparser"
)

// MarshalJSON encodes the table column-oriented, keyed by row position:
//
//	{"id":{"0":"bitcoin","1":"ethereum"},"rank":{"0":"1","1":"2"}}
//
// This is the layout pandas writes by default, so clean objects produced
// before and after the move stay interchangeable.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for j, col := range t.Columns {
		if j > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(":{")
		for i, row := range t.Rows {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strconv.Itoa(i))
			buf.WriteString(`":`)
			v, err := json.Marshal(row[j])
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", col, i, err)
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the column-oriented layout written by MarshalJSON.
// Row keys need not be contiguous: rows are the distinct keys in ascending
// order, and cells a column lacks decode as nil.
func (t *Table) UnmarshalJSON(data []byte) error {
	type column struct {
		name  string
		cells map[int]any
	}
	var (
		cols []column
		seen = make(map[int]struct{})
	)

	err := jsonparser.ObjectEach(data, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		name := string(key)
		if vt != jsonparser.Object {
			return fmt.Errorf("column %s is %s, want object", name, vt)
		}
		col := column{name: name, cells: make(map[int]any)}
		err := jsonparser.ObjectEach(value, func(idx, v []byte, cvt jsonparser.ValueType, _ int) error {
			i, err := strconv.Atoi(string(idx))
			if err != nil || i < 0 {
				return fmt.Errorf("column %s: bad row key %q", name, idx)
			}
			c, err := toCell(v, cvt)
			if err != nil {
				return err
			}
			col.cells[i] = c
			seen[i] = struct{}{}
			return nil
		})
		if err != nil {
			return err
		}
		cols = append(cols, col)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	t.Columns = make([]string, len(cols))
	for j, c := range cols {
		t.Columns[j] = c.name
	}
	keys := make([]int, 0, len(seen))
	for i := range seen {
		keys = append(keys, i)
	}
	slices.Sort(keys)

	t.Rows = make([][]any, len(keys))
	for r, i := range keys {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = c.cells[i]
		}
		t.Rows[r] = row
	}
	return nil
}

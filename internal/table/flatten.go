package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buger/jsonparser"
)

// DataField is the envelope field holding the payload rows.
const DataField = "data"

// UpdatedField is the millisecond-epoch column normalised by Transform.
const UpdatedField = "updated"

// TimestampLayout renders converted epoch columns.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrNoDataField is returned when the payload has no nested data field.
	ErrNoDataField = errors.New("table: payload has no data field")
	// ErrMalformed is returned when the payload is not a JSON object of the expected shape.
	ErrMalformed = errors.New("table: malformed payload")
)

// Transform turns a raw payload into its clean table: the data field is
// flattened into columns and the updated column, when present, is converted
// from epoch milliseconds to a UTC timestamp.
func Transform(raw []byte) (*Table, error) {
	t, err := Flatten(raw, DataField)
	if err != nil {
		return nil, err
	}
	if t.HasColumn(UpdatedField) {
		if err := t.ConvertEpochMillis(UpdatedField); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Flatten builds a table from a JSON object whose field is either an array of
// objects (one row each) or a single object (one row). Other top-level keys
// become leading columns repeated on every row. Nested objects inside a row
// are flattened into dotted column names, e.g. "quote.usd".
func Flatten(raw []byte, field string) (*Table, error) {
	var (
		leading   []cell
		dataValue []byte
		dataType  = jsonparser.NotExist
	)

	err := jsonparser.ObjectEach(raw, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		k := string(key)
		if k == field {
			dataValue, dataType = value, vt
			return nil
		}
		v, err := toCell(value, vt)
		if err != nil {
			return err
		}
		leading = append(leading, cell{key: k, value: v})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if dataType == jsonparser.NotExist {
		return nil, ErrNoDataField
	}

	var rows [][]cell
	switch dataType {
	case jsonparser.Array:
		var rowErr error
		_, err := jsonparser.ArrayEach(dataValue, func(value []byte, vt jsonparser.ValueType, _ int, err error) {
			if rowErr != nil {
				return
			}
			if err != nil {
				rowErr = err
				return
			}
			if vt != jsonparser.Object {
				rowErr = fmt.Errorf("%s element is %s, want object", field, vt)
				return
			}
			row, err := flattenObject("", value)
			if err != nil {
				rowErr = err
				return
			}
			rows = append(rows, row)
		})
		if err == nil {
			err = rowErr
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case jsonparser.Object:
		row, err := flattenObject("", dataValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rows = append(rows, row)
	case jsonparser.Null:
		// no rows
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrMalformed, field, dataType)
	}

	return assemble(leading, rows), nil
}

// ConvertEpochMillis rewrites col from epoch milliseconds to TimestampLayout.
// Null cells stay null.
func (t *Table) ConvertEpochMillis(col string) error {
	j := t.ColumnIndex(col)
	if j < 0 {
		return nil
	}
	for i, row := range t.Rows {
		if row[j] == nil {
			continue
		}
		d, ok := ToDecimal(row[j])
		if !ok {
			return fmt.Errorf("%w: %s row %d is not an epoch: %v", ErrMalformed, col, i, row[j])
		}
		row[j] = time.UnixMilli(d.IntPart()).UTC().Format(TimestampLayout)
	}
	return nil
}

type cell struct {
	key   string
	value any
}

func flattenObject(prefix string, obj []byte) ([]cell, error) {
	var out []cell
	err := jsonparser.ObjectEach(obj, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		k := string(key)
		name := prefix + k
		if vt == jsonparser.Object {
			nested, err := flattenObject(name+".", value)
			if err != nil {
				return err
			}
			out = append(out, nested...)
			return nil
		}
		v, err := toCell(value, vt)
		if err != nil {
			return err
		}
		out = append(out, cell{key: name, value: v})
		return nil
	})
	return out, err
}

func toCell(value []byte, vt jsonparser.ValueType) (any, error) {
	switch vt {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return json.Number(string(value)), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Array, jsonparser.Object:
		return string(value), nil
	}
	return nil, fmt.Errorf("unexpected value type %s", vt)
}

// assemble lays out leading columns first, then row columns in first-seen
// order. A row column sharing a leading column's name overrides it.
func assemble(leading []cell, rows [][]cell) *Table {
	t := &Table{}
	index := make(map[string]int)
	addColumn := func(name string) int {
		if j, ok := index[name]; ok {
			return j
		}
		index[name] = len(t.Columns)
		t.Columns = append(t.Columns, name)
		return index[name]
	}

	for _, c := range leading {
		addColumn(c.key)
	}
	for _, row := range rows {
		for _, c := range row {
			addColumn(c.key)
		}
	}

	t.Rows = make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(t.Columns))
		for _, c := range leading {
			values[index[c.key]] = c.value
		}
		for _, c := range row {
			values[index[c.key]] = c.value
		}
		t.Rows[i] = values
	}
	return t
}

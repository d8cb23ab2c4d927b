// Package table holds the tabular form of a CoinCap payload: ordered columns
// over rows of JSON scalar cells.
//
// Cells are one of: nil, string, bool, json.Number.
package table

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Table is a column-ordered set of rows.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of col, or -1.
func (t *Table) ColumnIndex(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// HasColumn reports whether col exists.
func (t *Table) HasColumn(col string) bool {
	return t.ColumnIndex(col) >= 0
}

// Value returns the cell at row i, column col; nil when either is absent.
func (t *Table) Value(i int, col string) any {
	j := t.ColumnIndex(col)
	if j < 0 || i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][j]
}

// String returns the cell rendered as text; nil renders as "".
func (t *Table) String(i int, col string) string {
	return FormatCell(t.Value(i, col))
}

// Filter returns a new table holding the rows whose col equals value.
func (t *Table) Filter(col, value string) *Table {
	out := &Table{Columns: t.Columns}
	j := t.ColumnIndex(col)
	if j < 0 {
		return out
	}
	for _, row := range t.Rows {
		if FormatCell(row[j]) == value {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Unique returns the distinct non-empty values of col in first-seen order.
func (t *Table) Unique(col string) []string {
	j := t.ColumnIndex(col)
	if j < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, row := range t.Rows {
		v := FormatCell(row[j])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Decimal parses the cell as a decimal number. Numbers may arrive either as
// JSON numbers or as decimal strings.
func (t *Table) Decimal(i int, col string) (decimal.Decimal, bool) {
	return ToDecimal(t.Value(i, col))
}

// Sum adds every parseable value in col. Unparseable and null cells are
// skipped; n counts the cells that were added.
func (t *Table) Sum(col string) (total decimal.Decimal, n int) {
	total = decimal.Zero
	for i := range t.Rows {
		if d, ok := t.Decimal(i, col); ok {
			total = total.Add(d)
			n++
		}
	}
	return total, n
}

// FillNA returns a copy where nil and empty-string cells are replaced by na.
func (t *Table) FillNA(na string) *Table {
	out := &Table{Columns: t.Columns, Rows: make([][]any, len(t.Rows))}
	for i, row := range t.Rows {
		cp := make([]any, len(row))
		for j, v := range row {
			if v == nil || v == "" {
				cp[j] = na
				continue
			}
			cp[j] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Records returns each row as a column→value map.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			rec[c] = row[j]
		}
		out[i] = rec
	}
	return out
}

// ToDecimal converts a cell to a decimal.
func ToDecimal(v any) (decimal.Decimal, bool) {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = x
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatCell renders a cell as text.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

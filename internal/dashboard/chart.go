package dashboard

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/coincap-data/internal/table"
)

// ChartKind selects the exchange volume chart.
type ChartKind string

const (
	ChartPie ChartKind = "pie"
	ChartBar ChartKind = "bar"
)

// Valid reports whether k is a known chart kind.
func (k ChartKind) Valid() bool {
	return k == ChartPie || k == ChartBar
}

var billion = decimal.New(1, 9)

var palette = []string{
	"#636efa", "#ef553b", "#00cc96", "#ab63fa", "#ffa15a",
	"#19d3f3", "#ff6692", "#b6e880", "#ff97ff", "#fecb52",
}

// Slice is one exchange in the volume chart.
type Slice struct {
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent_total_volume"`
	Volume  string          `json:"volume_usd"` // hover label, e.g. "$1.23B"
	Color   string          `json:"color"`
	Width   template.CSS    `json:"-"` // bar width relative to the largest slice
}

// Chart is the exchange volume chart.
type Chart struct {
	Kind     ChartKind    `json:"kind"`
	Slices   []Slice      `json:"slices"`
	Gradient template.CSS `json:"-"` // pie background
}

// FormatBillions renders a USD amount in billions to two places, e.g. "$12.35B".
func FormatBillions(v decimal.Decimal) string {
	return "$" + v.Div(billion).StringFixed(2) + "B"
}

// BuildChart charts percentTotalVolume per exchange name over every row of
// exchanges. Unparseable percentages count as zero.
func BuildChart(exchanges *table.Table, kind ChartKind) *Chart {
	c := &Chart{Kind: kind}

	maxPct := decimal.Zero
	total := decimal.Zero
	for i := 0; i < exchanges.Len(); i++ {
		name := exchanges.String(i, colName)
		if name == "" {
			continue
		}

		pct, ok := exchanges.Decimal(i, colPercentVolume)
		if !ok || pct.IsNegative() {
			pct = decimal.Zero
		}
		volume := NA
		if v, ok := exchanges.Decimal(i, colVolumeUsd); ok {
			volume = FormatBillions(v)
		}

		c.Slices = append(c.Slices, Slice{
			Name:    name,
			Percent: pct,
			Volume:  volume,
			Color:   palette[len(c.Slices)%len(palette)],
		})
		total = total.Add(pct)
		if pct.GreaterThan(maxPct) {
			maxPct = pct
		}
	}

	for i := range c.Slices {
		w := decimal.Zero
		if maxPct.IsPositive() {
			w = c.Slices[i].Percent.Div(maxPct).Mul(decimal.NewFromInt(100))
		}
		c.Slices[i].Width = template.CSS(fmt.Sprintf("width: %s%%", w.StringFixed(2)))
	}
	c.Gradient = pieGradient(c.Slices, total)
	return c
}

// pieGradient lays the slices out as a conic-gradient, each slice sized by
// its share of total.
func pieGradient(slices []Slice, total decimal.Decimal) template.CSS {
	if !total.IsPositive() {
		return template.CSS("background: #ddd")
	}

	hundred := decimal.NewFromInt(100)
	stops := make([]string, 0, len(slices))
	start := decimal.Zero
	for _, s := range slices {
		end := start.Add(s.Percent.Div(total).Mul(hundred))
		stops = append(stops, fmt.Sprintf("%s %s%% %s%%", s.Color, start.StringFixed(2), end.StringFixed(2)))
		start = end
	}
	return template.CSS("background: conic-gradient(" + strings.Join(stops, ", ") + ")")
}

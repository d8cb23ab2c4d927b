package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/coincap-data/internal/table"
)

// NA replaces empty cells on both pages.
const NA = "N/A"

// Columns the pages read.
const (
	colName          = "name"
	colSymbol        = "symbol"
	colBaseSymbol    = "baseSymbol"
	colMarketCap     = "marketCapUsd"
	colVolume24h     = "volumeUsd24Hr"
	colChange24h     = "changePercent24Hr"
	colVolumeUsd     = "volumeUsd"
	colPercentVolume = "percentTotalVolume"
)

// Cell classes.
const (
	classPositive = "positive"
	classNegative = "negative"
	classNA       = "na"
)

// Cell is one rendered table cell.
type Cell struct {
	Text  string
	Class string
}

// TableView is a rendered table.
type TableView struct {
	Columns []string
	Rows    [][]Cell
}

// Summary holds the figures shown in the asset cards.
type Summary struct {
	MarketCap     string `json:"market_cap"`
	TotalVolume   string `json:"total_volume"`
	PercentChange string `json:"percent_change"`
}

// AssetView is the assets page for one selected coin.
type AssetView struct {
	Date     string
	Names    []string
	Selected string
	Asset    *table.Table
	Markets  *table.Table
	Summary  Summary
}

// ExchangeView is the exchanges page for one selected exchange.
type ExchangeView struct {
	Date     string
	Names    []string
	Selected string
	Exchange *table.Table
	Chart    *Chart // nil until a chart kind is requested
}

// BuildAssetView filters the asset data down to the coin called name.
func BuildAssetView(data *AssetData, name string) AssetView {
	assets := data.Assets.FillNA(NA)
	selected := assets.Filter(colName, name)

	markets := &table.Table{Columns: data.Markets.Columns}
	if selected.Len() > 0 {
		markets = data.Markets.Filter(colBaseSymbol, selected.String(0, colSymbol))
	}

	return AssetView{
		Date:     data.Date,
		Names:    data.Assets.Unique(colName),
		Selected: name,
		Asset:    selected,
		Markets:  markets,
		Summary:  summarize(selected),
	}
}

// summarize computes the card figures from the selected rows: market cap and
// percent change of the first row, volume summed over every row.
func summarize(rows *table.Table) Summary {
	if rows.Len() == 0 {
		return Summary{MarketCap: NA, TotalVolume: NA, PercentChange: NA}
	}
	volume := NA
	if total, n := rows.Sum(colVolume24h); n > 0 {
		volume = total.String()
	}
	return Summary{
		MarketCap:     rows.String(0, colMarketCap),
		TotalVolume:   volume,
		PercentChange: rows.String(0, colChange24h),
	}
}

// BuildExchangeView filters the exchange data down to the exchange called
// name and builds the requested chart over every exchange.
func BuildExchangeView(data *ExchangeData, name string, kind ChartKind) ExchangeView {
	v := ExchangeView{
		Date:     data.Date,
		Names:    data.Exchanges.Unique(colName),
		Selected: name,
		Exchange: data.Exchanges.FillNA(NA).Filter(colName, name),
	}
	if kind.Valid() {
		v.Chart = BuildChart(data.Exchanges, kind)
	}
	return v
}

// renderAssets colours the 24h change column by sign.
func renderAssets(t *table.Table) TableView {
	return render(t, func(col, text string) string {
		if col != colChange24h {
			return ""
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			return ""
		}
		switch d.Sign() {
		case -1:
			return classNegative
		case 1:
			return classPositive
		}
		return ""
	})
}

// renderExchanges highlights N/A cells.
func renderExchanges(t *table.Table) TableView {
	return render(t, func(_, text string) string {
		if text == NA {
			return classNA
		}
		return ""
	})
}

func renderPlain(t *table.Table) TableView {
	return render(t, func(_, _ string) string { return "" })
}

func render(t *table.Table, class func(col, text string) string) TableView {
	v := TableView{Columns: t.Columns, Rows: make([][]Cell, t.Len())}
	for i, row := range t.Rows {
		cells := make([]Cell, len(row))
		for j, val := range row {
			text := table.FormatCell(val)
			cells[j] = Cell{Text: text, Class: class(t.Columns[j], text)}
		}
		v.Rows[i] = cells
	}
	return v
}

// paginate returns rows [page*size, page*size+size) and the page count.
// Out-of-range pages are clamped.
func paginate(t *table.Table, page, size int) (*table.Table, int, int) {
	if size <= 0 {
		return t, 0, 1
	}
	pages := (t.Len() + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	start := page * size
	end := min(start+size, t.Len())
	if start > end {
		start = end
	}
	return &table.Table{Columns: t.Columns, Rows: t.Rows[start:end]}, page, pages
}

// Package dataset defines the datasets fetched each day and the object key
// layout they are stored under.
//
// Key layout:
//
//	raw/<folder>/<name>_<YYYY_MM_DD>.json
//	clean/<folder>/<name>_<YYYY_MM_DD>.json
//	history/<currency>/<currency>_history/...
package dataset

import (
	"net/url"
	"strings"
	"time"
)

// DateLayout formats a run date as YYYY_MM_DD.
const DateLayout = "2006_01_02"

// Key prefixes.
const (
	RawPrefix     = "raw"
	CleanPrefix   = "clean"
	HistoryPrefix = "history"
)

// Dataset is one endpoint and the raw/clean object pair it produces per run date.
type Dataset struct {
	Name   string     // file stem, e.g. "coincap_assets"
	Folder string     // key folder, e.g. "assets" or "history/bitcoin"
	Path   string     // API path relative to the base URL
	Query  url.Values // optional query parameters
}

// FormatDate returns the run date string for t in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// RawKey returns the raw object key for the dataset on date.
func (d Dataset) RawKey(date string) string {
	return RawPrefix + "/" + d.Folder + "/" + d.Name + "_" + date + ".json"
}

// CleanKey returns the clean object key for the dataset on date.
func (d Dataset) CleanKey(date string) string {
	return CleanKey(d.RawKey(date))
}

// Endpoint returns the path with its encoded query string, if any.
func (d Dataset) Endpoint() string {
	if len(d.Query) == 0 {
		return d.Path
	}
	return d.Path + "?" + d.Query.Encode()
}

// CleanKey maps a raw key to its clean counterpart by replacing the leading
// raw segment. Keys outside raw/ are returned unchanged.
func CleanKey(rawKey string) string {
	if rest, ok := strings.CutPrefix(rawKey, RawPrefix+"/"); ok {
		return CleanPrefix + "/" + rest
	}
	return rawKey
}

// DateSuffix is the suffix shared by every object key written on date.
func DateSuffix(date string) string {
	return "_" + date + ".json"
}

// Core returns the datasets that do not depend on a currency.
func Core() []Dataset {
	return []Dataset{
		{Name: "coincap_assets", Folder: "assets", Path: "/assets"},
		{Name: "coincap_exchanges", Folder: "exchanges", Path: "/exchanges"},
		{Name: "coincap_markets", Folder: "markets", Path: "/markets"},
	}
}

// Markets returns the per-currency markets dataset.
func Markets(currency string) Dataset {
	return Dataset{
		Name:   currency + "_markets",
		Folder: currency,
		Path:   "/assets/" + currency + "/markets",
	}
}

// CurrencyMarkets returns the markets dataset of every currency.
func CurrencyMarkets(currencies []string) []Dataset {
	out := make([]Dataset, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, Markets(c))
	}
	return out
}

// History returns the per-currency price history dataset.
func History(currency, interval string) Dataset {
	return Dataset{
		Name:   currency + "_history",
		Folder: HistoryPrefix + "/" + currency,
		Path:   "/assets/" + currency + "/history",
		Query:  url.Values{"interval": []string{interval}},
	}
}

// HistoryMarker returns the prefix whose contents gate the history fetch.
func HistoryMarker(currency string) string {
	return HistoryPrefix + "/" + currency + "/" + currency + "_history/"
}

package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/coincap-data/internal/dataset"
	"github.com/rickgao/coincap-data/internal/objstore"
	"github.com/rickgao/coincap-data/internal/table"
)

// AssetData is the clean data behind the assets page.
type AssetData struct {
	Date    string
	Assets  *table.Table
	Markets *table.Table // markets of the configured currency
}

// ExchangeData is the clean data behind the exchanges page.
type ExchangeData struct {
	Date      string
	Exchanges *table.Table
}

// LoaderStatus describes the loader for health checks. Loaded and Errors are
// keyed by dataset name and only cover the current date.
type LoaderStatus struct {
	Date   string            `json:"date"`
	Loaded []string          `json:"loaded,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Loader loads and caches the clean tables of the current run date. Each
// dataset loads on its own, so a missing object only affects the pages
// that read it.
type Loader struct {
	store    objstore.Store
	currency string
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	pinned string
	day    string
	tables map[string]*table.Table
	errs   map[string]error
}

// NewLoader creates a Loader reading the markets of currency alongside the
// core datasets.
func NewLoader(store objstore.Store, currency string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:    store,
		currency: currency,
		logger:   logger,
		now:      time.Now,
		tables:   make(map[string]*table.Table),
		errs:     make(map[string]error),
	}
}

// PinDate fixes the run date instead of following the local calendar.
func (l *Loader) PinDate(date string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pinned = date
}

// Reset drops every loaded table so the next request reads the store again.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables = make(map[string]*table.Table)
	l.errs = make(map[string]error)
}

func (l *Loader) date() string {
	if l.pinned != "" {
		return l.pinned
	}
	return dataset.FormatDate(l.now())
}

func (l *Loader) currentDate() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.date()
}

// Assets returns the asset listing and the configured currency's markets.
func (l *Loader) Assets(ctx context.Context) (*AssetData, error) {
	date := l.currentDate()

	assets, err := l.table(ctx, date, dataset.Core()[0])
	if err != nil {
		return nil, err
	}
	markets, err := l.table(ctx, date, dataset.Markets(l.currency))
	if err != nil {
		return nil, err
	}
	return &AssetData{Date: date, Assets: assets, Markets: markets}, nil
}

// Exchanges returns the exchange listing.
func (l *Loader) Exchanges(ctx context.Context) (*ExchangeData, error) {
	date := l.currentDate()

	exchanges, err := l.table(ctx, date, dataset.Core()[1])
	if err != nil {
		return nil, err
	}
	return &ExchangeData{Date: date, Exchanges: exchanges}, nil
}

// Status reports the current loader state.
func (l *Loader) Status() LoaderStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := LoaderStatus{Date: l.date()}
	if l.day != st.Date {
		return st
	}
	for name := range l.tables {
		st.Loaded = append(st.Loaded, name)
	}
	sort.Strings(st.Loaded)
	if len(l.errs) > 0 {
		st.Errors = make(map[string]string, len(l.errs))
		for name, err := range l.errs {
			st.Errors[name] = err.Error()
		}
	}
	return st
}

// table returns the clean table of ds for date, loading it on first use.
// Failed loads are retried on the next call.
func (l *Loader) table(ctx context.Context, date string, ds dataset.Dataset) (*table.Table, error) {
	l.mu.RLock()
	t, ok := l.tables[ds.Name]
	fresh := l.day == date
	l.mu.RUnlock()
	if ok && fresh {
		return t, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.day != date {
		l.day = date
		l.tables = make(map[string]*table.Table)
		l.errs = make(map[string]error)
	}
	if t, ok := l.tables[ds.Name]; ok {
		return t, nil
	}

	start := time.Now()
	t, err := l.loadTable(ctx, ds.CleanKey(date))
	if err != nil {
		l.errs[ds.Name] = err
		l.logger.Error("failed to load dashboard data", "date", date, "dataset", ds.Name, "error", err)
		return nil, err
	}

	l.tables[ds.Name] = t
	delete(l.errs, ds.Name)
	l.logger.Info("dashboard data loaded",
		"date", date,
		"dataset", ds.Name,
		"rows", t.Len(),
		"duration", time.Since(start),
	)
	return t, nil
}

func (l *Loader) loadTable(ctx context.Context, key string) (*table.Table, error) {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var t table.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &t, nil
}

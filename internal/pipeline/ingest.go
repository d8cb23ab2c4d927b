package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/rickgao/coincap-data/internal/api"
	"github.com/rickgao/coincap-data/internal/dataset"
	"github.com/rickgao/coincap-data/internal/objstore"
)

// Fetcher retrieves a raw JSON payload from the market-data API.
type Fetcher interface {
	FetchRaw(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Task is one node of the graph.
type Task interface {
	Name() string
	Run(ctx context.Context, run Run) Result
}

// IngestTask fetches a fixed list of datasets and writes each payload to its
// raw key for the run date. Fetch and store errors skip the dataset.
type IngestTask struct {
	name     string
	fetcher  Fetcher
	store    objstore.Store
	datasets []dataset.Dataset
	logger   *slog.Logger
}

// NewIngestTask creates an IngestTask.
func NewIngestTask(name string, fetcher Fetcher, store objstore.Store, datasets []dataset.Dataset, logger *slog.Logger) *IngestTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestTask{
		name:     name,
		fetcher:  fetcher,
		store:    store,
		datasets: datasets,
		logger:   logger.With("task", name),
	}
}

// Name implements Task.
func (t *IngestTask) Name() string { return t.name }

// Run implements Task.
func (t *IngestTask) Run(ctx context.Context, run Run) Result {
	stored := 0
	for _, ds := range t.datasets {
		if err := ctx.Err(); err != nil {
			return Fail(err)
		}
		if fetchToRaw(ctx, t.fetcher, t.store, ds, run.Date, t.logger) {
			stored++
		}
	}
	if err := ctx.Err(); err != nil {
		return Fail(err)
	}
	return Success(fmt.Sprintf("stored %d/%d datasets", stored, len(t.datasets)))
}

// fetchToRaw fetches one dataset and writes it to its raw key. It reports
// whether the object was written; every failure is logged and swallowed.
func fetchToRaw(ctx context.Context, fetcher Fetcher, store objstore.Store, ds dataset.Dataset, date string, logger *slog.Logger) bool {
	key := ds.RawKey(date)

	body, err := fetcher.FetchRaw(ctx, ds.Path, ds.Query)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrInvalidURL):
			logger.Error("dataset url appears to be invalid", "endpoint", ds.Endpoint(), "error", err)
		default:
			logger.Error("could not fetch dataset", "endpoint", ds.Endpoint(), "error", err)
		}
		return false
	}

	if err := store.Put(ctx, key, body); err != nil {
		logger.Error("could not store raw object", "key", key, "error", err)
		return false
	}

	logger.Info("stored raw object", "key", key, "bytes", len(body))
	return true
}

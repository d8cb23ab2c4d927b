package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/coincap-data/internal/dataset"
	"github.com/rickgao/coincap-data/internal/objstore"
)

// DataAvailable is the availability gate: it reports whether at least one
// object exists under prefix. Listing errors count as unavailable.
func DataAvailable(ctx context.Context, store objstore.Store, prefix string, logger *slog.Logger) bool {
	ok, err := objstore.Exists(ctx, store, prefix)
	if err != nil {
		logger.Error("could not list prefix", "prefix", prefix, "error", err)
		return false
	}
	logger.Debug("checked availability", "prefix", prefix, "available", ok)
	return ok
}

// HistoryTask fetches per-currency price history. Currencies are walked in
// order; the first one without a history marker skips the rest of the task.
type HistoryTask struct {
	fetcher    Fetcher
	store      objstore.Store
	currencies []string
	interval   string
	logger     *slog.Logger
}

// NewHistoryTask creates a HistoryTask.
func NewHistoryTask(fetcher Fetcher, store objstore.Store, currencies []string, interval string, logger *slog.Logger) *HistoryTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryTask{
		fetcher:    fetcher,
		store:      store,
		currencies: currencies,
		interval:   interval,
		logger:     logger.With("task", TaskHistory),
	}
}

// Name implements Task.
func (t *HistoryTask) Name() string { return TaskHistory }

// Run implements Task.
func (t *HistoryTask) Run(ctx context.Context, run Run) Result {
	stored := 0
	for _, cur := range t.currencies {
		if err := ctx.Err(); err != nil {
			return Fail(err)
		}

		marker := dataset.HistoryMarker(cur)
		if !DataAvailable(ctx, t.store, marker, t.logger) {
			if err := ctx.Err(); err != nil {
				return Fail(err)
			}
			t.logger.Info("history not available, skipping", "currency", cur, "prefix", marker)
			return Skip(fmt.Sprintf("no objects under %s", marker))
		}

		if fetchToRaw(ctx, t.fetcher, t.store, dataset.History(cur, t.interval), run.Date, t.logger) {
			stored++
		}
	}
	if err := ctx.Err(); err != nil {
		return Fail(err)
	}
	return Success(fmt.Sprintf("stored %d/%d histories", stored, len(t.currencies)))
}

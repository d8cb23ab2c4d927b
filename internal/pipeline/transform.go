package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/coincap-data/internal/dataset"
	"github.com/rickgao/coincap-data/internal/objstore"
	"github.com/rickgao/coincap-data/internal/table"
)

// TransformTask writes a clean object for every raw object of the run date.
// A raw object that cannot be read, parsed or written is logged and skipped.
type TransformTask struct {
	store  objstore.Store
	logger *slog.Logger
}

// NewTransformTask creates a TransformTask.
func NewTransformTask(store objstore.Store, logger *slog.Logger) *TransformTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransformTask{
		store:  store,
		logger: logger.With("task", TaskTransform),
	}
}

// Name implements Task.
func (t *TransformTask) Name() string { return TaskTransform }

// Run implements Task. Only a failed listing fails the task.
func (t *TransformTask) Run(ctx context.Context, run Run) Result {
	objs, err := t.store.List(ctx, dataset.RawPrefix+"/")
	if err != nil {
		return Fail(fmt.Errorf("list raw objects: %w", err))
	}

	suffix := dataset.DateSuffix(run.Date)
	var matched, cleaned int
	for _, obj := range objs {
		if !strings.HasSuffix(obj.Key, suffix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Fail(err)
		}
		matched++
		if t.cleanObject(ctx, obj.Key) {
			cleaned++
		}
	}

	if matched == 0 {
		t.logger.Warn("no raw objects for run date", "date", run.Date)
	}
	if err := ctx.Err(); err != nil {
		return Fail(err)
	}
	return Success(fmt.Sprintf("cleaned %d/%d raw objects", cleaned, matched))
}

func (t *TransformTask) cleanObject(ctx context.Context, rawKey string) bool {
	raw, err := t.store.Get(ctx, rawKey)
	if err != nil {
		t.logger.Error("could not read raw object", "key", rawKey, "error", err)
		return false
	}

	tbl, err := table.Transform(raw)
	if err != nil {
		t.logger.Error("could not parse raw object", "key", rawKey, "error", err)
		return false
	}

	out, err := json.Marshal(tbl)
	if err != nil {
		t.logger.Error("could not encode clean table", "key", rawKey, "error", err)
		return false
	}

	cleanKey := dataset.CleanKey(rawKey)
	if err := t.store.Put(ctx, cleanKey, out); err != nil {
		t.logger.Error("could not store clean object", "key", cleanKey, "error", err)
		return false
	}

	t.logger.Info("stored clean object", "key", cleanKey, "rows", tbl.Len(), "columns", len(tbl.Columns))
	return true
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerRefresh reloads a ledger dataset and invalidates report caches.
	TaskLedgerRefresh = "ledger:refresh"
)

// LedgerRefreshPayload identifies the dataset to reload.
type LedgerRefreshPayload struct {
	Dataset   string `json:"dataset"`
	RequestID string `json:"request_id"`
}

// NewLedgerRefreshTask constructs an Asynq task.
func NewLedgerRefreshTask(payload LedgerRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRefresh, data), nil
}

// LedgerRefresher reloads a dataset from source.
type LedgerRefresher interface {
	Refresh(ctx context.Context, dataset string) (int, error)
}

// CacheBumper invalidates cached reports after a refresh.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// LedgerRefreshHandler processes TaskLedgerRefresh tasks.
func LedgerRefreshHandler(refresher LedgerRefresher, bumper CacheBumper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LedgerRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		started := time.Now()
		count, err := refresher.Refresh(ctx, payload.Dataset)
		if err != nil {
			return fmt.Errorf("jobs: refresh dataset %s: %w", payload.Dataset, err)
		}
		if bumper != nil {
			if err := bumper.Bump(ctx); err != nil {
				return fmt.Errorf("jobs: bump report cache: %w", err)
			}
		}
		if logger != nil {
			logger.Info("ledger dataset refreshed",
				slog.String("dataset", payload.Dataset),
				slog.String("request_id", payload.RequestID),
				slog.Int("rows", count),
				slog.Duration("took", time.Since(started)))
		}
		return nil
	}
}

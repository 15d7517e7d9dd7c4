// Package dlq records terminally-failed task instances for operator
// inspection and manual replay. It is pure bookkeeping alongside the
// FAILED transition the scheduler/intake path already makes; it never
// changes whether a task or run is FAILED, and never retries automatically.
package dlq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airflow-mini/orchestrator/internal/retry"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

// ErrTooSoon is returned when a replay is attempted before the configured
// backoff window has elapsed.
var ErrTooSoon = errors.New("replay attempted too soon after failure")

// Manager records dead-lettered task instances and gates manual replay.
type Manager struct {
	repo   storage.DLQRepository
	config *retry.ReplayConfig
}

// NewManager creates a Manager backed by repo.
func NewManager(repo storage.DLQRepository, config *retry.ReplayConfig) *Manager {
	if config == nil {
		config = retry.DefaultReplayConfig()
	}
	return &Manager{repo: repo, config: config}
}

// Record adds a terminally-failed task instance to the dead-letter queue.
func (m *Manager) Record(ctx context.Context, ti *models.TaskInstance, runWorkflowID string) error {
	attempts := ti.MaxRetries - ti.RetriesLeft + 1
	return m.repo.Record(ctx, ti.ID, ti.RunID, runWorkflowID, ti.TaskID, attempts, ti.Output)
}

// List returns every dead-letter entry.
func (m *Manager) List(ctx context.Context) ([]*storage.DLQEntry, error) {
	return m.repo.List(ctx)
}

// Replay validates the backoff window and marks an entry replayed. The
// first replay of an entry is always allowed; a later one must wait
// MinDelayAfter(entry.Attempts) from the previous replay. It only decides
// whether the replay is currently allowed and records that it happened; it
// does not reset the task instance to PENDING, and neither does the replay
// endpoint that calls it.
func (m *Manager) Replay(ctx context.Context, id string) (*storage.DLQEntry, error) {
	entry, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if entry.Replayed {
		minDelay := m.config.MinDelayAfter(entry.Attempts)
		if time.Since(*entry.ReplayedAt) < minDelay {
			return nil, ErrTooSoon
		}
	}

	if err := m.repo.MarkReplayed(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to mark dlq entry replayed: %w", err)
	}

	return entry, nil
}

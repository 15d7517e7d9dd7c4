package dlq_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airflow-mini/orchestrator/internal/dlq"
	"github.com/airflow-mini/orchestrator/internal/retry"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/internal/testutil"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

type fakeDLQRepo struct {
	entries map[string]*storage.DLQEntry
	nextID  int
}

func newFakeDLQRepo() *fakeDLQRepo {
	return &fakeDLQRepo{entries: make(map[string]*storage.DLQEntry)}
}

func (f *fakeDLQRepo) Record(ctx context.Context, taskInstanceID, runID, workflowID, taskID string, attempts int, output string) error {
	f.nextID++
	id := "entry-" + taskInstanceID
	f.entries[id] = &storage.DLQEntry{
		ID:             id,
		TaskInstanceID: taskInstanceID,
		RunID:          runID,
		WorkflowID:     workflowID,
		TaskID:         taskID,
		Attempts:       attempts,
		Output:         output,
		FailureTime:    time.Now().UTC(),
	}
	return nil
}

func (f *fakeDLQRepo) List(ctx context.Context) ([]*storage.DLQEntry, error) {
	var out []*storage.DLQEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeDLQRepo) Get(ctx context.Context, id string) (*storage.DLQEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeDLQRepo) MarkReplayed(ctx context.Context, id string) error {
	e, ok := f.entries[id]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now().UTC()
	e.Replayed = true
	e.ReplayedAt = &now
	return nil
}

func TestManager_Record(t *testing.T) {
	repo := newFakeDLQRepo()
	mgr := dlq.NewManager(repo, retry.DefaultReplayConfig())

	ti := testutil.NewTaskInstance("ti-1", "run-1", "task1", models.TaskFailed, 2)
	ti.RetriesLeft = 0
	ti.Output = "boom"

	err := mgr.Record(context.Background(), ti, "wf-1")

	require.NoError(t, err)
	entries, err := mgr.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ti-1", entries[0].TaskInstanceID)
	assert.Equal(t, 3, entries[0].Attempts, "max_retries(2) - retries_left(0) + 1")
	assert.Equal(t, "boom", entries[0].Output)
}

func TestManager_Replay_FirstReplayNeverBlocked(t *testing.T) {
	repo := newFakeDLQRepo()
	mgr := dlq.NewManager(repo, retry.DefaultReplayConfig())

	ti := testutil.NewTaskInstance("ti-1", "run-1", "task1", models.TaskFailed, 2)
	require.NoError(t, mgr.Record(context.Background(), ti, "wf-1"))

	entry, err := mgr.Replay(context.Background(), "entry-ti-1")

	require.NoError(t, err)
	assert.Equal(t, "ti-1", entry.TaskInstanceID)
}

func TestManager_Replay_TooSoonAfterAPriorReplay(t *testing.T) {
	repo := newFakeDLQRepo()
	// No jitter and a long base delay so the second replay deterministically
	// falls inside the backoff window.
	cfg := &retry.ReplayConfig{Strategy: retry.NewExponentialBackoff(time.Hour, time.Hour, false)}
	mgr := dlq.NewManager(repo, cfg)

	ti := testutil.NewTaskInstance("ti-1", "run-1", "task1", models.TaskFailed, 2)
	require.NoError(t, mgr.Record(context.Background(), ti, "wf-1"))

	_, err := mgr.Replay(context.Background(), "entry-ti-1")
	require.NoError(t, err)

	_, err = mgr.Replay(context.Background(), "entry-ti-1")
	assert.ErrorIs(t, err, dlq.ErrTooSoon)
}

func TestManager_Replay_UnknownEntry(t *testing.T) {
	repo := newFakeDLQRepo()
	mgr := dlq.NewManager(repo, retry.DefaultReplayConfig())

	_, err := mgr.Replay(context.Background(), "missing")

	assert.ErrorIs(t, err, storage.ErrNotFound)
}

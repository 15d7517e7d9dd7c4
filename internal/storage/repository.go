package storage

import (
	"context"
	"time"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

// OptionalTime distinguishes "leave this timestamp unchanged" (Set=false)
// from "set it to this value, possibly clearing it" (Set=true, Value=nil).
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

// WorkflowRepository persists Workflow templates.
type WorkflowRepository interface {
	// Create inserts a new workflow. Returns ErrAlreadyExists if id is taken.
	Create(ctx context.Context, id string, definition []byte) (*models.Workflow, error)
	Get(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
}

// RunRepository persists Run rows and their task instances together.
type RunRepository interface {
	// Create atomically inserts a Run (status RUNNING) and one TaskInstance
	// per task definition (status PENDING, retries_left = max_retries).
	Create(ctx context.Context, workflowID string, tasks []models.TaskDefinition) (*models.Run, error)
	Get(ctx context.Context, id string) (*models.Run, error)
	// ActiveRuns returns every Run with status RUNNING.
	ActiveRuns(ctx context.Context) ([]*models.Run, error)
	UpdateStatus(ctx context.Context, id string, status models.RunState, finishedAt bool) error
}

// TaskInstanceUpdate carries only the fields an update call should modify;
// a nil pointer means "leave unchanged".
type TaskInstanceUpdate struct {
	Status      *models.TaskState
	WorkerID    *string
	Output      *string
	StartedAt   OptionalTime
	FinishedAt  OptionalTime
	RetriesLeft *int
}

// TaskInstanceRepository persists TaskInstance rows.
type TaskInstanceRepository interface {
	Get(ctx context.Context, id string) (*models.TaskInstance, error)
	ListByRun(ctx context.Context, runID string) ([]*models.TaskInstance, error)
	// Update applies only the non-nil fields of upd to the instance.
	Update(ctx context.Context, id string, upd TaskInstanceUpdate) error
}

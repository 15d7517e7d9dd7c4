package storage

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

// JSONB stores an arbitrary, already-serialized JSON document verbatim —
// used for a workflow's definition, which is opaque to everything except
// the validator.
type JSONB []byte

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append(JSONB(nil), v...)
	case string:
		*j = JSONB(v)
	default:
		return fmt.Errorf("unsupported type for JSONB scan: %T", value)
	}
	return nil
}

// WorkflowModel is the persisted row for a Workflow.
type WorkflowModel struct {
	ID         string    `gorm:"type:varchar(255);primaryKey"`
	Definition JSONB     `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (WorkflowModel) TableName() string { return "workflows" }

// ToWorkflow converts a WorkflowModel to the domain type.
func (m *WorkflowModel) ToWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:         m.ID,
		Definition: append([]byte(nil), m.Definition...),
		CreatedAt:  m.CreatedAt,
	}
}

// RunModel is the persisted row for a Run.
type RunModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkflowID string    `gorm:"type:varchar(255);not null;index"`
	Status     string    `gorm:"type:varchar(20);not null"`
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (RunModel) TableName() string { return "workflow_runs" }

// ToRun converts a RunModel to the domain type.
func (m *RunModel) ToRun() *models.Run {
	return &models.Run{
		ID:         m.ID.String(),
		WorkflowID: m.WorkflowID,
		Status:     models.RunState(m.Status),
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

// TaskInstanceModel is the persisted row for a TaskInstance.
type TaskInstanceModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID       uuid.UUID `gorm:"type:uuid;not null;index"`
	TaskID      string    `gorm:"type:varchar(255);not null"`
	Command     string    `gorm:"type:text;not null"`
	Status      string    `gorm:"type:varchar(20);not null;index"`
	RetriesLeft int       `gorm:"not null"`
	MaxRetries  int       `gorm:"not null"`
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Output      string `gorm:"type:text"`
	WorkerID    string `gorm:"type:varchar(255)"`
}

func (TaskInstanceModel) TableName() string { return "task_instances" }

// ToTaskInstance converts a TaskInstanceModel to the domain type.
func (m *TaskInstanceModel) ToTaskInstance() *models.TaskInstance {
	return &models.TaskInstance{
		ID:          m.ID.String(),
		RunID:       m.RunID.String(),
		TaskID:      m.TaskID,
		Command:     m.Command,
		Status:      models.TaskState(m.Status),
		RetriesLeft: m.RetriesLeft,
		MaxRetries:  m.MaxRetries,
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		Output:      m.Output,
		WorkerID:    m.WorkerID,
	}
}

// DLQEntryModel is the persisted row for a dead-lettered task instance.
type DLQEntryModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskInstanceID uuid.UUID `gorm:"type:uuid;not null;index"`
	RunID          uuid.UUID `gorm:"type:uuid;not null"`
	WorkflowID     string    `gorm:"type:varchar(255);not null"`
	TaskID         string    `gorm:"type:varchar(255);not null"`
	FailureTime    time.Time `gorm:"not null"`
	Attempts       int       `gorm:"not null"`
	Output         string    `gorm:"type:text"`
	Replayed       bool      `gorm:"not null;default:false"`
	ReplayedAt     *time.Time
}

func (DLQEntryModel) TableName() string { return "dlq_entries" }

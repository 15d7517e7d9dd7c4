package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DLQEntry is the read-facing shape of a dead-lettered task instance.
type DLQEntry struct {
	ID             string     `json:"id"`
	TaskInstanceID string     `json:"task_instance_id"`
	RunID          string     `json:"run_id"`
	WorkflowID     string     `json:"workflow_id"`
	TaskID         string     `json:"task_id"`
	FailureTime    time.Time  `json:"failure_time"`
	Attempts       int        `json:"attempts"`
	Output         string     `json:"output,omitempty"`
	Replayed       bool       `json:"replayed"`
	ReplayedAt     *time.Time `json:"replayed_at,omitempty"`
}

func (m *DLQEntryModel) toEntry() *DLQEntry {
	return &DLQEntry{
		ID:             m.ID.String(),
		TaskInstanceID: m.TaskInstanceID.String(),
		RunID:          m.RunID.String(),
		WorkflowID:     m.WorkflowID,
		TaskID:         m.TaskID,
		FailureTime:    m.FailureTime,
		Attempts:       m.Attempts,
		Output:         m.Output,
		Replayed:       m.Replayed,
		ReplayedAt:     m.ReplayedAt,
	}
}

// DLQRepository records and lists terminally-failed task instances, and
// marks entries as manually replayed. This is bookkeeping alongside the
// existing FAILED transition — it never changes whether a task is FAILED.
type DLQRepository interface {
	Record(ctx context.Context, taskInstanceID, runID, workflowID, taskID string, attempts int, output string) error
	List(ctx context.Context) ([]*DLQEntry, error)
	Get(ctx context.Context, id string) (*DLQEntry, error)
	MarkReplayed(ctx context.Context, id string) error
}

type dlqRepository struct {
	db *gorm.DB
}

// NewDLQRepository creates a GORM-backed DLQRepository.
func NewDLQRepository(db *gorm.DB) DLQRepository {
	return &dlqRepository{db: db}
}

func (r *dlqRepository) Record(ctx context.Context, taskInstanceID, runID, workflowID, taskID string, attempts int, output string) error {
	tiID, err := uuid.Parse(taskInstanceID)
	if err != nil {
		return fmt.Errorf("invalid task instance id: %w", err)
	}
	rID, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	entry := &DLQEntryModel{
		ID:             uuid.New(),
		TaskInstanceID: tiID,
		RunID:          rID,
		WorkflowID:     workflowID,
		TaskID:         taskID,
		FailureTime:    time.Now().UTC(),
		Attempts:       attempts,
		Output:         output,
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record dlq entry: %w", err)
	}
	return nil
}

func (r *dlqRepository) List(ctx context.Context) ([]*DLQEntry, error) {
	var rows []DLQEntryModel
	if err := r.db.WithContext(ctx).Order("failure_time DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list dlq entries: %w", err)
	}

	entries := make([]*DLQEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].toEntry()
	}
	return entries, nil
}

func (r *dlqRepository) Get(ctx context.Context, id string) (*DLQEntry, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var model DLQEntryModel
	if err := r.db.WithContext(ctx).Where("id = ?", entryID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dlq entry: %w", err)
	}
	return model.toEntry(), nil
}

func (r *dlqRepository) MarkReplayed(ctx context.Context, id string) error {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&DLQEntryModel{}).Where("id = ?", entryID).Updates(map[string]interface{}{
		"replayed":    true,
		"replayed_at": now,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to mark dlq entry replayed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

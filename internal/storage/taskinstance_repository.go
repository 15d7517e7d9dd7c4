package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

type taskInstanceRepository struct {
	db *gorm.DB
}

// NewTaskInstanceRepository creates a GORM-backed TaskInstanceRepository.
func NewTaskInstanceRepository(db *gorm.DB) TaskInstanceRepository {
	return &taskInstanceRepository{db: db}
}

func (r *taskInstanceRepository) Get(ctx context.Context, id string) (*models.TaskInstance, error) {
	instanceID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var model TaskInstanceModel
	if err := r.db.WithContext(ctx).Where("id = ?", instanceID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task instance: %w", err)
	}
	return model.ToTaskInstance(), nil
}

func (r *taskInstanceRepository) ListByRun(ctx context.Context, runID string) ([]*models.TaskInstance, error) {
	parsedRunID, err := uuid.Parse(runID)
	if err != nil {
		return nil, ErrNotFound
	}

	var rows []TaskInstanceModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", parsedRunID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list task instances: %w", err)
	}

	instances := make([]*models.TaskInstance, len(rows))
	for i := range rows {
		instances[i] = rows[i].ToTaskInstance()
	}
	return instances, nil
}

// Update applies only the supplied fields of upd, matching the state
// store's update_task_status contract: untouched fields keep their current
// persisted value.
func (r *taskInstanceRepository) Update(ctx context.Context, id string, upd TaskInstanceUpdate) error {
	instanceID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	updates := map[string]interface{}{}
	if upd.Status != nil {
		updates["status"] = string(*upd.Status)
	}
	if upd.WorkerID != nil {
		updates["worker_id"] = *upd.WorkerID
	}
	if upd.Output != nil {
		updates["output"] = *upd.Output
	}
	if upd.StartedAt.Set {
		updates["started_at"] = upd.StartedAt.Value
	}
	if upd.FinishedAt.Set {
		updates["finished_at"] = upd.FinishedAt.Value
	}
	if upd.RetriesLeft != nil {
		updates["retries_left"] = *upd.RetriesLeft
	}

	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&TaskInstanceModel{}).Where("id = ?", instanceID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update task instance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

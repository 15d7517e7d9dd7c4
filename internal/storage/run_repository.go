package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

type runRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a GORM-backed RunRepository.
func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, workflowID string, tasks []models.TaskDefinition) (*models.Run, error) {
	now := time.Now().UTC()
	runModel := &RunModel{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     string(models.RunRunning),
		StartedAt:  &now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(runModel).Error; err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}

		instances := make([]TaskInstanceModel, 0, len(tasks))
		for _, t := range tasks {
			instances = append(instances, TaskInstanceModel{
				ID:          uuid.New(),
				RunID:       runModel.ID,
				TaskID:      t.ID,
				Command:     t.Command,
				Status:      string(models.TaskPending),
				RetriesLeft: t.MaxRetries,
				MaxRetries:  t.MaxRetries,
			})
		}

		if len(instances) > 0 {
			if err := tx.Create(&instances).Error; err != nil {
				return fmt.Errorf("failed to create task instances: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return runModel.ToRun(), nil
}

func (r *runRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var model RunModel
	if err := r.db.WithContext(ctx).Where("id = ?", runID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return model.ToRun(), nil
}

func (r *runRepository) ActiveRuns(ctx context.Context) ([]*models.Run, error) {
	var rows []RunModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(models.RunRunning)).
		Order("started_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active runs: %w", err)
	}

	runs := make([]*models.Run, len(rows))
	for i := range rows {
		runs[i] = rows[i].ToRun()
	}
	return runs, nil
}

func (r *runRepository) UpdateStatus(ctx context.Context, id string, status models.RunState, finishedAt bool) error {
	runID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	updates := map[string]interface{}{"status": string(status)}
	if finishedAt {
		updates["finished_at"] = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", runID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

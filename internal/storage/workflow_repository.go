package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a GORM-backed WorkflowRepository.
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, id string, definition []byte) (*models.Workflow, error) {
	model := &WorkflowModel{
		ID:         id,
		Definition: JSONB(definition),
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return model.ToWorkflow(), nil
}

func (r *workflowRepository) Get(ctx context.Context, id string) (*models.Workflow, error) {
	var model WorkflowModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return model.ToWorkflow(), nil
}

func (r *workflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	var rows []WorkflowModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, len(rows))
	for i := range rows {
		workflows[i] = rows[i].ToWorkflow()
	}
	return workflows, nil
}

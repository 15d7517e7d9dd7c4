package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/api/dto"
)

// RunHandler exposes run lookup and task-instance listing.
type RunHandler struct {
	runs  storage.RunRepository
	tasks storage.TaskInstanceRepository
}

// NewRunHandler builds a RunHandler.
func NewRunHandler(runs storage.RunRepository, tasks storage.TaskInstanceRepository) *RunHandler {
	return &RunHandler{runs: runs, tasks: tasks}
}

// Get handles GET /runs/{id}.
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RunResponse{
		ID:         run.ID,
		WorkflowID: run.WorkflowID,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	})
}

// ListTasks handles GET /runs/{id}/tasks.
func (h *RunHandler) ListTasks(c *gin.Context) {
	runID := c.Param("id")

	if _, err := h.runs.Get(c.Request.Context(), runID); err != nil {
		respondStorageError(c, err)
		return
	}

	instances, err := h.tasks.ListByRun(c.Request.Context(), runID)
	if err != nil {
		respondStorageError(c, err)
		return
	}

	resp := make([]dto.TaskInstanceResponse, len(instances))
	for i, ti := range instances {
		resp[i] = dto.TaskInstanceResponse{
			ID:          ti.ID,
			RunID:       ti.RunID,
			TaskID:      ti.TaskID,
			Command:     ti.Command,
			Status:      string(ti.Status),
			RetriesLeft: ti.RetriesLeft,
			MaxRetries:  ti.MaxRetries,
			StartedAt:   ti.StartedAt,
			FinishedAt:  ti.FinishedAt,
			Output:      ti.Output,
			WorkerID:    ti.WorkerID,
		}
	}
	c.JSON(http.StatusOK, resp)
}

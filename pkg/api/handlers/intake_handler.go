package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/airflow-mini/orchestrator/internal/intake"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/api/dto"
	"github.com/airflow-mini/orchestrator/pkg/api/middleware"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

// IntakeHandler exposes the worker result callback endpoint.
type IntakeHandler struct {
	intake *intake.Intake
}

// NewIntakeHandler builds an IntakeHandler.
func NewIntakeHandler(in *intake.Intake) *IntakeHandler {
	return &IntakeHandler{intake: in}
}

// TaskResult handles POST /internal/task-result.
func (h *IntakeHandler) TaskResult(c *gin.Context) {
	var req dto.TaskResultCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	err := h.intake.HandleCallback(c.Request.Context(), intake.Callback{
		TaskInstanceID: req.TaskInstanceID,
		Status:         models.TaskState(req.Status),
		Output:         req.Output,
		WorkerID:       req.WorkerID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.AbortWithError(c, http.StatusNotFound, "NOT_FOUND", "task instance not found")
			return
		}
		if errors.Is(err, intake.ErrNotRunning) {
			// Stale callback for a task the scheduler has already moved on
			// from. Acknowledge without acting.
			c.JSON(http.StatusOK, gin.H{"accepted": false, "reason": "task instance not running"})
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "INTAKE_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/airflow-mini/orchestrator/internal/dlq"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/api/dto"
	"github.com/airflow-mini/orchestrator/pkg/api/middleware"
)

// DLQHandler exposes dead-letter listing and manual replay. This is a
// supplement beyond the seven core routes (see DESIGN.md).
type DLQHandler struct {
	dlq *dlq.Manager
}

// NewDLQHandler builds a DLQHandler.
func NewDLQHandler(dlqMgr *dlq.Manager) *DLQHandler {
	return &DLQHandler{dlq: dlqMgr}
}

// List handles GET /dlq.
func (h *DLQHandler) List(c *gin.Context) {
	entries, err := h.dlq.List(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	resp := make([]dto.DLQEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = dto.DLQEntryResponse{
			ID:             e.ID,
			TaskInstanceID: e.TaskInstanceID,
			RunID:          e.RunID,
			WorkflowID:     e.WorkflowID,
			TaskID:         e.TaskID,
			Attempts:       e.Attempts,
			Output:         e.Output,
			FailureTime:    e.FailureTime,
			Replayed:       e.Replayed,
			ReplayedAt:     e.ReplayedAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Replay handles POST /dlq/{id}/replay. A dead-lettered task instance's Run
// is already terminal (FAILED) and is never reopened, so this cannot and
// does not cause the scheduler to re-dispatch anything on its own — it only
// marks the entry replayed and gates repeat attempts behind the backoff
// window. Actually re-running the work is a separate operator action:
// triggering a new run of the same workflow (POST /workflows/{id}/run).
func (h *DLQHandler) Replay(c *gin.Context) {
	entry, err := h.dlq.Replay(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.AbortWithError(c, http.StatusNotFound, "NOT_FOUND", "dlq entry not found")
			return
		}
		if errors.Is(err, dlq.ErrTooSoon) {
			middleware.AbortWithError(c, http.StatusTooManyRequests, "TOO_SOON", err.Error())
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "REPLAY_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"replayed": true, "task_instance_id": entry.TaskInstanceID})
}

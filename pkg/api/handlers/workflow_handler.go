// Package handlers implements the seven control-API operations
// plus the dead-letter supplement, as thin gin handlers over the
// scheduling core.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/airflow-mini/orchestrator/internal/dag"
	"github.com/airflow-mini/orchestrator/internal/errorhandling"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/api/dto"
	"github.com/airflow-mini/orchestrator/pkg/api/middleware"
)

// WorkflowHandler exposes workflow registration, listing, lookup, and run
// triggering.
type WorkflowHandler struct {
	workflows storage.WorkflowRepository
	runs      storage.RunRepository
	validator *dag.Validator
}

// NewWorkflowHandler builds a WorkflowHandler.
func NewWorkflowHandler(workflows storage.WorkflowRepository, runs storage.RunRepository) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, runs: runs, validator: dag.NewValidator()}
}

// Register handles POST /workflows. It accepts either JSON or YAML
// (Content-Type: application/x-yaml) bodies, both validated against the
// same dynamic shape before being stored as canonical JSON.
func (h *WorkflowHandler) Register(c *gin.Context) {
	raw, err := decodeDefinition(c)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if errs := h.validator.Validate(raw); len(errs) > 0 {
		verr := errorhandling.NewValidationError(errs)
		middleware.AbortWithErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			verr.Error(), map[string]interface{}{"errors": errs})
		return
	}

	id, _ := raw["id"].(string)

	definition, err := json.Marshal(raw)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "ENCODE_ERROR", err.Error())
		return
	}

	workflow, err := h.workflows.Create(c.Request.Context(), id, definition)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			middleware.AbortWithError(c, http.StatusConflict, "ALREADY_EXISTS", errorhandling.ErrConflict.Error())
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.WorkflowResponse{ID: workflow.ID, CreatedAt: workflow.CreatedAt})
}

// List handles GET /workflows.
func (h *WorkflowHandler) List(c *gin.Context) {
	workflows, err := h.workflows.List(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	resp := make([]dto.WorkflowResponse, len(workflows))
	for i, w := range workflows {
		resp[i] = dto.WorkflowResponse{ID: w.ID, CreatedAt: w.CreatedAt}
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /workflows/{id}.
func (h *WorkflowHandler) Get(c *gin.Context) {
	workflow, err := h.workflows.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.WorkflowResponse{ID: workflow.ID, CreatedAt: workflow.CreatedAt})
}

// TriggerRun handles POST /workflows/{id}/run.
func (h *WorkflowHandler) TriggerRun(c *gin.Context) {
	workflow, err := h.workflows.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, err)
		return
	}

	var rawDef map[string]interface{}
	if err := json.Unmarshal(workflow.Definition, &rawDef); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "DECODE_ERROR", err.Error())
		return
	}
	def, err := dag.DecodeDefinition(rawDef)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "DECODE_ERROR", err.Error())
		return
	}

	run, err := h.runs.Create(c.Request.Context(), workflow.ID, def.Tasks)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.TriggerRunResponse{
		ID:         run.ID,
		WorkflowID: run.WorkflowID,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
	})
}

// decodeDefinition reads the request body as JSON or, for
// application/x-yaml, YAML decoded into the same dynamic shape.
func decodeDefinition(c *gin.Context) (map[string]interface{}, error) {
	if c.ContentType() == "application/x-yaml" {
		body, err := c.GetRawData()
		if err != nil {
			return nil, err
		}
		return dag.ParseYAMLDefinition(body)
	}

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func respondStorageError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		middleware.AbortWithError(c, http.StatusNotFound, "NOT_FOUND", errorhandling.ErrNotFound.Error())
		return
	}
	middleware.AbortWithError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
}

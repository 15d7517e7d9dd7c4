package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/api/dto"
	"github.com/airflow-mini/orchestrator/pkg/api/handlers"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

// mockTaskRepo is a mock implementation of storage.TaskInstanceRepository.
type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) Get(ctx context.Context, id string) (*models.TaskInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskInstance), args.Error(1)
}

func (m *mockTaskRepo) ListByRun(ctx context.Context, runID string) ([]*models.TaskInstance, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TaskInstance), args.Error(1)
}

func (m *mockTaskRepo) Update(ctx context.Context, id string, upd storage.TaskInstanceUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func TestRunHandler_Get(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("found", func(t *testing.T) {
		runs := new(mockRunRepo)
		tasks := new(mockTaskRepo)
		handler := handlers.NewRunHandler(runs, tasks)

		started := time.Now()
		runs.On("Get", mock.Anything, "run1").
			Return(&models.Run{ID: "run1", WorkflowID: "diamond", Status: models.RunRunning, StartedAt: &started}, nil)

		req := httptest.NewRequest(http.MethodGet, "/runs/run1", nil)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/runs/:id", handler.Get)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.RunResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "run1", resp.ID)
		runs.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		runs := new(mockRunRepo)
		tasks := new(mockTaskRepo)
		handler := handlers.NewRunHandler(runs, tasks)

		runs.On("Get", mock.Anything, "missing").Return(nil, storage.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/runs/:id", handler.Get)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		runs.AssertExpectations(t)
	})
}

func TestRunHandler_ListTasks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful listing", func(t *testing.T) {
		runs := new(mockRunRepo)
		tasks := new(mockTaskRepo)
		handler := handlers.NewRunHandler(runs, tasks)

		runs.On("Get", mock.Anything, "run1").Return(&models.Run{ID: "run1", WorkflowID: "diamond"}, nil)
		tasks.On("ListByRun", mock.Anything, "run1").Return([]*models.TaskInstance{
			{ID: "t1", RunID: "run1", TaskID: "a", Status: models.TaskSuccess},
			{ID: "t2", RunID: "run1", TaskID: "b", Status: models.TaskRunning},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/runs/run1/tasks", nil)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/runs/:id/tasks", handler.ListTasks)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp []dto.TaskInstanceResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp, 2)
		runs.AssertExpectations(t)
		tasks.AssertExpectations(t)
	})

	t.Run("unknown run short-circuits before the task lookup", func(t *testing.T) {
		runs := new(mockRunRepo)
		tasks := new(mockTaskRepo)
		handler := handlers.NewRunHandler(runs, tasks)

		runs.On("Get", mock.Anything, "missing").Return(nil, storage.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/runs/missing/tasks", nil)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/runs/:id/tasks", handler.ListTasks)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		tasks.AssertNotCalled(t, "ListByRun", mock.Anything, mock.Anything)
	})
}

package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airflow-mini/orchestrator/internal/circuitbreaker"
	"github.com/airflow-mini/orchestrator/internal/health"
	"github.com/airflow-mini/orchestrator/pkg/api/dto"
	"github.com/airflow-mini/orchestrator/pkg/api/handlers"
)

func TestHealthHandler_Get(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("all checks passing reports ok", func(t *testing.T) {
		checks := map[string]func() error{
			"database": func() error { return nil },
		}
		workers := health.NewRegistry([]string{"http://w1"}, circuitbreaker.DefaultConfig())
		handler := handlers.NewHealthHandler(checks, workers, nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/health", handler.Get)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Services["database"])
		assert.Equal(t, "closed", resp.Services["worker:http://w1"])
	})

	t.Run("a failing check reports degraded", func(t *testing.T) {
		checks := map[string]func() error{
			"database": func() error { return errors.New("connection refused") },
		}
		handler := handlers.NewHealthHandler(checks, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/health", handler.Get)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
	})

	t.Run("an open worker breaker reports degraded", func(t *testing.T) {
		cfg := &circuitbreaker.Config{MaxFailures: 1, Timeout: 0, HalfOpenMaxRequests: 1}
		workers := health.NewRegistry([]string{"http://w1"}, cfg)
		workers.RecordResult("http://w1", errors.New("boom"))

		handler := handlers.NewHealthHandler(nil, workers, nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/health", handler.Get)
		router.ServeHTTP(w, req)

		var resp dto.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "open", resp.Services["worker:http://w1"])
	})
}

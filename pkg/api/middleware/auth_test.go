package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/airflow-mini/orchestrator/pkg/api/middleware"
)

func TestAPIKeyAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("rejects a missing key", func(t *testing.T) {
		router := gin.New()
		router.Use(middleware.APIKeyAuth("secret"))
		router.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a mismatching key", func(t *testing.T) {
		router := gin.New()
		router.Use(middleware.APIKeyAuth("secret"))
		router.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(middleware.APIKeyHeader, "wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepts a matching key", func(t *testing.T) {
		router := gin.New()
		router.Use(middleware.APIKeyAuth("secret"))
		router.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(middleware.APIKeyHeader, "secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

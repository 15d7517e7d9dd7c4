package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/airflow-mini/orchestrator/internal/errorhandling"
)

// APIKeyHeader is the header every non-internal endpoint requires.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns a middleware that rejects requests missing or
// mismatching the configured API key. The internal callback route is
// mounted outside this middleware's group and is never subject to it.
func APIKeyAuth(expectedKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(APIKeyHeader) != expectedKey {
			AbortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", errorhandling.ErrAuthFailure.Error())
			return
		}
		c.Next()
	}
}

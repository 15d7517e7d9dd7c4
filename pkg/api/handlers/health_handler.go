package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/airflow-mini/orchestrator/internal/health"
	"github.com/airflow-mini/orchestrator/pkg/api/dto"
)

// HealthHandler reports the master's own liveness plus its view of every
// configured dependency: the database, Redis, and each worker's circuit
// breaker state.
type HealthHandler struct {
	checks     map[string]func() error
	workers    *health.Registry
	heartbeats *health.HeartbeatTracker
}

// NewHealthHandler builds a HealthHandler. workers and heartbeats may both
// be nil if worker health tracking is disabled.
func NewHealthHandler(checks map[string]func() error, workers *health.Registry, heartbeats *health.HeartbeatTracker) *HealthHandler {
	return &HealthHandler{checks: checks, workers: workers, heartbeats: heartbeats}
}

// Get handles GET /health.
func (h *HealthHandler) Get(c *gin.Context) {
	services := make(map[string]string, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		if err := check(); err != nil {
			services[name] = "down: " + err.Error()
			healthy = false
			continue
		}
		services[name] = "ok"
	}

	if h.workers != nil {
		for _, w := range h.workers.Snapshot() {
			services["worker:"+w.Worker] = w.State
			if !h.workers.Allowed(w.Worker) {
				healthy = false
			}
		}
	}

	if h.heartbeats != nil {
		for workerID, seen := range h.heartbeats.Snapshot() {
			services["heartbeat:"+workerID] = seen.Format("2006-01-02T15:04:05Z07:00")
		}
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}

	c.JSON(http.StatusOK, dto.HealthResponse{Status: status, Services: services})
}

// Package api wires the control-API routes onto a gin engine.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/airflow-mini/orchestrator/internal/dlq"
	"github.com/airflow-mini/orchestrator/internal/health"
	"github.com/airflow-mini/orchestrator/internal/intake"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/api/handlers"
	"github.com/airflow-mini/orchestrator/pkg/api/middleware"
)

// Config bundles the dependencies the router needs to build handlers.
type Config struct {
	APIKey     string
	Workflows  storage.WorkflowRepository
	Runs       storage.RunRepository
	Tasks      storage.TaskInstanceRepository
	Intake     *intake.Intake
	DLQ        *dlq.Manager
	Logger     *logrus.Logger
	RateLimit  *middleware.RateLimiter
	Health     map[string]func() error
	Workers    *health.Registry
	Heartbeats *health.HeartbeatTracker
}

// NewRouter builds the gin engine implementing the seven control-API
// routes plus the dead-letter supplement and the unauthenticated
// internal callback.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit.RateLimit())
	}

	healthHandler := handlers.NewHealthHandler(cfg.Health, cfg.Workers, cfg.Heartbeats)
	r.GET("/health", healthHandler.Get)

	workflowHandler := handlers.NewWorkflowHandler(cfg.Workflows, cfg.Runs)
	runHandler := handlers.NewRunHandler(cfg.Runs, cfg.Tasks)
	intakeHandler := handlers.NewIntakeHandler(cfg.Intake)

	authenticated := r.Group("/")
	authenticated.Use(middleware.APIKeyAuth(cfg.APIKey))
	{
		authenticated.POST("/workflows", workflowHandler.Register)
		authenticated.GET("/workflows", workflowHandler.List)
		authenticated.GET("/workflows/:id", workflowHandler.Get)
		authenticated.POST("/workflows/:id/run", workflowHandler.TriggerRun)
		authenticated.GET("/runs/:id", runHandler.Get)
		authenticated.GET("/runs/:id/tasks", runHandler.ListTasks)

		if cfg.DLQ != nil {
			dlqHandler := handlers.NewDLQHandler(cfg.DLQ)
			authenticated.GET("/dlq", dlqHandler.List)
			authenticated.POST("/dlq/:id/replay", dlqHandler.Replay)
		}
	}

	// Unauthenticated by design: intended for trusted
	// intra-host worker callers only.
	r.POST("/internal/task-result", intakeHandler.TaskResult)

	return r
}

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const callbackTimeout = 5 * time.Second

// executeRequest mirrors the master's dispatch payload.
type executeRequest struct {
	TaskInstanceID string `json:"task_instance_id"`
	TaskID         string `json:"task_id"`
	Command        string `json:"command"`
	CallbackURL    string `json:"callback_url"`
}

// resultCallback mirrors the worker result payload.
type resultCallback struct {
	TaskInstanceID string `json:"task_instance_id"`
	Status         string `json:"status"`
	Output         string `json:"output,omitempty"`
	WorkerID       string `json:"worker_id,omitempty"`
}

// Server runs the worker's HTTP surface: accept /execute, run the command
// asynchronously, and report the outcome to the requester's callback URL.
type Server struct {
	id     string
	runner *Runner
	client *http.Client
}

// NewServer builds a Server identified by id (reported back as worker_id).
func NewServer(id string, runner *Runner) *Server {
	return &Server{id: id, runner: runner, client: &http.Client{Timeout: callbackTimeout}}
}

// RegisterRoutes mounts the worker's endpoints on an existing gin engine.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", s.handleHealth)
	r.POST("/execute", s.handleExecute)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "worker_id": s.id})
}

// handleExecute accepts the task immediately (HTTP 200) and runs it in the
// background, matching the fire-and-forget dispatch contract: the master
// only learns the outcome via the callback.
func (s *Server) handleExecute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go s.runAndReport(req)

	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

func (s *Server) runAndReport(req executeRequest) {
	ctx := context.Background()
	result := s.runner.Run(ctx, req.TaskID, req.Command)

	status := "SUCCESS"
	if !result.Success {
		status = "FAILED"
	}

	body, err := json.Marshal(resultCallback{
		TaskInstanceID: req.TaskInstanceID,
		Status:         status,
		Output:         result.Output,
		WorkerID:       s.id,
	})
	if err != nil {
		log.Printf("worker: failed to encode callback for %s: %v", req.TaskInstanceID, err)
		return
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, req.CallbackURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("worker: failed to build callback request for %s: %v", req.TaskInstanceID, err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		log.Printf("worker: callback delivery failed for %s: %v", req.TaskInstanceID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("worker: callback for %s rejected with status %d", req.TaskInstanceID, resp.StatusCode)
	}
}

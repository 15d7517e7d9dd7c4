package dto

import "time"

// RunResponse is the JSON representation of a Run (GET /runs/{id}).
type RunResponse struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TaskInstanceResponse is the JSON representation of one TaskInstance
// (GET /runs/{id}/tasks).
type TaskInstanceResponse struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	TaskID      string     `json:"task_id"`
	Command     string     `json:"command"`
	Status      string     `json:"status"`
	RetriesLeft int        `json:"retries_left"`
	MaxRetries  int        `json:"max_retries"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Output      string     `json:"output,omitempty"`
	WorkerID    string     `json:"worker_id,omitempty"`
}

// TaskResultCallbackRequest is the JSON body of POST /internal/task-result
// a worker reports back to the master.
type TaskResultCallbackRequest struct {
	TaskInstanceID string `json:"task_instance_id" binding:"required"`
	Status         string `json:"status" binding:"required,oneof=SUCCESS FAILED"`
	Output         string `json:"output,omitempty"`
	WorkerID       string `json:"worker_id,omitempty"`
}

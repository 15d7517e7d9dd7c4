package dto

import "time"

// DLQEntryResponse is the JSON representation of a dead-letter entry
// (supplement to the seven core routes — see DESIGN.md).
type DLQEntryResponse struct {
	ID             string     `json:"id"`
	TaskInstanceID string     `json:"task_instance_id"`
	RunID          string     `json:"run_id"`
	WorkflowID     string     `json:"workflow_id"`
	TaskID         string     `json:"task_id"`
	Attempts       int        `json:"attempts"`
	Output         string     `json:"output,omitempty"`
	FailureTime    time.Time  `json:"failure_time"`
	Replayed       bool       `json:"replayed"`
	ReplayedAt     *time.Time `json:"replayed_at,omitempty"`
}

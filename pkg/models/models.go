// Package models holds the persisted shapes shared by the scheduler, the
// dispatch client, result intake, and the control API.
package models

import "time"

// TaskState is the lifecycle state of a single TaskInstance.
type TaskState string

const (
	TaskPending  TaskState = "PENDING"
	TaskRunning  TaskState = "RUNNING"
	TaskSuccess  TaskState = "SUCCESS"
	TaskFailed   TaskState = "FAILED"
	TaskRetrying TaskState = "RETRYING"
)

// IsTerminal reports whether no further transition is expected for this state.
func (s TaskState) IsTerminal() bool {
	return s == TaskSuccess || s == TaskFailed
}

// RunState is the lifecycle state of a Run.
type RunState string

const (
	RunPending RunState = "PENDING"
	RunRunning RunState = "RUNNING"
	RunSuccess RunState = "SUCCESS"
	RunFailed  RunState = "FAILED"
)

// IsTerminal reports whether the run has reached its final outcome.
func (s RunState) IsTerminal() bool {
	return s == RunSuccess || s == RunFailed
}

// TaskDefinition is one node of a workflow's DAG as carried on the wire and
// inside a Workflow's stored definition.
type TaskDefinition struct {
	ID           string   `json:"id"`
	Command      string   `json:"command"`
	Dependencies []string `json:"dependencies,omitempty"`
	MaxRetries   int      `json:"max_retries,omitempty"`
}

// WorkflowDefinition is the validated shape of a registered DAG. The raw
// JSON is kept alongside it for round-trip fidelity; the validator is the
// only code that needs to look past these typed fields.
type WorkflowDefinition struct {
	ID    string           `json:"id"`
	Tasks []TaskDefinition `json:"tasks"`
}

// Workflow is a named, validated DAG template. Immutable once registered.
type Workflow struct {
	ID         string    `json:"id"`
	Definition []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Run is one instantiation of a Workflow.
type Run struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	Status     RunState   `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TaskInstance is the per-run execution record of one DAG task.
type TaskInstance struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	TaskID      string     `json:"task_id"`
	Command     string     `json:"command"`
	Status      TaskState  `json:"status"`
	RetriesLeft int        `json:"retries_left"`
	MaxRetries  int        `json:"max_retries"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Output      string     `json:"output,omitempty"`
	WorkerID    string     `json:"worker_id,omitempty"`
}

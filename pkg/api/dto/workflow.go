package dto

import "time"

// RegisterWorkflowRequest is the JSON body of POST /workflows. It is
// intentionally loose (map[string]interface{}) because the validator
// operates on the dynamic wire shape directly rather than a
// strongly-typed struct. Extra fields outside the known schema are not
// rejected.
type RegisterWorkflowRequest map[string]interface{}

// WorkflowResponse is the JSON representation of a registered workflow.
type WorkflowResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// TriggerRunResponse is returned by POST /workflows/{id}/run.
type TriggerRunResponse struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
}

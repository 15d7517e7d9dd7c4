// Package testutil builds fixture workflow definitions and domain objects
// shared by the package-level test suites.
package testutil

import (
	"time"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

// SimpleDefinition returns a single-task workflow definition.
func SimpleDefinition(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID: id,
		Tasks: []models.TaskDefinition{
			{ID: "task1", Command: "echo 'task1'"},
		},
	}
}

// DiamondDefinition returns the classic A; B,C depend on A; D depends on
// B,C workflow shape, used throughout the scheduler/dag test suites.
func DiamondDefinition(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID: id,
		Tasks: []models.TaskDefinition{
			{ID: "a", Command: "echo 'a'"},
			{ID: "b", Command: "echo 'b'", Dependencies: []string{"a"}},
			{ID: "c", Command: "echo 'c'", Dependencies: []string{"a"}},
			{ID: "d", Command: "echo 'd'", Dependencies: []string{"b", "c"}},
		},
	}
}

// RawDefinition converts a typed definition into the dynamic map shape the
// validator and dag.DecodeDefinition operate on.
func RawDefinition(def *models.WorkflowDefinition) map[string]interface{} {
	tasks := make([]interface{}, 0, len(def.Tasks))
	for _, t := range def.Tasks {
		deps := make([]interface{}, 0, len(t.Dependencies))
		for _, d := range t.Dependencies {
			deps = append(deps, d)
		}
		tasks = append(tasks, map[string]interface{}{
			"id":           t.ID,
			"command":      t.Command,
			"dependencies": deps,
			"max_retries":  t.MaxRetries,
		})
	}
	return map[string]interface{}{"id": def.ID, "tasks": tasks}
}

// NewTaskInstance builds a TaskInstance fixture in the given state.
func NewTaskInstance(id, runID, taskID string, status models.TaskState, maxRetries int) *models.TaskInstance {
	return &models.TaskInstance{
		ID:          id,
		RunID:       runID,
		TaskID:      taskID,
		Command:     "echo '" + taskID + "'",
		Status:      status,
		RetriesLeft: maxRetries,
		MaxRetries:  maxRetries,
	}
}

// NewRun builds a Run fixture in RUNNING state, started now.
func NewRun(id, workflowID string) *models.Run {
	now := time.Now().UTC()
	return &models.Run{
		ID:         id,
		WorkflowID: workflowID,
		Status:     models.RunRunning,
		StartedAt:  &now,
	}
}

package dag

import (
	"encoding/json"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

// DecodeDefinition converts a validated raw workflow definition map into the
// typed shape the rest of the scheduling core works with.
func DecodeDefinition(raw map[string]interface{}) (*models.WorkflowDefinition, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var def models.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Graph is the dependency view of a validated workflow definition, used by
// the scheduler to decide which tasks are runnable against a set of
// completed task ids.
type Graph struct {
	dependencies map[string][]string // task id -> ids it depends on
	taskIDs      []string            // load order, preserved for deterministic iteration
}

// NewGraph builds a Graph from a WorkflowDefinition. The definition is
// assumed to have already passed Validate.
func NewGraph(def *models.WorkflowDefinition) *Graph {
	g := &Graph{
		dependencies: make(map[string][]string, len(def.Tasks)),
		taskIDs:      make([]string, 0, len(def.Tasks)),
	}
	for _, t := range def.Tasks {
		g.dependencies[t.ID] = t.Dependencies
		g.taskIDs = append(g.taskIDs, t.ID)
	}
	return g
}

// Dependencies returns the direct dependency ids of a task.
func (g *Graph) Dependencies(taskID string) []string {
	return g.dependencies[taskID]
}

// TaskIDs returns every task id in the definition, in registration order.
func (g *Graph) TaskIDs() []string {
	return g.taskIDs
}

// Runnable returns the ids of tasks whose dependencies are all present in
// the completed set (keyed by task id, true meaning SUCCESS).
func (g *Graph) Runnable(completed map[string]bool) []string {
	var runnable []string
	for _, id := range g.taskIDs {
		if completed[id] {
			continue
		}
		ready := true
		for _, dep := range g.dependencies[id] {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			runnable = append(runnable, id)
		}
	}
	return runnable
}

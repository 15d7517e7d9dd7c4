// Package dag validates workflow definitions and exposes the dependency
// graph helpers the scheduler needs to find runnable tasks.
package dag

import "fmt"

// Validator runs the structural + cycle checks of a workflow definition. It
// holds no state; a single instance is safe to reuse across goroutines.
type Validator struct{}

// NewValidator returns a ready-to-use Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate interprets definition as the dynamic shape described in the
// workflow wire format (an "id" string and a "tasks" list of task maps) and
// returns a list of human-readable errors. An empty list means valid.
//
// All checks are collected in a single pass except cycle detection, which
// only runs once every structural check above it has passed — cycle
// detection presupposes valid task ids and dependency references.
func (v *Validator) Validate(definition map[string]interface{}) []string {
	var errs []string

	if _, ok := definition["id"]; !ok {
		errs = append(errs, "workflow must have an id")
	}

	rawTasks, ok := definition["tasks"]
	if !ok {
		errs = append(errs, "workflow must have tasks")
		return errs
	}

	taskList, ok := rawTasks.([]interface{})
	if !ok || len(taskList) == 0 {
		errs = append(errs, "tasks must be a non-empty list")
		return errs
	}

	type task struct {
		id           string
		hasID        bool
		hasCommand   bool
		dependencies []string
	}

	tasks := make([]task, 0, len(taskList))
	taskIDs := make(map[string]bool, len(taskList))

	for _, raw := range taskList {
		m, _ := raw.(map[string]interface{})

		t := task{}
		if idVal, ok := m["id"]; ok {
			if id, ok := idVal.(string); ok && id != "" {
				t.id = id
				t.hasID = true
			}
		}
		if _, ok := m["command"]; ok {
			t.hasCommand = true
		}
		if depsVal, ok := m["dependencies"]; ok {
			if depsList, ok := depsVal.([]interface{}); ok {
				for _, d := range depsList {
					if dep, ok := d.(string); ok {
						t.dependencies = append(t.dependencies, dep)
					}
				}
			}
		}

		tasks = append(tasks, t)
		if t.hasID {
			taskIDs[t.id] = true
		}
	}

	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if !t.hasID {
			errs = append(errs, "task missing id")
			continue
		}
		if !t.hasCommand {
			errs = append(errs, fmt.Sprintf("task %q missing command", t.id))
		}
		if seen[t.id] {
			errs = append(errs, fmt.Sprintf("duplicate task id %q", t.id))
		}
		seen[t.id] = true
	}

	for _, t := range tasks {
		if !t.hasID {
			continue
		}
		for _, dep := range t.dependencies {
			if !taskIDs[dep] {
				errs = append(errs, fmt.Sprintf("task %q has unknown dependency %q", t.id, dep))
			}
		}
	}

	if len(errs) == 0 {
		adj := make(map[string][]string, len(tasks))
		order := make([]string, 0, len(tasks))
		for _, t := range tasks {
			adj[t.id] = t.dependencies
			order = append(order, t.id)
		}
		if cycleErr := detectCycle(order, adj); cycleErr != "" {
			errs = append(errs, cycleErr)
		}
	}

	return errs
}

// color marks DFS visitation state for three-color cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// detectCycle walks the dependency edges with three-color DFS. Encountering
// a gray neighbor means a cycle; a self-dependency is caught the same way,
// since a task is gray while its own dependency list is being walked.
func detectCycle(order []string, adj map[string][]string) string {
	colors := make(map[string]color, len(order))
	var found string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		for _, dep := range adj[id] {
			switch colors[dep] {
			case gray:
				found = fmt.Sprintf("cycle detected involving task %q", dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		colors[id] = black
		return false
	}

	for _, id := range order {
		if colors[id] == white {
			if visit(id) {
				return found
			}
		}
	}

	return ""
}

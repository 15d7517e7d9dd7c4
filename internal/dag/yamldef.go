package dag

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// yamlTask mirrors the wire task shape for YAML decoding.
type yamlTask struct {
	ID           string   `yaml:"id"`
	Command      string   `yaml:"command"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	MaxRetries   int      `yaml:"max_retries,omitempty"`
}

// yamlDefinition mirrors the wire workflow definition shape for YAML
// decoding.
type yamlDefinition struct {
	ID    string     `yaml:"id"`
	Tasks []yamlTask `yaml:"tasks"`
}

// ParseYAMLDefinition decodes a YAML-encoded workflow registration body into
// the same dynamic-map shape the JSON path produces, so both feed the same
// Validate call. YAML is accepted on input only; stored and returned
// definitions are always JSON.
func ParseYAMLDefinition(data []byte) (map[string]interface{}, error) {
	var yd yamlDefinition
	if err := yaml.Unmarshal(data, &yd); err != nil {
		return nil, fmt.Errorf("invalid yaml workflow definition: %w", err)
	}

	tasks := make([]interface{}, 0, len(yd.Tasks))
	for _, t := range yd.Tasks {
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

	return map[string]interface{}{
		"id":    yd.ID,
		"tasks": tasks,
	}, nil
}

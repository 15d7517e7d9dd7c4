// Package state holds the TaskInstance/Run state machine plus the audit
// trail and live-feed observers layered on top of every transition.
package state

import (
	"fmt"

	"github.com/airflow-mini/orchestrator/pkg/models"
)

// taskTransitions enumerates the legal edges of the TaskInstance state
// machine.
var taskTransitions = map[models.TaskState][]models.TaskState{
	models.TaskPending:  {models.TaskRunning},
	models.TaskRunning:  {models.TaskSuccess, models.TaskRetrying, models.TaskFailed, models.TaskPending},
	models.TaskRetrying: {models.TaskPending},
	models.TaskSuccess:  {},
	models.TaskFailed:   {},
}

// runTransitions enumerates the legal edges of the Run state machine.
var runTransitions = map[models.RunState][]models.RunState{
	models.RunPending: {models.RunRunning},
	models.RunRunning: {models.RunSuccess, models.RunFailed},
	models.RunSuccess: {},
	models.RunFailed:  {},
}

// CanTransitionTask reports whether old -> next is a legal TaskInstance edge.
func CanTransitionTask(old, next models.TaskState) bool {
	for _, allowed := range taskTransitions[old] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanTransitionRun reports whether old -> next is a legal Run edge.
func CanTransitionRun(old, next models.RunState) bool {
	for _, allowed := range runTransitions[old] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned by Manager.Transition* when the edge is
// not legal.
type ErrInvalidTransition struct {
	EntityType string
	From, To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.EntityType, e.From, e.To)
}

// TransitionEvent is published whenever a TaskInstance or Run changes
// state, for the audit trail and live-feed observers (supplement — does
// not affect the core state machine's invariants).
type TransitionEvent struct {
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	OldState   string                 `json:"old_state,omitempty"`
	NewState   string                 `json:"new_state"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// EventPublisher observes transitions after they've already been committed
// to the store. A publisher failure never blocks or reverses the write.
type EventPublisher interface {
	Publish(event TransitionEvent) error
}

// NoOpPublisher discards every event; used in tests and wherever no
// observer is configured.
type NoOpPublisher struct{}

// Publish implements EventPublisher.
func (NoOpPublisher) Publish(TransitionEvent) error { return nil }

// Manager validates a transition and then fans it out to a publisher. It
// does not itself perform the store write; callers apply the write first.
// The write is the thing that matters. Validation and publication are
// read-only observers layered on top.
type Manager struct {
	publisher EventPublisher
}

// NewManager creates a Manager that publishes through pub.
func NewManager(pub EventPublisher) *Manager {
	if pub == nil {
		pub = NoOpPublisher{}
	}
	return &Manager{publisher: pub}
}

// RecordTaskTransition validates a TaskInstance edge and publishes it. The
// caller must have already (or will, atomically) committed the write.
func (m *Manager) RecordTaskTransition(taskInstanceID string, old, next models.TaskState) error {
	if old != "" && !CanTransitionTask(old, next) {
		return &ErrInvalidTransition{EntityType: "task_instance", From: string(old), To: string(next)}
	}
	return m.publisher.Publish(TransitionEvent{
		EntityType: "task_instance",
		EntityID:   taskInstanceID,
		OldState:   string(old),
		NewState:   string(next),
	})
}

// RecordRunTransition validates a Run edge and publishes it.
func (m *Manager) RecordRunTransition(runID string, old, next models.RunState) error {
	if old != "" && !CanTransitionRun(old, next) {
		return &ErrInvalidTransition{EntityType: "run", From: string(old), To: string(next)}
	}
	return m.publisher.Publish(TransitionEvent{
		EntityType: "run",
		EntityID:   runID,
		OldState:   string(old),
		NewState:   string(next),
	})
}

package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airflow-mini/orchestrator/internal/state"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

func TestCanTransitionTask(t *testing.T) {
	cases := []struct {
		from, to models.TaskState
		want     bool
	}{
		{models.TaskPending, models.TaskRunning, true},
		{models.TaskRunning, models.TaskSuccess, true},
		{models.TaskRunning, models.TaskRetrying, true},
		{models.TaskRunning, models.TaskFailed, true},
		{models.TaskRunning, models.TaskPending, true},
		{models.TaskRetrying, models.TaskPending, true},
		{models.TaskPending, models.TaskSuccess, false},
		{models.TaskSuccess, models.TaskPending, false},
		{models.TaskFailed, models.TaskRunning, false},
		{models.TaskRetrying, models.TaskRunning, false},
	}

	for _, c := range cases {
		got := state.CanTransitionTask(c.from, c.to)
		assert.Equalf(t, c.want, got, "%s -> %s", c.from, c.to)
	}
}

func TestCanTransitionRun(t *testing.T) {
	cases := []struct {
		from, to models.RunState
		want     bool
	}{
		{models.RunPending, models.RunRunning, true},
		{models.RunRunning, models.RunSuccess, true},
		{models.RunRunning, models.RunFailed, true},
		{models.RunSuccess, models.RunRunning, false},
		{models.RunFailed, models.RunRunning, false},
		{models.RunPending, models.RunSuccess, false},
	}

	for _, c := range cases {
		got := state.CanTransitionRun(c.from, c.to)
		assert.Equalf(t, c.want, got, "%s -> %s", c.from, c.to)
	}
}

type recordingPublisher struct {
	events []state.TransitionEvent
}

func (p *recordingPublisher) Publish(e state.TransitionEvent) error {
	p.events = append(p.events, e)
	return nil
}

func TestManager_RecordTaskTransition_Valid(t *testing.T) {
	pub := &recordingPublisher{}
	mgr := state.NewManager(pub)

	err := mgr.RecordTaskTransition("ti-1", models.TaskPending, models.TaskRunning)

	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "task_instance", pub.events[0].EntityType)
	assert.Equal(t, "ti-1", pub.events[0].EntityID)
	assert.Equal(t, string(models.TaskPending), pub.events[0].OldState)
	assert.Equal(t, string(models.TaskRunning), pub.events[0].NewState)
}

func TestManager_RecordTaskTransition_Invalid(t *testing.T) {
	pub := &recordingPublisher{}
	mgr := state.NewManager(pub)

	err := mgr.RecordTaskTransition("ti-1", models.TaskSuccess, models.TaskPending)

	require.Error(t, err)
	assert.Empty(t, pub.events, "an invalid transition must not be published")
}

func TestManager_RecordTaskTransition_EmptyOldStateSkipsValidation(t *testing.T) {
	pub := &recordingPublisher{}
	mgr := state.NewManager(pub)

	err := mgr.RecordTaskTransition("ti-1", "", models.TaskPending)

	require.NoError(t, err, "the creation event (no prior state) should always be accepted")
	require.Len(t, pub.events, 1)
}

func TestManager_RecordRunTransition_Invalid(t *testing.T) {
	pub := &recordingPublisher{}
	mgr := state.NewManager(pub)

	err := mgr.RecordRunTransition("run-1", models.RunSuccess, models.RunRunning)

	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestNewManager_NilPublisherDefaultsToNoOp(t *testing.T) {
	mgr := state.NewManager(nil)

	err := mgr.RecordTaskTransition("ti-1", models.TaskPending, models.TaskRunning)

	assert.NoError(t, err)
}

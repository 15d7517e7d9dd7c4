// Package intake handles worker result callbacks: it updates the
// reporting TaskInstance and re-evaluates whether the owning Run has
// reached a terminal status.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airflow-mini/orchestrator/internal/dlq"
	"github.com/airflow-mini/orchestrator/internal/state"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

// ErrNotRunning is returned when a callback arrives for a task instance
// that is no longer RUNNING. A late or duplicate callback from a worker
// (retried delivery, a dispatch that was already reverted) is ignored
// rather than applied last-writer-wins.
var ErrNotRunning = errors.New("task instance is not running")

// Callback mirrors the worker result payload.
type Callback struct {
	TaskInstanceID string
	Status         models.TaskState
	Output         string
	WorkerID       string
}

// Intake applies worker callbacks and evaluates run completion.
type Intake struct {
	tasks    storage.TaskInstanceRepository
	runs     storage.RunRepository
	workflow storage.WorkflowRepository
	stateMgr *state.Manager
	dlqMgr   *dlq.Manager
}

// New builds an Intake. dlqMgr may be nil if dead-letter recording is
// disabled.
func New(
	tasks storage.TaskInstanceRepository,
	runs storage.RunRepository,
	workflow storage.WorkflowRepository,
	stateMgr *state.Manager,
	dlqMgr *dlq.Manager,
) *Intake {
	return &Intake{tasks: tasks, runs: runs, workflow: workflow, stateMgr: stateMgr, dlqMgr: dlqMgr}
}

// HandleCallback applies cb to its task instance and, if the task reached a
// terminal status, re-evaluates whether the owning run is now terminal.
func (i *Intake) HandleCallback(ctx context.Context, cb Callback) error {
	ti, err := i.tasks.Get(ctx, cb.TaskInstanceID)
	if err != nil {
		return err
	}

	if ti.Status != models.TaskRunning {
		return ErrNotRunning
	}

	now := time.Now().UTC()
	output := cb.Output
	workerID := cb.WorkerID

	var newStatus models.TaskState
	upd := storage.TaskInstanceUpdate{
		Output:     &output,
		WorkerID:   &workerID,
		FinishedAt: storage.OptionalTime{Set: true, Value: &now},
	}

	switch cb.Status {
	case models.TaskSuccess:
		newStatus = models.TaskSuccess
	case models.TaskFailed:
		if ti.RetriesLeft > 0 {
			newStatus = models.TaskRetrying
		} else {
			newStatus = models.TaskFailed
		}
	default:
		return fmt.Errorf("intake: unknown callback status %q", cb.Status)
	}
	upd.Status = &newStatus

	if err := i.tasks.Update(ctx, ti.ID, upd); err != nil {
		return fmt.Errorf("intake: failed to update task instance %s: %w", ti.ID, err)
	}

	if i.stateMgr != nil {
		_ = i.stateMgr.RecordTaskTransition(ti.ID, ti.Status, newStatus)
	}

	if newStatus == models.TaskFailed && i.dlqMgr != nil {
		ti.Status = newStatus
		ti.Output = output
		run, err := i.runs.Get(ctx, ti.RunID)
		if err == nil {
			_ = i.dlqMgr.Record(ctx, ti, run.WorkflowID)
		}
	}

	if newStatus.IsTerminal() {
		return i.evaluateRunCompletion(ctx, ti.RunID)
	}
	return nil
}

// evaluateRunCompletion checks whether the run has now reached a terminal status: all
// task instances SUCCESS means the run is SUCCESS; any FAILED (with none
// still active) means the run is FAILED; otherwise the run stays RUNNING.
func (i *Intake) evaluateRunCompletion(ctx context.Context, runID string) error {
	instances, err := i.tasks.ListByRun(ctx, runID)
	if err != nil {
		return err
	}

	allSuccess := true
	anyFailed := false
	anyActive := false

	for _, ti := range instances {
		switch ti.Status {
		case models.TaskSuccess:
		case models.TaskFailed:
			allSuccess = false
			anyFailed = true
		default:
			allSuccess = false
			anyActive = true
		}
	}

	run, err := i.runs.Get(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return nil
	}

	var newStatus models.RunState
	switch {
	case allSuccess:
		newStatus = models.RunSuccess
	case anyFailed && !anyActive:
		newStatus = models.RunFailed
	default:
		return nil
	}

	if err := i.runs.UpdateStatus(ctx, runID, newStatus, true); err != nil {
		return fmt.Errorf("intake: failed to update run %s status: %w", runID, err)
	}
	if i.stateMgr != nil {
		_ = i.stateMgr.RecordRunTransition(runID, run.Status, newStatus)
	}
	return nil
}

// Package scheduler runs the periodic tick that advances every active run:
// resetting RETRYING tasks to PENDING, finding runnable tasks, and
// dispatching them.
package scheduler

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/airflow-mini/orchestrator/internal/dag"
	"github.com/airflow-mini/orchestrator/internal/dispatch"
	"github.com/airflow-mini/orchestrator/internal/errorhandling"
	"github.com/airflow-mini/orchestrator/internal/state"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

// Scheduler is the single long-running loop that advances every active run.
type Scheduler struct {
	interval   time.Duration
	workflows  storage.WorkflowRepository
	runs       storage.RunRepository
	tasks      storage.TaskInstanceRepository
	dispatcher *dispatch.Client
	stateMgr   *state.Manager

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Scheduler.
func New(
	interval time.Duration,
	workflows storage.WorkflowRepository,
	runs storage.RunRepository,
	tasks storage.TaskInstanceRepository,
	dispatcher *dispatch.Client,
	stateMgr *state.Manager,
) *Scheduler {
	return &Scheduler{
		interval:   interval,
		workflows:  workflows,
		runs:       runs,
		tasks:      tasks,
		dispatcher: dispatcher,
		stateMgr:   stateMgr,
	}
}

// Start launches the scheduling loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(loopCtx)
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// loop ticks forever until ctx is cancelled, swallowing and logging any
// per-tick error so the loop survives.
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick loads every active run and processes each one serially. Errors from
// one run never stop the others.
func (s *Scheduler) tick(ctx context.Context) {
	runs, err := s.runs.ActiveRuns(ctx)
	if err != nil {
		log.Printf("scheduler: failed to load active runs: %v", err)
		return
	}

	for _, run := range runs {
		if err := s.processRun(ctx, run); err != nil {
			log.Printf("scheduler: %v", &errorhandling.SchedulerTickError{RunID: run.ID, Err: err})
		}
	}
}

// processRun runs the retry-reset pass then the dispatch pass for run.
func (s *Scheduler) processRun(ctx context.Context, run *models.Run) error {
	workflow, err := s.workflows.Get(ctx, run.WorkflowID)
	if err != nil {
		return err
	}

	var rawDef map[string]interface{}
	if err := json.Unmarshal(workflow.Definition, &rawDef); err != nil {
		return err
	}
	def, err := dag.DecodeDefinition(rawDef)
	if err != nil {
		return err
	}
	graph := dag.NewGraph(def)

	instances, err := s.tasks.ListByRun(ctx, run.ID)
	if err != nil {
		return err
	}

	statusByTaskID := make(map[string]models.TaskState, len(instances))
	for _, ti := range instances {
		statusByTaskID[ti.TaskID] = ti.Status
	}

	// Retry reset pass.
	for _, ti := range instances {
		if ti.Status != models.TaskRetrying {
			continue
		}
		newRetriesLeft := ti.RetriesLeft - 1
		status := models.TaskPending
		if err := s.tasks.Update(ctx, ti.ID, storage.TaskInstanceUpdate{
			Status:      &status,
			RetriesLeft: &newRetriesLeft,
			StartedAt:   storage.OptionalTime{Set: true, Value: nil},
			FinishedAt:  storage.OptionalTime{Set: true, Value: nil},
		}); err != nil {
			log.Printf("scheduler: failed to reset retrying task %s: %v", ti.ID, err)
			continue
		}
		if s.stateMgr != nil {
			_ = s.stateMgr.RecordTaskTransition(ti.ID, models.TaskRetrying, models.TaskPending)
		}
		ti.Status = models.TaskPending
		statusByTaskID[ti.TaskID] = models.TaskPending
	}

	// Dispatch pass, in load order.
	for _, ti := range instances {
		if statusByTaskID[ti.TaskID] != models.TaskPending {
			continue
		}

		depsSatisfied := true
		for _, dep := range graph.Dependencies(ti.TaskID) {
			if statusByTaskID[dep] != models.TaskSuccess {
				depsSatisfied = false
				break
			}
		}
		if !depsSatisfied {
			continue
		}

		if s.dispatcher.Dispatch(ctx, ti) {
			statusByTaskID[ti.TaskID] = models.TaskRunning
		}
	}

	return nil
}

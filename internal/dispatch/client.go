// Package dispatch sends a PENDING task instance to a worker over HTTP and
// reverts it to PENDING locally if the worker cannot be reached.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/airflow-mini/orchestrator/internal/errorhandling"
	"github.com/airflow-mini/orchestrator/internal/health"
	"github.com/airflow-mini/orchestrator/internal/state"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/models"
)

const dispatchTimeout = 5 * time.Second

// executeRequest is the payload POSTed to a worker's /execute endpoint.
type executeRequest struct {
	TaskInstanceID string `json:"task_instance_id"`
	TaskID         string `json:"task_id"`
	Command        string `json:"command"`
	CallbackURL    string `json:"callback_url"`
}

// Client round-robins dispatch across a static list of worker base URLs.
type Client struct {
	workers     []string
	nextIndex   uint64
	callbackURL string
	tasks       storage.TaskInstanceRepository
	stateMgr    *state.Manager
	httpClient  *http.Client
	health      *health.Registry
}

// SetHealthRegistry wires a per-worker circuit breaker registry into the
// client. Once set, Dispatch feeds every send outcome into it so breaker
// state is visible on /health; it never gates or reorders worker
// selection. Safe to call once at startup; nil disables tracking (the
// default).
func (c *Client) SetHealthRegistry(r *health.Registry) {
	c.health = r
}

// New builds a Client. callbackURL is the absolute URL workers should post
// results back to (the master's /internal/task-result endpoint). stateMgr
// may be nil to skip audit/live-feed recording.
func New(workers []string, callbackURL string, tasks storage.TaskInstanceRepository, stateMgr *state.Manager) *Client {
	return &Client{
		workers:     workers,
		callbackURL: callbackURL,
		tasks:       tasks,
		stateMgr:    stateMgr,
		httpClient:  &http.Client{Timeout: dispatchTimeout},
	}
}

// Dispatch selects a worker, marks the instance RUNNING, and POSTs the
// execute request. It reports whether the instance ended up RUNNING (true)
// or was reverted to PENDING (false). Both outcomes are handled entirely
// within this call; the caller only needs the return value to update its
// own in-memory view of the run.
func (c *Client) Dispatch(ctx context.Context, ti *models.TaskInstance) bool {
	if len(c.workers) == 0 {
		log.Printf("dispatch: no workers configured, leaving %s PENDING", ti.ID)
		return false
	}

	worker := c.pickWorker()

	running := models.TaskRunning
	now := time.Now().UTC()
	if err := c.tasks.Update(ctx, ti.ID, storage.TaskInstanceUpdate{
		Status:    &running,
		WorkerID:  &worker,
		StartedAt: storage.OptionalTime{Set: true, Value: &now},
	}); err != nil {
		log.Printf("dispatch: failed to mark %s RUNNING: %v", ti.ID, err)
		return false
	}
	if c.stateMgr != nil {
		_ = c.stateMgr.RecordTaskTransition(ti.ID, ti.Status, models.TaskRunning)
	}

	err := c.send(ctx, worker, ti)
	if c.health != nil {
		c.health.RecordResult(worker, err)
	}
	if err != nil {
		log.Printf("dispatch: %s: %v", ti.ID, &errorhandling.DispatchError{Worker: worker, Err: err})
		c.revert(ctx, ti.ID)
		return false
	}

	return true
}

// pickWorker round-robins across the configured workers unconditionally:
// selection never consults circuit breaker state, so a worker's breaker
// being open never skips it or reorders the rotation.
func (c *Client) pickWorker() string {
	idx := atomic.AddUint64(&c.nextIndex, 1) - 1
	return c.workers[idx%uint64(len(c.workers))]
}

func (c *Client) send(ctx context.Context, worker string, ti *models.TaskInstance) error {
	body, err := json.Marshal(executeRequest{
		TaskInstanceID: ti.ID,
		TaskID:         ti.TaskID,
		Command:        ti.Command,
		CallbackURL:    c.callbackURL,
	})
	if err != nil {
		return fmt.Errorf("encode execute request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, worker+"/execute", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("worker returned status %d", resp.StatusCode)
	}
	return nil
}

// revert reverts a failed dispatch to PENDING, without touching
// retries_left: a dispatch-failure revert is a free retry.
func (c *Client) revert(ctx context.Context, taskInstanceID string) {
	pending := models.TaskPending
	if err := c.tasks.Update(ctx, taskInstanceID, storage.TaskInstanceUpdate{
		Status:     &pending,
		WorkerID:   strPtr(""),
		StartedAt:  storage.OptionalTime{Set: true, Value: nil},
		FinishedAt: storage.OptionalTime{Set: true, Value: nil},
	}); err != nil {
		log.Printf("dispatch: failed to revert %s to PENDING: %v", taskInstanceID, err)
		return
	}
	if c.stateMgr != nil {
		_ = c.stateMgr.RecordTaskTransition(taskInstanceID, models.TaskRunning, models.TaskPending)
	}
}

func strPtr(s string) *string { return &s }

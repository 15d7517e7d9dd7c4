// Package health tracks per-worker liveness: a circuit breaker per worker
// URL for the dispatch path, plus an optional heartbeat bus workers can
// publish onto so the master's health endpoint reflects more than just
// recent dispatch outcomes.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/airflow-mini/orchestrator/internal/circuitbreaker"
)

// Registry holds one circuit breaker per worker base URL.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
	config   *circuitbreaker.Config
}

// NewRegistry builds a Registry seeded with the given worker URLs. config
// may be nil to use circuitbreaker.DefaultConfig for every worker.
func NewRegistry(workers []string, config *circuitbreaker.Config) *Registry {
	r := &Registry{
		breakers: make(map[string]*circuitbreaker.CircuitBreaker, len(workers)),
		config:   config,
	}
	for _, w := range workers {
		r.breakers[w] = circuitbreaker.New(config)
	}
	return r
}

func (r *Registry) breakerFor(worker string) *circuitbreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[worker]
	if !ok {
		cb = circuitbreaker.New(r.config)
		r.breakers[worker] = cb
	}
	return cb
}

// Allowed reports whether worker's breaker currently permits a request.
// It does not itself reserve a half-open slot; call RecordResult after the
// real attempt to do that bookkeeping.
func (r *Registry) Allowed(worker string) bool {
	return r.breakerFor(worker).GetState() != circuitbreaker.StateOpen
}

// RecordResult feeds a dispatch outcome back into worker's breaker by
// running a no-op function through Execute, which applies the same
// state machine a direct call would.
func (r *Registry) RecordResult(worker string, err error) {
	cb := r.breakerFor(worker)
	_ = cb.Execute(context.Background(), func() error { return err })
}

// WorkerStatus is one entry of a Snapshot.
type WorkerStatus struct {
	Worker          string    `json:"worker"`
	State           string    `json:"state"`
	LastStateChange time.Time `json:"last_state_change,omitempty"`
}

// Snapshot returns the current breaker state of every known worker.
func (r *Registry) Snapshot() []WorkerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]WorkerStatus, 0, len(r.breakers))
	for worker, cb := range r.breakers {
		stats := cb.GetStats()
		out = append(out, WorkerStatus{
			Worker:          worker,
			State:           stats.State.String(),
			LastStateChange: stats.LastStateChange,
		})
	}
	return out
}

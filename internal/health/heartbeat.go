package health

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// HeartbeatSubject is the NATS subject workers publish liveness pings to.
const HeartbeatSubject = "orchestrator.worker.heartbeat"

// heartbeatMessage is the wire shape of a single heartbeat ping.
type heartbeatMessage struct {
	WorkerID  string    `json:"worker_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatPublisher lets a worker process announce it is alive. Used from
// cmd/worker; the master never publishes to this subject.
type HeartbeatPublisher struct {
	conn *nats.Conn
}

// NewHeartbeatPublisher wraps an existing NATS connection. conn may be nil,
// in which case Publish is a no-op (heartbeats are a liveness supplement,
// never required for correctness).
func NewHeartbeatPublisher(conn *nats.Conn) *HeartbeatPublisher {
	return &HeartbeatPublisher{conn: conn}
}

// Publish announces workerID is alive as of now.
func (p *HeartbeatPublisher) Publish(workerID string) error {
	if p.conn == nil {
		return nil
	}
	data, err := json.Marshal(heartbeatMessage{WorkerID: workerID, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.conn.Publish(HeartbeatSubject, data)
}

// HeartbeatTracker subscribes to the heartbeat subject and records the last
// time each worker was heard from, for the master's health endpoint.
type HeartbeatTracker struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	sub      *nats.Subscription
}

// NewHeartbeatTracker subscribes conn to HeartbeatSubject. conn may be nil,
// in which case the tracker stays empty and Snapshot always returns no
// entries.
func NewHeartbeatTracker(conn *nats.Conn) (*HeartbeatTracker, error) {
	t := &HeartbeatTracker{lastSeen: make(map[string]time.Time)}
	if conn == nil {
		return t, nil
	}

	sub, err := conn.Subscribe(HeartbeatSubject, func(msg *nats.Msg) {
		var hb heartbeatMessage
		if err := json.Unmarshal(msg.Data, &hb); err != nil {
			return
		}
		t.mu.Lock()
		t.lastSeen[hb.WorkerID] = hb.Timestamp
		t.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	t.sub = sub
	return t, nil
}

// Snapshot returns the last-seen time of every worker heard from so far.
func (t *HeartbeatTracker) Snapshot() map[string]time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]time.Time, len(t.lastSeen))
	for k, v := range t.lastSeen {
		out[k] = v
	}
	return out
}

// Close unsubscribes the tracker, if it was backed by a real connection.
func (t *HeartbeatTracker) Close() error {
	if t.sub == nil {
		return nil
	}
	return t.sub.Unsubscribe()
}

// Package tasks tracks long-running background work. A task starts in
// Working, reports progress, and finishes in exactly one terminal state.
// Cancellation is cooperative: the worker polls a flag and stops at a safe
// point, there is no preemptive termination.
package tasks

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of a task.
type State string

const (
	StateWorking   State = "working"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// DefaultTTL is how long terminal tasks linger before eviction.
const DefaultTTL = 10 * time.Minute

type task struct {
	id          int64
	description string
	state       State
	progress    int
	message     string
	createdAt   time.Time
	finishedAt  time.Time
	result      string
	resultTaken bool
	errMsg      string
	cancelReq   bool
}

// Snapshot is a read-only view of a task.
type Snapshot struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	State       State     `json:"state"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Registry owns all tasks. IDs are assigned monotonically and never reused.
type Registry struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*task
	ttl    time.Duration
	now    func() time.Time
}

// NewRegistry creates a registry with the given terminal-task TTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		tasks: make(map[int64]*task),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Handle is the worker-side view of a running task.
type Handle struct {
	id int64
	r  *Registry
}

// ID returns the task identifier.
func (h *Handle) ID() int64 { return h.id }

// Begin registers a new Working task and hands back its worker handle.
func (r *Registry) Begin(description string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	r.nextID++
	t := &task{
		id:          r.nextID,
		description: description,
		state:       StateWorking,
		createdAt:   r.now(),
	}
	r.tasks[t.id] = t
	return &Handle{id: t.id, r: r}
}

// SetProgress updates the progress percentage and status message.
func (h *Handle) SetProgress(pct int, message string) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	if t, ok := h.r.tasks[h.id]; ok && t.state == StateWorking {
		t.progress = pct
		t.message = message
	}
}

// Cancelled reports whether cancellation has been requested. Workers poll
// this at safe points.
func (h *Handle) Cancelled() bool {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	t, ok := h.r.tasks[h.id]
	return ok && t.cancelReq
}

// Complete transitions the task to Completed with a JSON-encoded result.
func (h *Handle) Complete(result any) error {
	encoded := ""
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode task result: %w", err)
		}
		encoded = string(data)
	}

	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	t, ok := h.r.tasks[h.id]
	if !ok || t.state != StateWorking {
		return nil
	}
	t.state = StateCompleted
	t.progress = 100
	t.result = encoded
	t.finishedAt = h.r.now()
	return nil
}

// Fail transitions the task to Failed.
func (h *Handle) Fail(err error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	t, ok := h.r.tasks[h.id]
	if !ok || t.state != StateWorking {
		return
	}
	t.state = StateFailed
	if err != nil {
		t.errMsg = err.Error()
	}
	t.finishedAt = h.r.now()
}

// MarkCancelled is called by the worker once it has observed a cancellation
// request and stopped.
func (h *Handle) MarkCancelled() {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	t, ok := h.r.tasks[h.id]
	if !ok || t.state != StateWorking {
		return
	}
	t.state = StateCancelled
	t.finishedAt = h.r.now()
}

// Cancel requests cooperative cancellation of a Working task.
func (r *Registry) Cancel(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %d not found", id)
	}
	if t.state != StateWorking {
		return fmt.Errorf("task %d already %s", id, t.state)
	}
	t.cancelReq = true
	return nil
}

// Get returns a snapshot of the task.
func (r *Registry) Get(id int64) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	t, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot(), true
}

// List returns snapshots of all live tasks, newest first.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	out := make([]Snapshot, 0, len(r.tasks))
	for id := r.nextID; id > 0 && len(out) < len(r.tasks); id-- {
		if t, ok := r.tasks[id]; ok {
			out = append(out, t.snapshot())
		}
	}
	return out
}

// TakeResult returns a completed task's result exactly once. A second call
// reports that the result was already consumed.
func (r *Registry) TakeResult(id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return "", fmt.Errorf("task %d not found", id)
	}
	if t.state != StateCompleted {
		return "", fmt.Errorf("task %d is %s, no result available", id, t.state)
	}
	if t.resultTaken {
		return "", fmt.Errorf("task %d result already consumed", id)
	}
	t.resultTaken = true
	return t.result, nil
}

// sweepLocked evicts terminal tasks past their TTL. Working tasks are
// never evicted.
func (r *Registry) sweepLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, t := range r.tasks {
		if t.state != StateWorking && !t.finishedAt.IsZero() && t.finishedAt.Before(cutoff) {
			delete(r.tasks, id)
		}
	}
}

func (t *task) snapshot() Snapshot {
	return Snapshot{
		ID:          t.id,
		Description: t.description,
		State:       t.state,
		Progress:    t.progress,
		Message:     t.message,
		CreatedAt:   t.createdAt,
		FinishedAt:  t.finishedAt,
		Error:       t.errMsg,
	}
}

package tasks

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry(0)

	h := r.Begin("index project")
	snap, ok := r.Get(h.ID())
	require.True(t, ok)
	assert.Equal(t, StateWorking, snap.State)
	assert.Equal(t, "index project", snap.Description)

	h.SetProgress(40, "Indexing files...")
	snap, _ = r.Get(h.ID())
	assert.Equal(t, 40, snap.Progress)
	assert.Equal(t, "Indexing files...", snap.Message)

	require.NoError(t, h.Complete(map[string]int{"files": 12}))
	snap, _ = r.Get(h.ID())
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 100, snap.Progress)
	assert.False(t, snap.FinishedAt.IsZero())
}

func TestRegistry_MonotonicIDs(t *testing.T) {
	r := NewRegistry(0)
	a := r.Begin("a")
	b := r.Begin("b")
	c := r.Begin("c")
	assert.Less(t, a.ID(), b.ID())
	assert.Less(t, b.ID(), c.ID())
}

func TestRegistry_ProgressClamped(t *testing.T) {
	r := NewRegistry(0)
	h := r.Begin("t")

	h.SetProgress(150, "")
	snap, _ := r.Get(h.ID())
	assert.Equal(t, 100, snap.Progress)

	h.SetProgress(-3, "")
	snap, _ = r.Get(h.ID())
	assert.Equal(t, 0, snap.Progress)
}

func TestRegistry_CooperativeCancel(t *testing.T) {
	r := NewRegistry(0)
	h := r.Begin("t")

	assert.False(t, h.Cancelled())
	require.NoError(t, r.Cancel(h.ID()))
	assert.True(t, h.Cancelled())

	// Task is still Working until the worker acknowledges.
	snap, _ := r.Get(h.ID())
	assert.Equal(t, StateWorking, snap.State)

	h.MarkCancelled()
	snap, _ = r.Get(h.ID())
	assert.Equal(t, StateCancelled, snap.State)
}

func TestRegistry_CancelTerminalTask(t *testing.T) {
	r := NewRegistry(0)
	h := r.Begin("t")
	require.NoError(t, h.Complete(nil))

	err := r.Cancel(h.ID())
	assert.Error(t, err)
}

func TestRegistry_CancelUnknownTask(t *testing.T) {
	r := NewRegistry(0)
	assert.Error(t, r.Cancel(999))
}

func TestRegistry_TerminalStateIsFinal(t *testing.T) {
	r := NewRegistry(0)
	h := r.Begin("t")
	h.Fail(errors.New("boom"))

	// Later transitions are ignored.
	require.NoError(t, h.Complete("late"))
	h.MarkCancelled()

	snap, _ := r.Get(h.ID())
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "boom", snap.Error)
}

func TestRegistry_TakeResultOnce(t *testing.T) {
	r := NewRegistry(0)
	h := r.Begin("t")
	require.NoError(t, h.Complete(map[string]string{"ok": "yes"}))

	result, err := r.TakeResult(h.ID())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":"yes"}`, result)

	_, err = r.TakeResult(h.ID())
	assert.ErrorContains(t, err, "already consumed")
}

func TestRegistry_TakeResultRequiresCompletion(t *testing.T) {
	r := NewRegistry(0)
	h := r.Begin("t")

	_, err := r.TakeResult(h.ID())
	assert.Error(t, err)
}

func TestRegistry_TTLEvictsOnlyTerminalTasks(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	working := r.Begin("working")
	finished := r.Begin("finished")
	require.NoError(t, finished.Complete(nil))

	// Past the TTL the finished task is swept, the working one survives.
	now = now.Add(2 * time.Minute)
	_, ok := r.Get(finished.ID())
	assert.False(t, ok)
	_, ok = r.Get(working.ID())
	assert.True(t, ok)
}

func TestRegistry_ListNewestFirst(t *testing.T) {
	r := NewRegistry(0)
	r.Begin("first")
	r.Begin("second")
	r.Begin("third")

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Description)
	assert.Equal(t, "first", list[2].Description)
}

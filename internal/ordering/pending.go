package ordering

import (
	"context"

	"github.com/tada-app/tada/internal/types"
)

// Patch is a single-task reorder write: a new order key and, on
// cross-bucket moves, a due date change.
type Patch struct {
	TaskID string

	Order    float64
	SetOrder bool

	DueDate *types.Millis // nil clears the due date when SetDue is true
	SetDue  bool

	Bucket    types.Bucket
	SetBucket bool

	UpdatedAt types.Millis
}

// Committer persists a batch of reorder patches atomically.
type Committer interface {
	CommitReorder(ctx context.Context, patches []Patch) error
}

// PendingBuffer models optimistic reorder writes: patches apply to the
// in-memory view immediately and flush to storage afterwards. A failed
// flush rolls the view back so no speculative state survives.
type PendingBuffer struct {
	view    map[string]*types.Task
	saved   map[string]*types.Task
	pending []Patch
}

// NewPendingBuffer wraps the current view snapshot. The buffer owns copies;
// callers read the optimistic state back through Task/Tasks.
func NewPendingBuffer(tasks []*types.Task) *PendingBuffer {
	b := &PendingBuffer{
		view:  make(map[string]*types.Task, len(tasks)),
		saved: make(map[string]*types.Task),
	}
	for _, t := range tasks {
		b.view[t.ID] = t.Clone()
	}
	return b
}

// Task returns the optimistic state of one task, or nil if unknown.
func (b *PendingBuffer) Task(id string) *types.Task {
	return b.view[id]
}

// Tasks returns the optimistic view in deterministic view order.
func (b *PendingBuffer) Tasks() []*types.Task {
	out := make([]*types.Task, 0, len(b.view))
	for _, t := range b.view {
		out = append(out, t)
	}
	types.SortTasksForView(out)
	return out
}

// Stage applies a patch to the view and queues it for the next Flush.
// Staging a patch for an unknown task returns ErrStaleReference.
func (b *PendingBuffer) Stage(p Patch) error {
	t, ok := b.view[p.TaskID]
	if !ok {
		return ErrStaleReference
	}
	if _, kept := b.saved[p.TaskID]; !kept {
		b.saved[p.TaskID] = t.Clone()
	}
	if p.SetOrder {
		t.Order = p.Order
	}
	if p.SetDue {
		t.DueDate = p.DueDate
	}
	if p.SetBucket {
		t.GroupCategory = p.Bucket
	}
	if p.UpdatedAt != 0 {
		t.UpdatedAt = p.UpdatedAt
	}
	b.pending = append(b.pending, p)
	return nil
}

// Pending returns the queued patches.
func (b *PendingBuffer) Pending() []Patch {
	return b.pending
}

// Flush commits all queued patches. On success the buffer's saved state is
// discarded; on failure the view rolls back and the error surfaces.
func (b *PendingBuffer) Flush(ctx context.Context, c Committer) error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := c.CommitReorder(ctx, b.pending); err != nil {
		b.Rollback()
		return err
	}
	b.saved = make(map[string]*types.Task)
	b.pending = nil
	return nil
}

// Rollback restores the view to its pre-staging state and drops the queue.
func (b *PendingBuffer) Rollback() {
	for id, t := range b.saved {
		b.view[id] = t
	}
	b.saved = make(map[string]*types.Task)
	b.pending = nil
}

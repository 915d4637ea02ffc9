// Package history keeps a bounded undo/redo history of snapshots.
package history

import "fmt"

// DefaultCapacity is the number of snapshots kept when none is configured.
const DefaultCapacity = 10

// Queue is a bounded history of snapshots with a cursor. Entries at or
// before the cursor are states that Undo can return to; entries after it
// are states that Redo can return to.
//
// Undo and Redo swap: the caller hands over its current value and gets the
// stored one back, so a Queue never holds the caller's live value and a
// single slot serves both directions.
//
// Not safe for concurrent use.
type Queue[T any] struct {
	items    []T
	cursor   int
	capacity int
	clone    func(T) T
}

// New returns an empty queue holding at most capacity snapshots. clone
// deep-copies a value on Push; nil stores values as given.
func New[T any](capacity int, clone func(T) T) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Queue[T]{cursor: -1, capacity: capacity, clone: clone}
}

// Push records a copy of prev, the state just before an edit. It discards
// any redo history and evicts the oldest snapshot past capacity.
func (q *Queue[T]) Push(prev T) {
	var zero T
	for i := q.cursor + 1; i < len(q.items); i++ {
		q.items[i] = zero
	}
	q.items = append(q.items[:q.cursor+1], q.clone(prev))
	if len(q.items) > q.capacity {
		q.items[0] = zero
		q.items = q.items[1:]
	}
	q.cursor = len(q.items) - 1
}

// Undo exchanges current for the snapshot at the cursor and steps back.
// It returns false, leaving the queue as it was, when there is nothing to
// undo.
func (q *Queue[T]) Undo(current T) (T, bool) {
	if !q.CanUndo() {
		var zero T
		return zero, false
	}
	prev := q.items[q.cursor]
	q.items[q.cursor] = current
	q.cursor--
	return prev, true
}

// Redo steps forward and exchanges current for the snapshot there.
func (q *Queue[T]) Redo(current T) (T, bool) {
	if !q.CanRedo() {
		var zero T
		return zero, false
	}
	q.cursor++
	next := q.items[q.cursor]
	q.items[q.cursor] = current
	return next, true
}

func (q *Queue[T]) CanUndo() bool { return q.cursor >= 0 }

func (q *Queue[T]) CanRedo() bool { return q.cursor+1 < len(q.items) }

// Len returns the number of stored snapshots.
func (q *Queue[T]) Len() int { return len(q.items) }

// Cap returns the maximum number of snapshots.
func (q *Queue[T]) Cap() int { return q.capacity }

// Cursor returns the index of the snapshot Undo would return, -1 when none.
func (q *Queue[T]) Cursor() int { return q.cursor }

// Snapshots returns copies of the stored snapshots, oldest first.
func (q *Queue[T]) Snapshots() []T {
	out := make([]T, len(q.items))
	for i, v := range q.items {
		out[i] = q.clone(v)
	}
	return out
}

// Restore replaces the queue contents, as saved by Snapshots and Cursor.
// Snapshots beyond capacity are dropped from the oldest end.
func (q *Queue[T]) Restore(items []T, cursor int) error {
	if cursor < -1 || cursor >= len(items) {
		return fmt.Errorf("history cursor %d out of range for %d snapshots", cursor, len(items))
	}
	if drop := len(items) - q.capacity; drop > 0 {
		items = items[drop:]
		cursor = max(cursor-drop, -1)
	}
	q.items = make([]T, len(items))
	for i, v := range items {
		q.items[i] = q.clone(v)
	}
	q.cursor = cursor
	return nil
}

// Package task provides a single-assignment future used to model in-flight
// backend calls.
package task

import (
	"context"
	"sync"
)

// State is the lifecycle stage of a Task.
type State int

const (
	Pending State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task holds the eventual outcome of an asynchronous operation.
// It completes exactly once; later completions are ignored.
type Task[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}
}

// New returns a pending task.
func New[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns a task completed with its outcome.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := New[T]()
	go func() {
		t.Complete(fn())
	}()
	return t
}

// Resolve completes the task with a value. It reports whether this call
// completed the task.
func (t *Task[T]) Resolve(v T) bool {
	return t.Complete(v, nil)
}

// Fail completes the task with an error.
func (t *Task[T]) Fail(err error) bool {
	var zero T
	return t.Complete(zero, err)
}

// Complete resolves the task when err is nil and fails it otherwise.
func (t *Task[T]) Complete(v T, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending {
		return false
	}
	if err != nil {
		t.state = Failed
		t.err = err
	} else {
		t.state = Resolved
		t.value = v
	}
	close(t.done)
	return true
}

// State returns the current lifecycle stage.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed once the task has completed.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (t *Task[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// Wait blocks until the task completes or ctx ends. Giving up on the wait
// does not stop the underlying operation.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

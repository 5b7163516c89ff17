package deploy

import (
	"context"
	"errors"
	"sync"
)

// Task is a cancellable background operation.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	once sync.Once
	err  error
}

// StartTask runs fn in a goroutine with a context derived from parent.
func StartTask(parent context.Context, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.err = fn(ctx)
	}()
	return t
}

// Cancel asks the task to stop. It does not wait.
func (t *Task) Cancel() {
	t.once.Do(t.cancel)
}

// Wait blocks until the task returns. Cancellation is not reported as an error.
func (t *Task) Wait() error {
	<-t.done
	if errors.Is(t.err, context.Canceled) {
		return nil
	}
	return t.err
}

// Stop cancels the task and waits for it.
func (t *Task) Stop() error {
	t.Cancel()
	return t.Wait()
}

package app

import (
	"context"
	"errors"
)

// ErrStopped is returned by Run when the dispatch loop is not running.
var ErrStopped = errors.New("dispatch loop stopped")

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context)
	done chan struct{}
}

// loopRunner submits functions to the dispatch loop.
type loopRunner struct {
	jobs    chan<- job
	stopped <-chan struct{}
}

// Run executes fn on the dispatch loop and waits for it to return.
func (r loopRunner) Run(ctx context.Context, fn func(ctx context.Context)) error {
	j := job{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case r.jobs <- j:
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-j.done:
		return nil
	case <-r.stopped:
		return ErrStopped
	}
}

package application

import (
	"context"
	"sync"
	"time"
)

// Task is an owned repeating background job. It runs fn once per interval on
// its own goroutine until Stop is called or the parent context ends. Calls to
// fn never overlap within one Task.
type Task struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

type TaskOptions struct {
	// Immediate runs fn once before the first interval elapses.
	Immediate bool
}

func StartTask(parent context.Context, interval time.Duration, opts TaskOptions, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)

		if opts.Immediate {
			fn(ctx)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()

	return t
}

// Stop cancels the task and waits for an in-progress run to return. No run
// starts after Stop returns.
func (t *Task) Stop() {
	t.stopOnce.Do(t.cancel)
	<-t.done
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

package summary

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Dispatcher runs pipeline tasks detached from the request that started
// them. Tasks share a root context that only Shutdown cancels.
type Dispatcher struct {
	root   context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	inflight atomic.Int64
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	root, cancel := context.WithCancel(context.Background())
	return &Dispatcher{root: root, cancel: cancel, log: log}
}

// Go starts fn in its own goroutine. It returns false once Shutdown has begun.
// A panic in fn is logged and does not take the process down.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context)) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("task rejected, dispatcher closed", "task", name)
		return false
	}
	d.wg.Add(1)
	d.inflight.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer d.inflight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("task panicked", "task", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
		}()
		fn(d.root)
	}()
	return true
}

// InFlight is the number of running tasks.
func (d *Dispatcher) InFlight() int64 { return d.inflight.Load() }

// Shutdown stops accepting tasks and waits for running ones. If ctx ends
// first the remaining tasks are cancelled, logged as abandoned and
// ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		abandoned := d.inflight.Load()
		d.cancel()
		d.log.Warn("dispatcher shutdown timed out", "abandoned_tasks", abandoned)
		return ctx.Err()
	}
}

package plugin

import (
	"context"
	"runtime/debug"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 32

// Future is the result of a submitted hook body.
type Future struct {
	done chan struct{}
	out  any
	err  error
}

func completed(out any, err error) *Future {
	f := &Future{done: make(chan struct{}), out: out, err: err}
	close(f.done)
	return f
}

// Wait blocks until the body returns. Context cancellation is not observed
// here, so a running body keeps its exclusivity gate until it finishes.
func (f *Future) Wait() (any, error) {
	<-f.done
	return f.out, f.err
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Pool runs blocking hook bodies on at most size goroutines at a time.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool; size <= 0 selects DefaultWorkers.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultWorkers
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the worker bound.
func (p *Pool) Size() int { return p.size }

// Submit runs fn according to mode. Cooperative bodies run inline and the
// returned Future is already complete; blocking bodies wait for a free
// worker (honouring ctx) and run on their own goroutine.
func (p *Pool) Submit(ctx context.Context, mode Mode, fn func(ctx context.Context) (any, error)) *Future {
	if mode == ModeCooperative {
		out, err := call(ctx, fn)
		return completed(out, err)
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return completed(nil, err)
	}
	f := &Future{done: make(chan struct{})}
	go func() {
		defer p.sem.Release(1)
		defer close(f.done)
		f.out, f.err = call(ctx, fn)
	}()
	return f
}

// call runs fn and converts a panic into a *PanicError.
func call(ctx context.Context, fn func(ctx context.Context) (any, error)) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ErrPoolShutdown is returned when submitting to a Pool that has been shut down.
var ErrPoolShutdown = errors.New("pool has been shut down")

// Func is a unit of work run by a Pool. ctx is cancelled by Pool.ShutdownNow.
type Func func(ctx context.Context) error

// Future is the pending result of a Func submitted to a Pool.
type Future struct {
	fn   Func
	done chan struct{}
	err  error
}

// Done is closed once the task has returned, or has been dropped by ShutdownNow before starting.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the task's error. Only meaningful once Done is closed.
func (f *Future) Err() error {
	return f.err
}

// Wait blocks until the task completes or ctx is done, whichever happens first.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Future) complete(err error) {
	f.err = err
	close(f.done)
}

// Pool runs submitted tasks on a fixed number of goroutines, queueing any excess.
// A pool cannot be restarted once shut down; create one per unit of work.
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Future
	closed  bool
	running int32
	wg      sync.WaitGroup
}

// NewPool starts size goroutines. Sizes below one are treated as one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{ctx: ctx, cancel: cancel}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.loop()
	}
	return p
}

// Submit queues fn for execution.
func (p *Pool) Submit(fn Func) (*Future, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolShutdown
	}
	f := &Future{fn: fn, done: make(chan struct{})}
	p.queue = append(p.queue, f)
	p.cond.Signal()
	return f, nil
}

// Shutdown stops accepting new tasks. Queued and running tasks still run to completion.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
}

// AwaitTermination waits up to timeout for every pool goroutine to exit after Shutdown.
// Returns true if they all exited.
func (p *Pool) AwaitTermination(timeout time.Duration) bool {
	return waitWithTimeout(&p.wg, timeout)
}

// ShutdownNow cancels the context of running tasks and drops queued tasks, whose futures complete
// with context.Canceled. Returns the number of tasks dropped. Running tasks that ignore their
// context keep their goroutine until they return.
func (p *Pool) ShutdownNow() int {
	p.cancel()
	p.mu.Lock()
	dropped := p.queue
	p.queue = nil
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	for _, f := range dropped {
		f.complete(context.Canceled)
	}
	return len(dropped)
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int {
	return int(atomic.LoadInt32(&p.running))
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		f := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		f.complete(p.run(f.fn))
	}
}

func (p *Pool) run(fn Func) (err error) {
	atomic.AddInt32(&p.running, 1)
	defer atomic.AddInt32(&p.running, -1)
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithStack(fmt.Errorf("task panicked: %v", r))
		}
	}()
	return fn(p.ctx)
}

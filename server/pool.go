package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolStopped is returned by Do once the pool has been stopped.
var ErrPoolStopped = errors.New("worker pool stopped")

// poolRequest represents a unit of work to be executed on a worker.
type poolRequest struct {
	fn   func()
	done chan error
}

// Pool runs submitted functions on a fixed number of goroutines, bounding
// how many programs execute at once. Each function owns its own machine;
// the pool only limits concurrency.
type Pool struct {
	requests chan poolRequest
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPool creates a Pool and starts its workers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		requests: make(chan poolRequest),
		quit:     make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

// loop processes requests until the pool is stopped.
func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		select {
		case req := <-p.requests:
			req.done <- p.execute(req.fn)
		case <-p.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (p *Pool) execute(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}

// Do waits for a free worker, runs fn on it and blocks until fn returns.
// If ctx ends before a worker is free, fn is not run. Once started, fn runs
// to completion; it is expected to watch ctx itself.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	req := poolRequest{
		fn:   fn,
		done: make(chan error, 1),
	}
	select {
	case p.requests <- req:
	case <-p.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.done
}

// Stop shuts down the workers and waits for running functions to return.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// internal/worker/pool.go
package worker

import (
	"sync"
)

// Pool bounds the number of tasks running at once.
type Pool struct {
	wg      sync.WaitGroup
	workers chan struct{}
}

// NewPool creates a new worker pool with the specified number of workers.
// Sizes below one run tasks one at a time.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		workers: make(chan struct{}, size),
	}
}

// Submit blocks until a worker is free, then runs task on it.
func (p *Pool) Submit(task func()) {
	p.workers <- struct{}{} // Acquire a worker
	p.wg.Add(1)

	go func() {
		defer func() {
			<-p.workers // Release the worker
			p.wg.Done()
		}()

		task()
	}()
}

// Wait waits for all tasks to complete
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Map runs fn over items on a pool of size workers and returns the results
// in input order.
func Map[T, R any](size int, items []T, fn func(i int, item T) R) []R {
	results := make([]R, len(items))
	pool := NewPool(size)
	for i, item := range items {
		pool.Submit(func() {
			results[i] = fn(i, item)
		})
	}
	pool.Wait()
	return results
}

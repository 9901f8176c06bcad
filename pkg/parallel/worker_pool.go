// Package parallel runs independent per-ray and per-cell work on a bounded
// set of goroutines. Callers write results into index-addressed slots so the
// merged output does not depend on scheduling.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // protects taskQueue from concurrent close during send
	closed    bool

	panicMu sync.Mutex
	panics  []error
}

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// ErrTaskPanicked wraps a panic recovered inside a task.
var ErrTaskPanicked = errors.New("task panicked")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewWorkerPool creates a new worker pool with specified number of workers.
// Non-positive counts default to runtime.NumCPU().
func NewWorkerPool(workers int) (*WorkerPool, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
	}
	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

// Workers returns the number of goroutines serving the pool.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.panicMu.Lock()
					wp.panics = append(wp.panics, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
					wp.panicMu.Unlock()
				}
			}()
			task()
		}()
	}
}

// Submit adds a task to the worker pool.
// Returns false if the pool is closed, true if task was submitted.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	wp.taskQueue <- task
	return true
}

// Close stops accepting tasks and waits for the queued ones to finish.
// It returns the panics recovered from tasks, joined.
func (wp *WorkerPool) Close() error {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()

	wp.panicMu.Lock()
	defer wp.panicMu.Unlock()
	return errors.Join(wp.panics...)
}

// Wait waits for all submitted tasks to complete
func (wp *WorkerPool) Wait() error {
	return wp.Close()
}

// ForEach calls fn(i) for every i in [0, n) using up to workers goroutines.
// The index range is cut into contiguous chunks. The first error returned by
// fn (lowest index wins) is returned. With n below minParallel the loop runs
// inline on the calling goroutine.
func ForEach(ctx context.Context, n, workers int, fn func(i int) error) error {
	const minParallel = 64
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if n < minParallel || workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	pool, err := NewWorkerPool(workers)
	if err != nil {
		return err
	}

	chunks := workers * 4
	if chunks > n {
		chunks = n
	}
	size := (n + chunks - 1) / chunks
	errs := make([]error, chunks)

	for c := 0; c < chunks; c++ {
		lo := c * size
		hi := min(lo+size, n)
		if lo >= hi {
			break
		}
		slot := c
		pool.Submit(func() {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					errs[slot] = err
					return
				}
				if err := fn(i); err != nil {
					errs[slot] = err
					return
				}
			}
		})
	}

	if perr := pool.Close(); perr != nil {
		return perr
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

package util

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

var (
	ErrProcessStopped   = fmt.Errorf("worker process has stopped")
	ErrContextCancelled = fmt.Errorf("worker context cancelled")
	ErrWorkPanicked     = fmt.Errorf("work item panicked")
)

type WorkItemResult[T any] struct {
	Index  int
	Worker string
	Data   T
	Err    error
	Time   time.Duration
}

type WorkItem[T any] func(context.Context) (T, error)

type worker[T any] struct {
	Name  string
	Queue chan *worker[T]
}

func (w *worker[T]) Do(ctx context.Context, index int, r chan<- WorkItemResult[T], wrk WorkItem[T]) {
	start := time.Now()
	result := WorkItemResult[T]{
		Index:  index,
		Worker: w.Name,
	}

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				result.Err = fmt.Errorf("%w: %v\n%s", ErrWorkPanicked, rec, debug.Stack())
			}
		}()

		result.Data, result.Err = wrk(ctx)
	}()

	result.Time = time.Since(start)

	// result channels are sized by the caller so this never blocks
	r <- result

	// put itself back on the queue when done
	w.Queue <- w
}

// WorkerGroup runs work items on a fixed number of named workers. Do blocks
// until a worker is free, so at most maxWorkers items run at once.
type WorkerGroup[T any] struct {
	maxWorkers int
	workers    chan *worker[T]
	running    sync.WaitGroup
	stopped    bool
	mu         sync.Mutex
}

func NewWorkerGroup[T any](workers int) *WorkerGroup[T] {
	if workers < 1 {
		workers = 1
	}

	wg := &WorkerGroup[T]{
		maxWorkers: workers,
		workers:    make(chan *worker[T], workers),
	}

	for i := 0; i < workers; i++ {
		wg.workers <- &worker[T]{
			Name:  fmt.Sprintf("worker-%d", i+1),
			Queue: wg.workers,
		}
	}

	return wg
}

// Do hands w to the next free worker. The result is sent on r tagged with
// index. This function blocks until a worker frees up or the context is
// cancelled.
func (wg *WorkerGroup[T]) Do(ctx context.Context, index int, w WorkItem[T], r chan<- WorkItemResult[T]) error {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	if ctx.Err() != nil {
		return fmt.Errorf("%w; work not added to queue", ErrContextCancelled)
	}

	if wg.stopped {
		return fmt.Errorf("%w; work not added to queue", ErrProcessStopped)
	}

	select {
	case wkr := <-wg.workers:
		wg.running.Add(1)

		go func() {
			defer wg.running.Done()
			wkr.Do(ctx, index, r, w)
		}()

		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w; work not added to queue", ErrContextCancelled)
	}
}

// Size is the number of workers in the group.
func (wg *WorkerGroup[T]) Size() int {
	return wg.maxWorkers
}

// Stop refuses new work and waits for running items to finish.
func (wg *WorkerGroup[T]) Stop() {
	wg.mu.Lock()
	wg.stopped = true
	wg.mu.Unlock()

	wg.running.Wait()
}

// RunJobs runs fn for every job on the group and returns one result per job
// in job order. Jobs that could not be queued carry the queueing error.
func RunJobs[J any, T any](ctx context.Context, wg *WorkerGroup[T], jobs []J, fn func(context.Context, J) (T, error)) []WorkItemResult[T] {
	out := make([]WorkItemResult[T], len(jobs))
	results := make(chan WorkItemResult[T], len(jobs))

	queued := 0

	for i, job := range jobs {
		job := job

		if err := wg.Do(ctx, i, func(c context.Context) (T, error) {
			return fn(c, job)
		}, results); err != nil {
			for j := i; j < len(jobs); j++ {
				out[j] = WorkItemResult[T]{Index: j, Err: err}
			}

			break
		}

		queued++
	}

	for ; queued > 0; queued-- {
		r := <-results
		out[r.Index] = r
	}

	return out
}

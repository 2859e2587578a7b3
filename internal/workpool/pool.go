package workpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskExecutor accepts units of work. Implementations may run the task on
// another goroutine and may block until capacity is available.
type TaskExecutor interface {
	Execute(task func())
}

// Result is the outcome of one task of a phase.
type Result[T any] struct {
	Value T
	Err   error
}

// Run submits n tasks to exec and blocks until every one of them has
// returned. The wait is unconditional: ctx is handed to the tasks but does
// not cut the barrier short. A panicking task is reported as that task's
// error.
func Run[T any](ctx context.Context, exec TaskExecutor, n int, fn func(ctx context.Context, i int) (T, error)) []Result[T] {
	if n <= 0 {
		return nil
	}
	results := make([]Result[T], n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		idx := i
		exec.Execute(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[idx] = Result[T]{Err: fmt.Errorf("task %d panicked: %v", idx, r)}
				}
			}()
			value, err := fn(ctx, idx)
			results[idx] = Result[T]{Value: value, Err: err}
		})
	}
	wg.Wait()
	return results
}

// Pool is a bounded TaskExecutor. Execute blocks while all workers are busy.
type Pool struct {
	workers int
	group   errgroup.Group
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{workers: workers}
	p.group.SetLimit(workers)
	return p
}

func (p *Pool) Execute(task func()) {
	p.group.Go(func() error {
		task()
		return nil
	})
}

func (p *Pool) Workers() int {
	return p.workers
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	_ = p.group.Wait()
}

// Inline runs every task on the caller's goroutine.
type Inline struct{}

func (Inline) Execute(task func()) {
	task()
}

// Package parallel runs independent units of work and waits for all of them.
//
// An Executor accepts a batch of tasks, runs them (possibly concurrently),
// waits for every started task to return, and reports the first failure.
// Callers that need results use Map, which keeps them in input order no
// matter which task finishes first.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work.
type Task func(ctx context.Context) error

// Executor runs a batch of tasks to completion.
type Executor interface {
	Execute(ctx context.Context, tasks []Task) error
}

// PanicError is returned in place of a task that panicked.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Group runs tasks on goroutines, at most Limit at a time. A zero or
// negative Limit uses GOMAXPROCS. Once a task fails the shared context is
// cancelled; Execute still waits for tasks already running.
type Group struct {
	Limit int
}

// Execute implements Executor.
func (g Group) Execute(ctx context.Context, tasks []Task) error {
	limit := g.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for _, task := range tasks {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return errors.WithStack(err)
			}
			return runGuarded(egCtx, task)
		})
	}
	return eg.Wait()
}

// Sequential runs tasks one after another on the calling goroutine and stops at the first failure.
type Sequential struct{}

// Execute implements Executor.
func (Sequential) Execute(ctx context.Context, tasks []Task) error {
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if err := runGuarded(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// Map applies fn to every input through ex and returns the results in input order.
func Map[T, R any](ctx context.Context, ex Executor, inputs []T, fn func(context.Context, int, T) (R, error)) ([]R, error) {
	results := make([]R, len(inputs))
	tasks := make([]Task, len(inputs))
	for i, input := range inputs {
		tasks[i] = func(ctx context.Context) error {
			result, err := fn(ctx, i, input)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		}
	}

	if err := ex.Execute(ctx, tasks); err != nil {
		return nil, err
	}
	return results, nil
}

func runGuarded(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithStack(&PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()
	return task(ctx)
}

package core

// worker.go runs alignments off the caller's goroutine.
//
// Each invocation gets its own goroutine and a one-shot result channel with
// capacity 1. The goroutine sends exactly one outcome: the Align result, the
// load/Align error, or a *WorkerError when it panicked or exited without
// producing a result. The caller stops waiting when its context ends; the
// goroutine still finishes into the buffered channel and is collected.

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// errNoOutcome is the WorkerError cause when the goroutine exited via
// runtime.Goexit without sending a result.
var errNoOutcome = errors.New("worker exited without delivering an outcome")

// AlignFunc has the signature of Align.
type AlignFunc func(table1, table2 string) (ResultSet, error)

// Worker runs Align on a dedicated goroutine per invocation.
// A Worker holds no per-invocation state and is safe for concurrent use.
type Worker struct {
	maxBytes int64
	align    AlignFunc
}

// NewWorker creates a Worker. maxBytes caps the size of each input file
// loaded by Run; zero disables the cap.
func NewWorker(maxBytes int64) *Worker {
	return &Worker{
		maxBytes: maxBytes,
		align:    Align,
	}
}

type outcome struct {
	rs  ResultSet
	err error
}

// Run loads both files and aligns them. Files are read concurrently inside
// the worker goroutine; the paths are neither modified nor deleted.
func (w *Worker) Run(ctx context.Context, path1, path2 string) (ResultSet, error) {
	return w.dispatch(ctx, func() (ResultSet, error) {
		var text1, text2 string

		var g errgroup.Group
		g.Go(func() error {
			var err error
			text1, err = LoadFile(path1, w.maxBytes)
			return err
		})
		g.Go(func() error {
			var err error
			text2, err = LoadFile(path2, w.maxBytes)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return w.align(text1, text2)
	})
}

// RunText aligns two in-memory tables.
func (w *Worker) RunText(ctx context.Context, table1, table2 string) (ResultSet, error) {
	return w.dispatch(ctx, func() (ResultSet, error) {
		return w.align(table1, table2)
	})
}

func (w *Worker) dispatch(ctx context.Context, fn func() (ResultSet, error)) (ResultSet, error) {
	done := make(chan outcome, 1)
	jobID := JobIDFromContext(ctx)

	go func() {
		delivered := false
		defer func() {
			r := recover()
			if delivered {
				return
			}
			if r == nil {
				r = errNoOutcome
			}
			done <- outcome{err: &WorkerError{JobID: jobID, Cause: r}}
		}()

		rs, err := fn()
		done <- outcome{rs: rs, err: err}
		delivered = true
	}()

	select {
	case out := <-done:
		return out.rs, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

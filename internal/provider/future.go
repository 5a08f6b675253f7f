package provider

import (
	"context"
	"sync"
)

// Future is the eventual result of one fetch. A pending future is distinct
// from one that resolved to an empty value or to an error.
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	val    T
	err    error
	cancel context.CancelFunc
}

func newFuture[T any](cancel context.CancelFunc) *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: cancel}
}

// Resolved returns an already completed future.
func Resolved[T any](v T, err error) *Future[T] {
	f := newFuture[T](nil)
	f.resolve(v, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result reports the outcome without blocking. ok is false while pending.
func (f *Future[T]) Result() (v T, ok bool, err error) {
	select {
	case <-f.done:
		return f.val, true, f.err
	default:
		return v, false, nil
	}
}

func (f *Future[T]) Pending() bool {
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel asks the fetch behind f to stop. It is a no-op once f completed.
func (f *Future[T]) Cancel() {
	select {
	case <-f.done:
		return
	default:
	}
	if f.cancel != nil {
		f.cancel()
	}
}

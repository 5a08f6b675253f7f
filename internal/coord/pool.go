package coord

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const DefaultWorkers = 4

// Pool runs blocking work off the loop, at most size jobs at a time, and
// delivers each result back on the loop.
type Pool struct {
	loop *Loop
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
}

func NewPool(loop *Loop, size int) *Pool {
	if size <= 0 {
		size = DefaultWorkers
	}
	return &Pool{loop: loop, sem: semaphore.NewWeighted(int64(size))}
}

func (p *Pool) Loop() *Loop {
	return p.loop
}

// Wait blocks until every submitted job has finished its work.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Submit runs work on a worker goroutine and posts done with its result to
// the loop. done is dropped if the loop has stopped.
func Submit[T any](p *Pool, ctx context.Context, work func(context.Context) (T, error), done func(T, error)) {
	SubmitAfter(p, ctx, nil, work, done)
}

// SubmitAfter is Submit with work held back until after is closed. The
// returned channel is closed once the result has been posted, so chained
// jobs deliver in order and never hold a worker slot while waiting.
func SubmitAfter[T any](p *Pool, ctx context.Context, after <-chan struct{}, work func(context.Context) (T, error), done func(T, error)) <-chan struct{} {
	settled := make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		var (
			val T
			err error
		)
		if after != nil {
			select {
			case <-after:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}
		if err == nil {
			if err = p.sem.Acquire(ctx, 1); err == nil {
				val, err = work(ctx)
				p.sem.Release(1)
			}
		}
		p.loop.Post(func() { done(val, err) })
		if after != nil {
			// A job cancelled while waiting still settles in chain order.
			<-after
		}
		close(settled)
	}()
	return settled
}

// Package provider wraps a single remote fetch behind a lazy, memoized,
// cancellable value.
//
// A Provider is confined to the coordination loop: Value, Reload, Subscribe
// and Close must only be called from closures running on coord.Loop.
package provider

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/coord"
	"github.com/altinukshini/gha-watch/internal/event"
)

var ErrClosed = errors.New("provider closed")

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Changed is published when a provider drops its memoized value.
type Changed struct {
	Key string
}

type Provider[T any] struct {
	key   string
	pool  *coord.Pool
	fetch FetchFunc[T]
	log   *zap.Logger

	fallback    T
	hasFallback bool

	ctx    context.Context
	cancel context.CancelFunc

	current *Future[T]
	queued  *queuedFetch[T]
	settled <-chan struct{}
	closed  bool
	fetches int

	changed event.Dispatcher[Changed]
}

// queuedFetch is the latest fetch handed to the pool. started flips on the
// worker once it stops waiting for its predecessor.
type queuedFetch[T any] struct {
	future  *Future[T]
	ctx     context.Context
	started atomic.Bool
}

type Option[T any] func(*Provider[T])

// WithFallback makes failed fetches resolve to v instead of an error.
// Cancellation is still reported as an error.
func WithFallback[T any](v T) Option[T] {
	return func(p *Provider[T]) {
		p.fallback = v
		p.hasFallback = true
	}
}

func WithLogger[T any](log *zap.Logger) Option[T] {
	return func(p *Provider[T]) {
		p.log = log
	}
}

func New[T any](pool *coord.Pool, key string, fetch FetchFunc[T], opts ...Option[T]) *Provider[T] {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider[T]{
		key:    key,
		pool:   pool,
		fetch:  fetch,
		log:    zap.NewNop(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider[T]) Key() string {
	return p.key
}

// Fetches counts fetches started over the provider's lifetime.
func (p *Provider[T]) Fetches() int {
	return p.fetches
}

// Value returns the memoized future, starting a fetch if there is none.
// A fetch never starts before the previous one for this provider settled.
// A fetch still waiting on its predecessor has not read anything yet, so
// it is handed out again instead of queueing another one behind it.
func (p *Provider[T]) Value() *Future[T] {
	if p.current != nil {
		return p.current
	}
	if p.closed {
		var zero T
		return Resolved(zero, ErrClosed)
	}
	if q := p.queued; q != nil && !q.started.Load() && q.ctx.Err() == nil && q.future.Pending() {
		p.current = q.future
		return q.future
	}

	ctx, cancel := context.WithCancel(p.ctx)
	f := newFuture[T](cancel)
	q := &queuedFetch[T]{future: f, ctx: ctx}
	p.current = f
	p.queued = q
	p.fetches++

	p.settled = coord.SubmitAfter(p.pool, ctx, p.settled, func(ctx context.Context) (T, error) {
		q.started.Store(true)
		return p.fetch(ctx)
	}, func(v T, err error) {
		cancel()
		if err != nil {
			p.log.Debug("fetch failed", zap.String("key", p.key), zap.Error(err))
			if p.hasFallback && !errors.Is(err, context.Canceled) {
				v, err = p.fallback, nil
			}
		}
		f.resolve(v, err)
	})
	return f
}

// Reload drops the memoized future and notifies subscribers. It does not
// fetch and does not cancel a fetch already under way; holders of the old
// future still receive its result. The next Value is answered by a fetch
// that starts after this call.
func (p *Provider[T]) Reload() {
	if p.closed {
		return
	}
	p.current = nil
	p.changed.Publish(Changed{Key: p.key})
}

func (p *Provider[T]) Subscribe(fn func(Changed)) (unsubscribe func()) {
	return p.changed.Subscribe(fn)
}

// Close cancels any pending fetch and detaches subscribers. A closed
// provider hands out futures already failed with ErrClosed.
func (p *Provider[T]) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.current = nil
	p.queued = nil
	p.cancel()
	p.changed.Clear()
}

func (p *Provider[T]) Closed() bool {
	return p.closed
}

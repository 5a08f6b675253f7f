// Package listloader keeps a paginated, periodically refreshed collection
// in sync with the server without replacing it: refreshed items are swapped
// in place by identity, new ones are appended, nothing is dropped.
//
// A Loader is confined to the coordination loop.
package listloader

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/coord"
	"github.com/altinukshini/gha-watch/internal/event"
)

const (
	DefaultPageSize     = 30
	DefaultPollInterval = 30 * time.Second
)

// Page is one page of a remote collection.
type Page[T any] struct {
	Items      []T
	TotalCount int
}

type PageFunc[T any] func(ctx context.Context, page, perPage int) (Page[T], error)

// DataEvent reports items that entered the collection or were replaced.
type DataEvent[T any] struct {
	Added   []T
	Updated []T
}

// State is a snapshot of the loader, safe to hand to other goroutines.
type State[T any] struct {
	Items      []T
	TotalCount int
	Page       int
	Loading    bool
	Err        error
}

type Config struct {
	Name     string
	PageSize int
	Logger   *zap.Logger
}

type Loader[T any, K comparable] struct {
	name      string
	pool      *coord.Pool
	fetchPage PageFunc[T]
	idOf      func(T) K
	pageSize  int
	log       *zap.Logger

	items      []T
	index      map[K]int
	totalCount int
	page       int
	loading    bool
	err        error

	gen     int
	cancel  context.CancelFunc
	settled <-chan struct{}

	active   bool
	stopPoll func()
	closed   bool

	data  event.Dispatcher[DataEvent[T]]
	state event.Dispatcher[State[T]]
}

func New[T any, K comparable](pool *coord.Pool, cfg Config, fetchPage PageFunc[T], idOf func(T) K) *Loader[T, K] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader[T, K]{
		name:       cfg.Name,
		pool:       pool,
		fetchPage:  fetchPage,
		idOf:       idOf,
		pageSize:   cfg.PageSize,
		log:        log.Named("listloader").With(zap.String("list", cfg.Name)),
		index:      make(map[K]int),
		totalCount: -1,
		active:     true,
	}
}

func (l *Loader[T, K]) Items() []T      { return slices.Clone(l.items) }
func (l *Loader[T, K]) Loading() bool   { return l.loading }
func (l *Loader[T, K]) Err() error      { return l.err }
func (l *Loader[T, K]) Page() int       { return l.page }
func (l *Loader[T, K]) PageSize() int   { return l.pageSize }
func (l *Loader[T, K]) TotalCount() int { return l.totalCount }

// Find returns the loaded item with identity id.
func (l *Loader[T, K]) Find(id K) (T, bool) {
	if i, ok := l.index[id]; ok {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// CanLoadMore reports whether a further page exists and may be requested.
// The total is unknown until the first page arrives.
func (l *Loader[T, K]) CanLoadMore() bool {
	if l.closed || l.loading || l.err != nil {
		return false
	}
	return l.totalCount < 0 || l.page*l.pageSize < l.totalCount
}

// LoadMore fetches the next page, or with update set re-fetches the first
// page and merges it into what is loaded. It is a no-op while a fetch is
// pending.
func (l *Loader[T, K]) LoadMore(update bool) {
	if l.closed || l.loading {
		return
	}
	if !update && !l.CanLoadMore() {
		return
	}
	page := l.page + 1
	if update {
		page = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.loading = true
	l.cancel = cancel
	gen := l.gen
	perPage := l.pageSize
	l.publishState()

	l.settled = coord.SubmitAfter(l.pool, ctx, l.settled, func(ctx context.Context) (Page[T], error) {
		return l.fetchPage(ctx, page, perPage)
	}, func(res Page[T], err error) {
		cancel()
		if gen != l.gen || l.closed {
			return
		}
		l.loading = false
		l.cancel = nil
		if err != nil {
			l.err = err
			l.log.Warn("page fetch failed", zap.Int("page", page), zap.Bool("update", update), zap.Error(err))
			l.publishState()
			return
		}
		l.err = nil
		l.totalCount = res.TotalCount

		var ev DataEvent[T]
		if update {
			ev = l.merge(res.Items)
			if l.page == 0 {
				l.page = 1
			}
		} else {
			ev.Added = l.appendNew(res.Items)
			l.page = page
		}
		if len(ev.Added) > 0 || len(ev.Updated) > 0 {
			l.data.Publish(ev)
		}
		l.publishState()
	})
}

func (l *Loader[T, K]) appendNew(items []T) []T {
	var added []T
	for _, it := range items {
		id := l.idOf(it)
		if _, ok := l.index[id]; ok {
			continue
		}
		l.index[id] = len(l.items)
		l.items = append(l.items, it)
		added = append(added, it)
	}
	return added
}

func (l *Loader[T, K]) merge(items []T) DataEvent[T] {
	var ev DataEvent[T]
	for _, it := range items {
		id := l.idOf(it)
		if i, ok := l.index[id]; ok {
			l.items[i] = it
			ev.Updated = append(ev.Updated, it)
			continue
		}
		l.index[id] = len(l.items)
		l.items = append(l.items, it)
		ev.Added = append(ev.Added, it)
	}
	return ev
}

// Reset cancels any pending fetch and forgets everything loaded. It does
// not reload.
func (l *Loader[T, K]) Reset() {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.items = nil
	l.index = make(map[K]int)
	l.totalCount = -1
	l.page = 0
	l.loading = false
	l.err = nil
	l.publishState()
}

// StartPolling refreshes the first page every interval while the loader is
// active.
func (l *Loader[T, K]) StartPolling(s *coord.Scheduler, interval time.Duration) {
	if l.closed {
		return
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if l.stopPoll != nil {
		l.stopPoll()
	}
	l.stopPoll = s.Every(interval, l.name+" poll", l.Poll)
}

// Poll runs one polling tick.
func (l *Loader[T, K]) Poll() {
	if !l.active || l.closed {
		return
	}
	l.LoadMore(true)
}

// SetActive suspends or resumes polling, e.g. while the list is hidden.
func (l *Loader[T, K]) SetActive(active bool) {
	l.active = active
}

func (l *Loader[T, K]) Active() bool {
	return l.active
}

func (l *Loader[T, K]) AddDataListener(fn func(DataEvent[T])) (remove func()) {
	return l.data.Subscribe(fn)
}

func (l *Loader[T, K]) AddStateListener(fn func(State[T])) (remove func()) {
	return l.state.Subscribe(fn)
}

// Close stops polling and cancels any pending fetch.
func (l *Loader[T, K]) Close() {
	if l.closed {
		return
	}
	l.closed = true
	if l.stopPoll != nil {
		l.stopPoll()
		l.stopPoll = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.loading = false
	l.data.Clear()
	l.state.Clear()
}

func (l *Loader[T, K]) Snapshot() State[T] {
	return State[T]{
		Items:      l.Items(),
		TotalCount: l.totalCount,
		Page:       l.page,
		Loading:    l.loading,
		Err:        l.err,
	}
}

func (l *Loader[T, K]) publishState() {
	if l.state.Len() == 0 {
		return
	}
	l.state.Publish(l.Snapshot())
}

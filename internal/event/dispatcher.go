// Package event is a minimal typed publish/subscribe dispatcher. The owner
// of a Dispatcher publishes; everyone else only subscribes.
package event

import "sync"

type Dispatcher[E any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(E)
	order  []int
}

// Subscribe registers fn and returns a func that removes it. Removal is
// idempotent.
func (d *Dispatcher[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs == nil {
		d.subs = make(map[int]func(E))
	}
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.order = append(d.order, id)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.subs[id]; !ok {
			return
		}
		delete(d.subs, id)
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

// Publish calls subscribers in subscription order. Subscribers may
// subscribe or unsubscribe while being called.
func (d *Dispatcher[E]) Publish(e E) {
	d.mu.Lock()
	fns := make([]func(E), 0, len(d.order))
	for _, id := range d.order {
		fns = append(fns, d.subs[id])
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Len reports the number of live subscribers.
func (d *Dispatcher[E]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Clear drops every subscriber.
func (d *Dispatcher[E]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = nil
	d.order = nil
}

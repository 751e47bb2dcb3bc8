package remote

import "sync"

// Emitter fans values out to subscribers in subscription
// order. The zero value is ready to use. Subscribers run
// on the goroutine calling Fire and may subscribe,
// unsubscribe or fire again.
type Emitter[T any] struct {
	mu   sync.Mutex
	next uint64
	subs []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function removing
// it. The returned function is idempotent.
func (e *Emitter[T]) Subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.next++
	id := e.next
	e.subs = append(e.subs, subscription[T]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)

				return
			}
		}
	}
}

// Fire calls every subscriber with v.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	subs := make([]subscription[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

package events

import "sync"

// Bus is a typed in-process pub/sub channel. Publish delivers synchronously
// to subscribers in subscription order; concurrent publishes are serialized
// so every subscriber observes the same publish order. A subscriber must not
// publish on the bus it is subscribed to.
type Bus[T any] struct {
	mu     sync.Mutex
	pubMu  sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns its unsubscribe func, which is safe to
// call more than once.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish on a nil bus is a no-op.
func (b *Bus[T]) Publish(v T) {
	if b == nil {
		return
	}
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	subs := make([]subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

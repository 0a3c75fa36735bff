package feed

import (
	"context"
	"sync"
)

// MemoryBus dispatches events synchronously in process. It backs tests and
// redis-less development setups; delivery order matches publish order.
type MemoryBus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]func(Event))}
}

func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, fn func(Event)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

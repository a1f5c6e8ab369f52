package lock

import (
	"context"
	"sync"
	"time"
)

// KeyedMutex is an in-process Locker. Suitable for a single server instance.
type KeyedMutex struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{
		wait:  wait,
		slots: make(map[string]*slot),
	}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	if held(ctx, key) {
		return ctx, func() {}, nil
	}

	s := m.acquireSlot(key)

	timer := time.NewTimer(m.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.releaseSlot(key)
		return ctx, nil, ctx.Err()
	case <-timer.C:
		m.releaseSlot(key)
		return ctx, nil, waitTimeout(key, m.wait)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-s.ch
			m.releaseSlot(key)
		})
	}
	return markHeld(ctx, key), release, nil
}

func (m *KeyedMutex) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) releaseSlot(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker serializes holders of the same key inside one process
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a locker that waits at most wait for a busy key.
// A zero wait means callers wait until their context is done.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s.ch <- struct{}{}:
		return &memoryLock{locker: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	case <-timeout:
		l.unref(key, s)
		return nil, errLockBusy(key, l.wait)
	}
}

func (l *MemoryLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

type memoryLock struct {
	once   sync.Once
	locker *MemoryLocker
	key    string
	slot   *slot
}

func (m *memoryLock) Release(_ context.Context) error {
	m.once.Do(func() {
		<-m.slot.ch
		m.locker.unref(m.key, m.slot)
	})
	return nil
}

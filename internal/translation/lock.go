package translation

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked reports that another continuation for the same conversation is
// in flight.
var ErrLocked = errors.New("conversation is locked")

// Locker serializes continuation turns per conversation so two concurrent
// "continue" calls cannot read the same history snapshot and interleave
// their appended turns.
type Locker interface {
	Acquire(ctx context.Context, conversationID string) (release func(), err error)
}

// MutexLocker is the in-process fallback used when redis is not configured;
// sufficient for a single-instance deployment.
type MutexLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{held: make(map[string]struct{})}
}

func (l *MutexLocker) Acquire(ctx context.Context, conversationID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[conversationID]; ok {
		return nil, ErrLocked
	}
	l.held[conversationID] = struct{}{}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, conversationID)
	}, nil
}

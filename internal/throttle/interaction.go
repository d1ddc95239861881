package throttle

import (
	"sync"
	"time"
)

// DefaultRecencyWindow is how long after a user interaction a background
// refresh stays deferred, even once the lock is released.
const DefaultRecencyWindow = 3 * time.Second

// InteractionLock defers background refreshes of a delivery surface while a
// user action is in flight. Foreground handlers bracket each action with
// Acquire/Release; Record marks interactions that have no bracketed span.
type InteractionLock struct {
	mu              sync.Mutex
	locked          bool
	lastInteraction time.Time
	recency         time.Duration
}

// NewInteractionLock returns a lock with the default recency window.
func NewInteractionLock() *InteractionLock {
	return &InteractionLock{recency: DefaultRecencyWindow}
}

// NewInteractionLockWithWindow returns a lock with a custom recency window.
func NewInteractionLockWithWindow(window time.Duration) *InteractionLock {
	return &InteractionLock{recency: window}
}

// Acquire marks a user action as in flight.
func (l *InteractionLock) Acquire(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = true
	l.lastInteraction = now
}

// Release marks the in-flight action as finished.
func (l *InteractionLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = false
}

// Record notes an interaction without holding the lock open.
func (l *InteractionLock) Record(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastInteraction = now
	l.locked = false
}

// ShouldDefer reports whether a background refresh must be skipped at now:
// either an action is in flight or one finished inside the recency window.
func (l *InteractionLock) ShouldDefer(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		return true
	}
	return !l.lastInteraction.IsZero() && now.Sub(l.lastInteraction) < l.recency
}

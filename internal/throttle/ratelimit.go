// Package throttle provides shared suppression state for delivery surfaces:
// rate-limit backoff and the foreground interaction lock. Both are accessed
// by the poll loop and by foreground handlers concurrently, so every method
// is safe for concurrent use.
package throttle

import (
	"sync"
	"time"
)

// DefaultRateLimitMargin is added on top of the reported retry-after before
// a surface resumes dispatching.
const DefaultRateLimitMargin = 10 * time.Second

// RateLimitState tracks throttling of one delivery surface. The surface is a
// shared, globally rate-limited resource: once limited, every dispatch on it
// pauses until the retry-after window (plus margin) has elapsed.
type RateLimitState struct {
	mu         sync.Mutex
	limited    bool
	limitedAt  time.Time
	retryAfter time.Duration
	margin     time.Duration
}

// NewRateLimitState returns state with the default margin.
func NewRateLimitState() *RateLimitState {
	return &RateLimitState{margin: DefaultRateLimitMargin}
}

// NewRateLimitStateWithMargin returns state with a custom margin.
func NewRateLimitStateWithMargin(margin time.Duration) *RateLimitState {
	return &RateLimitState{margin: margin}
}

// Trip records a rate-limit response received at now.
func (s *RateLimitState) Trip(retryAfter time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = true
	s.limitedAt = now
	s.retryAfter = retryAfter
}

// Limited reports whether dispatch must still pause at now. Expiry is lazy:
// the first call after the window elapses clears the flag.
func (s *RateLimitState) Limited(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.limited {
		return false
	}
	if now.Sub(s.limitedAt) >= s.retryAfter+s.margin {
		s.limited = false
		return false
	}
	return true
}

// ResumeAt returns the instant dispatch may resume. Zero when not limited.
func (s *RateLimitState) ResumeAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.limited {
		return time.Time{}
	}
	return s.limitedAt.Add(s.retryAfter + s.margin)
}

// Reset clears the limit unconditionally.
func (s *RateLimitState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = false
}

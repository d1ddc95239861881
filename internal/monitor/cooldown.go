package monitor

import (
	"sync"
	"time"

	"stock-sentinel/internal/models"
)

// DefaultCooldownWindow suppresses repeat alerts for the same
// (owner, subject, kind) inside this window.
const DefaultCooldownWindow = 30 * time.Minute

// CooldownRegistry deduplicates alerts per (owner, subject, kind). State is
// memory-only: a restart clears all cooldowns, which at worst re-delivers an
// alert once.
type CooldownRegistry struct {
	mu     sync.Mutex
	window time.Duration
	fired  map[models.AlertKey]time.Time
}

// NewCooldownRegistry creates a registry with the given window.
func NewCooldownRegistry(window time.Duration) *CooldownRegistry {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return &CooldownRegistry{
		window: window,
		fired:  make(map[models.AlertKey]time.Time),
	}
}

// TryAcquire atomically checks the cooldown for key and, when clear, marks
// it fired at now. Returns false while the key is still cooling down.
// Check and mark are a single critical section so concurrent evaluations of
// the same key cannot both fire.
func (r *CooldownRegistry) TryAcquire(key models.AlertKey, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.fired[key]; ok && now.Sub(last) < r.window {
		return false
	}
	r.fired[key] = now
	return true
}

// ShouldFire reports whether key is currently clear, without marking it.
func (r *CooldownRegistry) ShouldFire(key models.AlertKey, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.fired[key]
	return !ok || now.Sub(last) >= r.window
}

// Prune drops entries whose window has fully elapsed.
func (r *CooldownRegistry) Prune(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, last := range r.fired {
		if now.Sub(last) >= r.window {
			delete(r.fired, key)
		}
	}
}

// Len returns the number of tracked keys.
func (r *CooldownRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

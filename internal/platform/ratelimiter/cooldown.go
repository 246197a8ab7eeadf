package ratelimiter

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CooldownLimiter allows one event per key per window and periodically
// evicts idle entries so the key map stays bounded under sustained
// unique-key traffic.
type CooldownLimiter struct {
	limit   rate.Limit
	mu      sync.Mutex
	byKey   map[string]*entry
	hits    uint64
	idleTTL time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a per-key cooldown of the given window; returns nil if the
// window is not positive. A nil limiter allows everything.
func New(window time.Duration, idleTTL time.Duration) *CooldownLimiter {
	if window <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	if idleTTL < window {
		idleTTL = window
	}
	return &CooldownLimiter{
		limit:   rate.Every(window),
		byKey:   make(map[string]*entry),
		idleTTL: idleTTL,
	}
}

// Allow reports whether the key may fire at now. The first call for a key
// always passes; subsequent calls pass once the window has elapsed.
func (l *CooldownLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{
			limiter:  rate.NewLimiter(l.limit, 1),
			lastSeen: now,
		}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}

// Keys reports how many keys are currently tracked.
func (l *CooldownLimiter) Keys() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

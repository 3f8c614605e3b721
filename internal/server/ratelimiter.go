package server

import (
	"sync"
	"time"
)

// rateLimiter is a small in-process fixed-window limiter for public
// endpoints that cannot key off a session. Not shared across replicas;
// the Redis sliding window covers the endpoints that need that.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*rateWindow),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[key]
	if !ok || now.Sub(w.start) >= r.window {
		r.windows[key] = &rateWindow{start: now, count: 1}
		r.sweep(now)
		return true
	}
	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

// sweep drops expired windows so the map does not grow with one entry
// per client forever. Called under the lock.
func (r *rateLimiter) sweep(now time.Time) {
	if len(r.windows) < 1024 {
		return
	}
	for key, w := range r.windows {
		if now.Sub(w.start) >= r.window {
			delete(r.windows, key)
		}
	}
}

package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window counter per key (client IP for logins)
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	now     func() time.Time
	cleanup *time.Ticker
	done    chan struct{}
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		now:     time.Now,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go limiter.cleanupOldBuckets()
	return limiter
}

// Allow records a request for key and reports whether it is within the limit.
// A non-positive limit disables limiting.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Take(key)
	return ok
}

// Take is Allow that also returns, when refused, how long until the oldest
// request in the window expires
func (l *Limiter) Take(key string) (bool, time.Duration) {
	if l.maxReqs <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.lastSeen = now
	b.prune(now.Add(-l.window))

	if len(b.requests) < l.maxReqs {
		b.requests = append(b.requests, now)
		return true, 0
	}
	return false, b.requests[0].Add(l.window).Sub(now)
}

// prune drops timestamps at or before cutoff; requests stay oldest first
func (b *bucket) prune(cutoff time.Time) {
	i := 0
	for i < len(b.requests) && !b.requests[i].After(cutoff) {
		i++
	}
	b.requests = b.requests[i:]
}

func (l *Limiter) cleanupOldBuckets() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			l.mu.Lock()
			stale := l.now().Add(-3 * l.window)
			for key, b := range l.buckets {
				if b.lastSeen.Before(stale) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *Limiter) Stop() {
	l.cleanup.Stop()
	close(l.done)
}

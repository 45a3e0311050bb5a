package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	defaultLimit           = 10
	defaultCleanupInterval = 5 * time.Minute
)

// Limiter - sliding window по ключу: user id в боте, IP в веб-демо.
type Limiter[K comparable] struct {
	mu       sync.Mutex
	requests map[K][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

type Config struct {
	RequestsPerMinute int
	// Window по умолчанию минута
	Window time.Duration
}

func New[K comparable](cfg Config) *Limiter[K] {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = defaultLimit
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter[K]{
		requests: make(map[K][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (l *Limiter[K]) Limit() int {
	return l.limit
}

func (l *Limiter[K]) Allow(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	fresh := l.freshLocked(key, now)

	if len(fresh) >= l.limit {
		l.requests[key] = fresh
		return false
	}

	l.requests[key] = append(fresh, now)
	return true
}

func (l *Limiter[K]) RemainingRequests(key K) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	cnt := 0
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			cnt++
		}
	}

	if rem := l.limit - cnt; rem > 0 {
		return rem
	}
	return 0
}

// ResetTime - когда освободится слот (приблизительно)
func (l *Limiter[K]) ResetTime(key K) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.requests[key]
	if len(ts) == 0 {
		return l.now()
	}

	oldest := ts[0]
	for _, t := range ts[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	return oldest.Add(l.window)
}

// Run чистит протухшие записи, пока не отменен ctx.
func (l *Limiter[K]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			l.Cleanup()
		}
	}
}

func (l *Limiter[K]) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.requests {
		fresh := l.freshLocked(key, now)
		if len(fresh) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = fresh
		}
	}
}

// Size - число ключей с историей
func (l *Limiter[K]) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func (l *Limiter[K]) freshLocked(key K, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	old := l.requests[key]
	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

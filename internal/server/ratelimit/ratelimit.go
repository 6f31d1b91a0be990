// Package ratelimit provides per-client request limiting using a token
// bucket. Buckets refill continuously, so short bursts are absorbed while a
// sustained flood is throttled.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a single client's token bucket.
type bucket struct {
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
	mu         sync.Mutex
}

func (b *bucket) refill(now time.Time) {
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now
}

func (b *bucket) take(now time.Time) (bool, Info) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)
	b.lastSeen = now

	allowed := b.tokens >= 1.0
	if allowed {
		b.tokens -= 1.0
	}

	info := Info{
		Limit:     int(b.capacity),
		Remaining: int(b.tokens),
	}
	if b.tokens < 1.0 {
		info.RetryAfter = time.Duration((1.0 - b.tokens) / b.refillRate * float64(time.Second))
	}
	return allowed, info
}

// Info describes the limiter state returned with each decision.
type Info struct {
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Config tunes the limiter.
type Config struct {
	// Burst is the bucket capacity: requests a client can make
	// back-to-back before throttling starts.
	Burst int
	// PerSecond is the sustained refill rate.
	PerSecond float64
	// IdleEviction is how long an unused bucket survives before cleanup.
	IdleEviction time.Duration
}

// DefaultConfig allows a burst of 30 with 10 requests per second sustained.
func DefaultConfig() Config {
	return Config{Burst: 30, PerSecond: 10, IdleEviction: 10 * time.Minute}
}

// Limiter tracks a bucket per client ID.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter and starts its idle-bucket cleanup loop.
func NewLimiter(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg = DefaultConfig()
	}
	l := &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether the client may make a request now.
func (l *Limiter) Allow(clientID string) (bool, Info) {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[clientID]
	if !ok {
		b = &bucket{
			capacity:   float64(l.cfg.Burst),
			refillRate: l.cfg.PerSecond,
			tokens:     float64(l.cfg.Burst),
			lastRefill: now,
		}
		l.buckets[clientID] = b
	}
	l.mu.Unlock()

	return b.take(now)
}

// Stop terminates the cleanup loop.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for id, b := range l.buckets {
				b.mu.Lock()
				idle := now.Sub(b.lastSeen) > l.cfg.IdleEviction
				b.mu.Unlock()
				if idle {
					delete(l.buckets, id)
				}
			}
			l.mu.Unlock()
		}
	}
}

package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsBurstThenThrottles(t *testing.T) {
	l := NewLimiter(Config{Burst: 3, PerSecond: 0.001, IdleEviction: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("client-a")
		if !allowed {
			t.Fatalf("request %d within burst rejected", i+1)
		}
	}

	allowed, info := l.Allow("client-a")
	if allowed {
		t.Fatal("request beyond burst allowed")
	}
	if info.RetryAfter <= 0 {
		t.Error("throttled response missing retry-after")
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	l := NewLimiter(Config{Burst: 1, PerSecond: 0.001, IdleEviction: time.Minute})
	defer l.Stop()

	if allowed, _ := l.Allow("client-a"); !allowed {
		t.Fatal("first request rejected")
	}
	if allowed, _ := l.Allow("client-a"); allowed {
		t.Fatal("client-a not throttled")
	}
	if allowed, _ := l.Allow("client-b"); !allowed {
		t.Fatal("client-b throttled by client-a's bucket")
	}
}

func TestLimiterRefills(t *testing.T) {
	l := NewLimiter(Config{Burst: 1, PerSecond: 50, IdleEviction: time.Minute})
	defer l.Stop()

	l.Allow("client-a")
	if allowed, _ := l.Allow("client-a"); allowed {
		t.Fatal("bucket not empty after burst")
	}

	time.Sleep(50 * time.Millisecond)
	if allowed, _ := l.Allow("client-a"); !allowed {
		t.Fatal("bucket did not refill")
	}
}

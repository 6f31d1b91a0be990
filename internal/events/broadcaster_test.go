package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func collectOne(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close() //nolint:errcheck

	// Must neither block nor panic.
	b.Broadcast("x", map[string]any{"n": 1})

	stats := b.Stats()
	if stats.ConnectedClients != 0 || stats.IsActive {
		t.Errorf("expected zero clients, got %+v", stats)
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	second, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if got := b.Stats().ConnectedClients; got != 2 {
		t.Errorf("expected 2 clients, got %d", got)
	}

	b.Broadcast("x", map[string]any{"answer": 42})

	for _, ch := range []<-chan Event{first, second} {
		ev := collectOne(t, ch)
		if ev.Type != "x" {
			t.Errorf("expected type 'x', got %q", ev.Type)
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected non-zero timestamp")
		}

		var payload map[string]any
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if payload["type"] != "x" {
			t.Errorf("payload type = %v, expected 'x'", payload["type"])
		}
		if _, ok := payload["timestamp"]; !ok {
			t.Error("payload missing timestamp")
		}
		if payload["answer"] != float64(42) {
			t.Errorf("payload answer = %v, expected 42", payload["answer"])
		}
	}
}

func TestSubscriberDeregistersOnCancel(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	cancel()

	// The channel closes once the pub/sub tears down the subscription.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if got := b.Stats().ConnectedClients; got != 0 {
					t.Errorf("expected 0 clients after cancel, got %d", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel never closed after cancel")
		}
	}
}

func TestEmitterShapes(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	tests := []struct {
		name     string
		emit     func()
		wantType string
		wantKeys []string
	}{
		{"jobQueued", func() { b.JobQueued("id-1", "raw-job-000001.txt") }, TypeJobQueued, []string{"jobId", "filename", "message"}},
		{"jobFailed", func() { b.JobFailed("id-1", "f.txt", context.DeadlineExceeded) }, TypeJobFailed, []string{"error", "filename"}},
		{"llmCompleted", func() { b.LLMProcessingCompleted("extract", "result text") }, TypeLLMProcessingCompleted, []string{"step", "preview", "resultLength"}},
		{"hoardUpdated", func() { b.HoardUpdated(3) }, TypeHoardUpdated, []string{"listingCount"}},
		{"systemStatus", func() { b.SystemStatus("connected", "client joined") }, TypeSystemStatus, []string{"status", "details"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.emit()
			ev := collectOne(t, ch)
			if ev.Type != tt.wantType {
				t.Fatalf("event type = %q, expected %q", ev.Type, tt.wantType)
			}
			var payload map[string]any
			if err := json.Unmarshal(ev.Payload, &payload); err != nil {
				t.Fatalf("invalid payload: %v", err)
			}
			for _, key := range tt.wantKeys {
				if _, ok := payload[key]; !ok {
					t.Errorf("payload missing key %q", key)
				}
			}
		})
	}
}

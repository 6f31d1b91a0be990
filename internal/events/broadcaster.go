// Package events implements the in-process event broadcaster. Pipeline
// components publish typed, timestamped JSON events and any number of live
// subscribers (normally SSE connections) receive them. Delivery is
// best-effort: with zero subscribers an event is discarded, and there is no
// replay buffer. Subscribers always re-fetch authoritative state from the
// hoard; the event stream is observational only.
package events

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

const eventsTopic = "stashboard-events"

// Event is one broadcast notification as seen by a subscriber. Payload is
// the full JSON document that was published, including the type and
// timestamp fields.
type Event struct {
	Type      string
	Timestamp time.Time
	Payload   []byte
}

// Stats reports the broadcaster's live subscriber count.
type Stats struct {
	ConnectedClients int  `json:"connectedClients"`
	IsActive         bool `json:"isActive"`
}

// Broadcaster fans events out to all live subscribers over an in-memory
// pub/sub channel. It is safe for concurrent use.
type Broadcaster struct {
	pubsub  *gochannel.GoChannel
	logger  *zap.Logger
	clients atomic.Int64
}

// NewBroadcaster creates a broadcaster. A nil logger is replaced with a nop.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermillAdapter{logger: logger.Named("pubsub")})
	return &Broadcaster{pubsub: pubsub, logger: logger}
}

// Broadcast stamps the event with its type and timestamp, serializes it, and
// publishes it to every live subscriber. Events published with no
// subscribers are dropped. The data map is not retained.
func (b *Broadcaster) Broadcast(eventType string, data map[string]any) {
	payload := make(map[string]any, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload["type"] = eventType
	payload["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to serialize event", zap.String("event", eventType), zap.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), raw)
	if err := b.pubsub.Publish(eventsTopic, msg); err != nil {
		b.logger.Error("failed to publish event", zap.String("event", eventType), zap.Error(err))
		return
	}
	b.logger.Debug("broadcast event",
		zap.String("event", eventType),
		zap.Int64("clients", b.clients.Load()))
}

// Subscribe registers a new subscriber. Events broadcast after this call are
// delivered on the returned channel until ctx is cancelled, at which point
// the channel is closed and the subscriber is deregistered. Events broadcast
// before subscription are never replayed.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubsub.Subscribe(ctx, eventsTopic)
	if err != nil {
		return nil, err
	}

	b.clients.Add(1)
	b.logger.Info("client connected", zap.Int64("clients", b.clients.Load()))

	out := make(chan Event, 16)
	go func() {
		defer func() {
			close(out)
			b.clients.Add(-1)
			b.logger.Info("client disconnected", zap.Int64("clients", b.clients.Load()))
		}()
		for msg := range messages {
			var envelope struct {
				Type      string    `json:"type"`
				Timestamp time.Time `json:"timestamp"`
			}
			if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
				msg.Ack()
				continue
			}
			select {
			case out <- Event{Type: envelope.Type, Timestamp: envelope.Timestamp, Payload: msg.Payload}:
			case <-ctx.Done():
				msg.Ack()
				return
			}
			msg.Ack()
		}
	}()
	return out, nil
}

// Stats returns the current subscriber count.
func (b *Broadcaster) Stats() Stats {
	n := int(b.clients.Load())
	return Stats{ConnectedClients: n, IsActive: n > 0}
}

// Close shuts down the pub/sub channel and closes all subscriber channels.
func (b *Broadcaster) Close() error {
	return b.pubsub.Close()
}

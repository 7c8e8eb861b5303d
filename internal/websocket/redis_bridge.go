package websocket

import (
	"context"
	"time"

	"agency-portal/pkg/logger"
)

// PatternSubscriber is the slice of the redis subscriber the bridge needs.
type PatternSubscriber interface {
	PSubscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}

// RedisBridge pumps every room and presence channel from Redis into the
// hub. A dropped pub/sub connection is re-established with exponential
// backoff rather than tearing down the sessions behind it.
type RedisBridge struct {
	subscriber PatternSubscriber
	hub        *Hub
	log        *logger.Logger
}

func NewRedisBridge(subscriber PatternSubscriber, hub *Hub, log *logger.Logger) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub, log: log}
}

const (
	bridgeBackoffMin = time.Second
	bridgeBackoffMax = 30 * time.Second
)

// Run blocks until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) {
	backoff := bridgeBackoffMin
	for {
		started := time.Now()
		err := b.subscriber.PSubscribe(ctx, []string{"channel:*"}, func(channel string, payload []byte) {
			b.hub.Broadcast(channel, payload)
		})
		if ctx.Err() != nil {
			return
		}
		if b.log != nil {
			b.log.Errorf("change feed dropped: %v, reconnecting in %s", err, backoff)
		}

		// A connection that held for a while earns a fresh backoff.
		if time.Since(started) > bridgeBackoffMax {
			backoff = bridgeBackoffMin
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > bridgeBackoffMax {
			backoff = bridgeBackoffMax
		}
	}
}

package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Subscriber consumes pub/sub channels and forwards raw payloads to a
// handler. It blocks until ctx is cancelled or the connection drops; the
// caller owns reconnection policy.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

func (s *Subscriber) Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error {
	sub := s.client.Subscribe(ctx, channels...)
	return s.receive(ctx, sub, handler)
}

// PSubscribe is the pattern variant, used by the websocket bridge to fan
// every room and presence channel into the hub.
func (s *Subscriber) PSubscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, patterns...)
	return s.receive(ctx, sub, handler)
}

func (s *Subscriber) receive(ctx context.Context, sub *redis.PubSub, handler func(channel string, payload []byte)) error {
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		handler(msg.Channel, []byte(msg.Payload))
	}
}

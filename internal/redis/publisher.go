package redis

import (
	"context"
	"encoding/json"

	"agency-portal/internal/events"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes change-feed envelopes onto Redis pub/sub channels.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channel, data).Err()
}

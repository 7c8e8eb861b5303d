package events

import "context"

// Publisher publishes an envelope to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, env Envelope) error
}

// Subscriber delivers raw payloads for a set of channels until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error
}

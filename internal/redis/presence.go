package redis

import (
	"context"
	"encoding/json"
	"time"

	"agency-portal/internal/events"

	goredis "github.com/redis/go-redis/v9"
)

// PresenceEntry is what a connection writes into a room's presence hash.
type PresenceEntry struct {
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	ConnectionID string    `json:"connection_id"`
	TrackedAt    time.Time `json:"tracked_at"`
}

// PresenceStore tracks ephemeral per-room presence in Redis.
//
// Each room has a hash keyed by connection id, so a user with several tabs
// appears once per connection but is counted once per user. The hash
// carries a TTL refreshed on heartbeat; a connection that stops
// heartbeating ages out with the key. Nothing here is persisted.
type PresenceStore struct {
	client    *goredis.Client
	publisher *Publisher
	ttl       time.Duration
}

const presenceKeyPrefix = "presence:room:"

func NewPresenceStore(client *goredis.Client, publisher *Publisher, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{client: client, publisher: publisher, ttl: ttl}
}

// Track registers a connection as present in a room and broadcasts the
// recomputed distinct-user set.
func (p *PresenceStore) Track(ctx context.Context, roomID, userID, userName, connectionID string) error {
	entry := PresenceEntry{
		UserID:       userID,
		UserName:     userName,
		ConnectionID: connectionID,
		TrackedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := presenceKeyPrefix + roomID
	pipe := p.client.Pipeline()
	pipe.HSet(ctx, key, connectionID, data)
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	return p.broadcastSync(ctx, roomID)
}

// Untrack removes a connection from a room. The user leaves presence only
// when their last connection goes.
func (p *PresenceStore) Untrack(ctx context.Context, roomID, connectionID string) error {
	key := presenceKeyPrefix + roomID
	if err := p.client.HDel(ctx, key, connectionID).Err(); err != nil {
		return err
	}
	return p.broadcastSync(ctx, roomID)
}

// Heartbeat refreshes the room hash TTL so live connections do not age out.
func (p *PresenceStore) Heartbeat(ctx context.Context, roomID string) error {
	return p.client.Expire(ctx, presenceKeyPrefix+roomID, p.ttl).Err()
}

// OnlineUsers returns the distinct user ids present in a room.
func (p *PresenceStore) OnlineUsers(ctx context.Context, roomID string) ([]string, error) {
	key := presenceKeyPrefix + roomID
	raw, err := p.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return distinctUsers(raw), nil
}

// OnlineCount returns the number of distinct users present in a room.
func (p *PresenceStore) OnlineCount(ctx context.Context, roomID string) (int, error) {
	users, err := p.OnlineUsers(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// TrackTyping sets or clears a typing indicator and announces it on the
// presence channel. Indicators expire on their own after 10 seconds.
func (p *PresenceStore) TrackTyping(ctx context.Context, roomID, userID, userName string, isTyping bool) error {
	key := "typing:" + roomID
	if isTyping {
		pipe := p.client.Pipeline()
		pipe.SAdd(ctx, key, userID)
		pipe.Expire(ctx, key, 10*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	} else {
		if err := p.client.SRem(ctx, key, userID).Err(); err != nil {
			return err
		}
	}

	if p.publisher == nil {
		return nil
	}
	eventType := events.EventTypingStopped
	if isTyping {
		eventType = events.EventTypingStarted
	}
	env, err := events.NewEnvelope(eventType, roomID, events.TypingEvent{
		RoomID:   roomID,
		UserID:   userID,
		UserName: userName,
		IsTyping: isTyping,
	})
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, events.PresenceChannel(roomID), env)
}

func (p *PresenceStore) broadcastSync(ctx context.Context, roomID string) error {
	if p.publisher == nil {
		return nil
	}
	users, err := p.OnlineUsers(ctx, roomID)
	if err != nil {
		return err
	}
	env, err := events.NewEnvelope(events.EventPresenceSync, roomID, events.PresenceEvent{
		RoomID:      roomID,
		UserIDs:     users,
		OnlineCount: len(users),
	})
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, events.PresenceChannel(roomID), env)
}

// distinctUsers collapses per-connection entries into the distinct set of
// user ids. Multiple tabs for one user count once.
func distinctUsers(raw map[string]string) []string {
	seen := make(map[string]struct{}, len(raw))
	users := make([]string, 0, len(raw))
	for _, data := range raw {
		var entry PresenceEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		if _, ok := seen[entry.UserID]; ok {
			continue
		}
		seen[entry.UserID] = struct{}{}
		users = append(users, entry.UserID)
	}
	return users
}

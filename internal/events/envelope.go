package events

import (
	"encoding/json"
	"time"
)

// Change-feed event types. These follow the format: domain.action.
const (
	EventMessageInserted = "message.inserted"
	EventMessageUpdated  = "message.updated"
	EventMessageDeleted  = "message.deleted"

	EventRoomUpdated = "room.updated"
	EventRoomDeleted = "room.deleted"

	EventPresenceSync  = "presence.sync"
	EventTypingStarted = "typing.started"
	EventTypingStopped = "typing.stopped"
)

// Redis channel prefixes. Message change events for a room go out on
// ChannelPrefixRoom + roomID; ephemeral presence traffic is kept on its
// own prefix so sessions can subscribe to both for one room.
const (
	ChannelPrefixRoom     = "channel:room:"
	ChannelPrefixPresence = "channel:presence:"
)

// Envelope is the wire shape of every change-feed event.
type Envelope struct {
	EventType  string          `json:"event_type"`
	RoomID     string          `json:"room_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and wraps it for publication.
func NewEnvelope(eventType, roomID string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:  eventType,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}, nil
}

// RoomChannel returns the change-feed channel for a room.
func RoomChannel(roomID string) string {
	return ChannelPrefixRoom + roomID
}

// PresenceChannel returns the presence channel for a room.
func PresenceChannel(roomID string) string {
	return ChannelPrefixPresence + roomID
}

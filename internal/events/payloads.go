package events

import "time"

// MessageEvent is the payload of message.inserted / message.updated /
// message.deleted envelopes. It carries the full row so subscribers never
// need a follow-up read to render it.
type MessageEvent struct {
	ID          string            `json:"id"`
	RoomID      string            `json:"room_id"`
	UserID      string            `json:"user_id"`
	Content     string            `json:"content,omitempty"`
	MessageType string            `json:"message_type"`
	IsEdited    bool              `json:"is_edited"`
	IsDeleted   bool              `json:"is_deleted"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Attachments []AttachmentEvent `json:"attachments,omitempty"`
}

// AttachmentEvent mirrors a message_attachments row on the wire.
type AttachmentEvent struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
	Kind     string `json:"kind"`
}

// PresenceEvent announces the distinct set of users currently in a room.
type PresenceEvent struct {
	RoomID      string   `json:"room_id"`
	UserIDs     []string `json:"user_ids"`
	OnlineCount int      `json:"online_count"`
}

// TypingEvent marks a user starting or stopping typing in a room.
type TypingEvent struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	TypeText = "TEXT"
	TypeFile = "FILE"
)

// Message represents the messages table.
//
// IDs are generated by the sending session before any network call, so the
// optimistic in-memory entry and the persisted row share the same id. Rows
// are never hard-deleted; IsDeleted marks logical removal.
type Message struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	UserID      uuid.UUID
	Content     sql.NullString
	MessageType string
	IsEdited    bool
	IsDeleted   bool
	CreatedBy   uuid.NullUUID
	UpdatedBy   uuid.NullUUID
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Relationships
	Attachments []Attachment
}

// Attachment represents the message_attachments table
type Attachment struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	FileName  string
	FilePath  string
	FileSize  int64
	MimeType  string
	Kind      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (Attachment) TableName() string {
	return "message_attachments"
}

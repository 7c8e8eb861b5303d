package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/room"
)

type RoomRepository interface {
	Create(ctx context.Context, r *room.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (room.Room, error)
	Update(ctx context.Context, r room.Room) error
	// SoftDelete flips is_active; the row and its messages stay queryable.
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error
	GetUserRooms(ctx context.Context, userID uuid.UUID) ([]room.Room, error)
	GetByEntity(ctx context.Context, kind room.EntityKind, entityID uuid.UUID) (room.Room, error)
	TouchLastMessageAt(ctx context.Context, roomID uuid.UUID, at time.Time) error

	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (room.Participant, error)
	GetParticipants(ctx context.Context, roomID uuid.UUID) ([]room.Participant, error)
	AddParticipant(ctx context.Context, p *room.Participant) error
	// ReplaceParticipants deactivates every active participant row of the
	// room and inserts the given set in one transaction.
	ReplaceParticipants(ctx context.Context, roomID uuid.UUID, next []room.Participant) error
	MarkRead(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error
	CountParticipants(ctx context.Context, roomID uuid.UUID) (int64, error)
}

type MessageRepository interface {
	// Create inserts the message row and its attachment rows in one
	// transaction. The id is supplied by the caller (optimistic id).
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, updatedBy uuid.UUID) (message.Message, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) (message.Message, error)

	// GetRoomMessages returns up to limit non-deleted messages of the room
	// with created_at strictly before the cursor (zero cursor = newest),
	// in descending created_at order.
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]message.Message, error)
	GetLatestMessage(ctx context.Context, roomID uuid.UUID) (message.Message, error)
	CountUnread(ctx context.Context, roomID uuid.UUID, since time.Time) (int64, error)
}

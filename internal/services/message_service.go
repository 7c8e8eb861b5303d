package services

import (
	"context"
	"time"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/room"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/events"
	"agency-portal/internal/repository"
	portal_errors "agency-portal/pkg/errors"
	"agency-portal/pkg/logger"

	"github.com/google/uuid"
)

type MessageService struct {
	messages  repository.MessageRepository
	rooms     repository.RoomRepository
	publisher events.Publisher
	log       *logger.Logger
}

func NewMessageService(messages repository.MessageRepository, rooms repository.RoomRepository, publisher events.Publisher, log *logger.Logger) *MessageService {
	return &MessageService{messages: messages, rooms: rooms, publisher: publisher, log: log}
}

// Persist stores a message the sending session already renders. The id
// arrives with the message; inserting a duplicate id is a conflict, which
// keeps retries of the optimistic pipeline idempotent at the row level.
// On success the room is bumped so the directory reorders by recency, and
// the insert goes out on the change feed.
func (s *MessageService) Persist(ctx context.Context, m message.Message) error {
	p, err := s.rooms.GetParticipant(ctx, m.RoomID, m.UserID)
	if err != nil {
		return portal_errors.ErrForbidden
	}
	if p.Permission != room.PermissionWrite && p.Permission != room.PermissionAdmin {
		return portal_errors.ErrForbidden
	}

	if !m.Content.Valid && len(m.Attachments) == 0 {
		return portal_errors.ErrInvalidInput
	}
	if m.ID == uuid.Nil {
		return portal_errors.ErrInvalidInput
	}

	if err := s.messages.Create(ctx, &m); err != nil {
		return err
	}

	if err := s.rooms.TouchLastMessageAt(ctx, m.RoomID, m.CreatedAt); err != nil {
		s.log.Errorf("last_message_at bump failed: %v", err)
	}

	s.publish(ctx, events.EventMessageInserted, m)
	return nil
}

// Edit replaces a message's content. Only the author may edit; edits are
// never rendered optimistically, the session waits for the feed echo.
func (s *MessageService) Edit(ctx context.Context, actor user.Identity, messageID uuid.UUID, content string) error {
	if content == "" {
		return portal_errors.ErrInvalidInput
	}
	existing, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if existing.UserID != actor.ID {
		return portal_errors.ErrForbidden
	}

	updated, err := s.messages.UpdateContent(ctx, messageID, content, actor.ID)
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventMessageUpdated, updated)
	return nil
}

// Delete soft-deletes a message. The author or a room ADMIN may delete;
// the row survives with is_deleted=true.
func (s *MessageService) Delete(ctx context.Context, actor user.Identity, messageID uuid.UUID) error {
	existing, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if existing.UserID != actor.ID {
		p, err := s.rooms.GetParticipant(ctx, existing.RoomID, actor.ID)
		if err != nil || p.Permission != room.PermissionAdmin {
			return portal_errors.ErrForbidden
		}
	}

	deleted, err := s.messages.SoftDelete(ctx, messageID, actor.ID)
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventMessageDeleted, deleted)
	return nil
}

// RoomPage returns one history page for a participant, newest first.
func (s *MessageService) RoomPage(ctx context.Context, actorID, roomID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	if _, err := s.rooms.GetParticipant(ctx, roomID, actorID); err != nil {
		return nil, portal_errors.ErrForbidden
	}
	if limit <= 0 {
		limit = 20
	}
	return s.messages.GetRoomMessages(ctx, roomID, before, limit)
}

func (s *MessageService) publish(ctx context.Context, eventType string, m message.Message) {
	if s.publisher == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, m.RoomID.String(), messageEventFrom(m))
	if err != nil {
		s.log.Errorf("event marshal failed: %v", err)
		return
	}
	if err := s.publisher.Publish(ctx, events.RoomChannel(m.RoomID.String()), env); err != nil {
		s.log.Errorf("event publish failed: %v", err)
	}
}

func messageEventFrom(m message.Message) events.MessageEvent {
	me := events.MessageEvent{
		ID:          m.ID.String(),
		RoomID:      m.RoomID.String(),
		UserID:      m.UserID.String(),
		MessageType: m.MessageType,
		IsEdited:    m.IsEdited,
		IsDeleted:   m.IsDeleted,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Content.Valid {
		me.Content = m.Content.String
	}
	for _, a := range m.Attachments {
		me.Attachments = append(me.Attachments, events.AttachmentEvent{
			ID:       a.ID.String(),
			FileName: a.FileName,
			FilePath: a.FilePath,
			FileSize: a.FileSize,
			MimeType: a.MimeType,
			Kind:     a.Kind,
		})
	}
	return me
}

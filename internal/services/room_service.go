package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"agency-portal/internal/domain/room"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/events"
	"agency-portal/internal/repository"
	portal_errors "agency-portal/pkg/errors"
	"agency-portal/pkg/logger"

	"github.com/google/uuid"
)

// AdminDirectory lists the platform admins used to seed entity rooms.
type AdminDirectory interface {
	PlatformAdmins(ctx context.Context) ([]user.Identity, error)
}

type RoomService struct {
	rooms     repository.RoomRepository
	messages  repository.MessageRepository
	reads     *ReadService
	admins    AdminDirectory
	publisher events.Publisher
	log       *logger.Logger
}

func NewRoomService(rooms repository.RoomRepository, messages repository.MessageRepository, reads *ReadService, admins AdminDirectory, publisher events.Publisher, log *logger.Logger) *RoomService {
	return &RoomService{
		rooms:     rooms,
		messages:  messages,
		reads:     reads,
		admins:    admins,
		publisher: publisher,
		log:       log,
	}
}

// RoomSummary is the directory view of one room for one user.
type RoomSummary struct {
	Room               room.Room
	UnreadCount        int64
	ParticipantCount   int64
	LastMessagePreview string
}

// MemberInput is one requested membership row.
type MemberInput struct {
	UserID     uuid.UUID
	Permission string
}

type CreateRoomInput struct {
	Name        string
	Description string
	Type        string
	AvatarURL   string
	Entity      *room.EntityRef
	Members     []MemberInput
}

type UpdateRoomInput struct {
	Name        *string
	Description *string
	AvatarURL   *string
	IsArchived  *bool
	// Members, when non-nil, triggers a full membership replace.
	Members []MemberInput
}

// ListRoomsForUser returns every room the user actively participates in,
// annotated with unread count and last-message preview.
func (s *RoomService) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]RoomSummary, error) {
	rooms, err := s.rooms.GetUserRooms(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, rm := range rooms {
		summary := RoomSummary{Room: rm, ParticipantCount: int64(len(rm.Participants))}

		var lastRead time.Time
		for _, p := range rm.Participants {
			if p.UserID == userID && p.LastReadAt.Valid {
				lastRead = p.LastReadAt.Time
			}
		}
		unread, err := s.messages.CountUnread(ctx, rm.ID, lastRead)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		if latest, err := s.messages.GetLatestMessage(ctx, rm.ID); err == nil && latest.Content.Valid {
			summary.LastMessagePreview = latest.Content.String
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *RoomService) GetRoom(ctx context.Context, actorID, roomID uuid.UUID) (room.Room, error) {
	if _, err := s.rooms.GetParticipant(ctx, roomID, actorID); err != nil {
		return room.Room{}, portal_errors.ErrForbidden
	}
	return s.rooms.GetByID(ctx, roomID)
}

func (s *RoomService) CreateRoom(ctx context.Context, creator user.Identity, input CreateRoomInput) (room.Room, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return room.Room{}, portal_errors.ErrInvalidInput
	}
	roomType := input.Type
	if roomType == "" {
		roomType = room.TypeGeneral
	}
	if !room.ValidType(roomType) {
		return room.Room{}, portal_errors.ErrInvalidInput
	}

	now := time.Now()
	rm := room.Room{
		ID:        uuid.New(),
		Name:      name,
		Type:      roomType,
		IsActive:  true,
		CreatedBy: uuid.NullUUID{UUID: creator.ID, Valid: true},
		UpdatedBy: uuid.NullUUID{UUID: creator.ID, Valid: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Description != "" {
		rm.Description = sql.NullString{String: input.Description, Valid: true}
	}
	if input.AvatarURL != "" {
		rm.AvatarURL = sql.NullString{String: input.AvatarURL, Valid: true}
	}
	if input.Entity != nil {
		ref := uuid.NullUUID{UUID: input.Entity.ID, Valid: true}
		switch input.Entity.Kind {
		case room.EntityClient:
			rm.ClientID = ref
		case room.EntityContract:
			rm.ContractID = ref
		case room.EntityProposal:
			rm.ProposalID = ref
		default:
			return room.Room{}, portal_errors.ErrInvalidInput
		}
	}

	if err := s.rooms.Create(ctx, &rm); err != nil {
		return room.Room{}, err
	}

	// Creator is always the first ADMIN participant.
	if err := s.rooms.AddParticipant(ctx, s.participantRow(rm.ID, creator.ID, room.PermissionAdmin, creator.ID)); err != nil {
		return room.Room{}, err
	}
	for _, m := range input.Members {
		if m.UserID == creator.ID {
			continue
		}
		perm := m.Permission
		if perm == "" {
			perm = room.PermissionRead
		}
		if !room.ValidPermission(perm) {
			return room.Room{}, portal_errors.ErrInvalidInput
		}
		if err := s.rooms.AddParticipant(ctx, s.participantRow(rm.ID, m.UserID, perm, creator.ID)); err != nil {
			return room.Room{}, err
		}
	}

	return s.rooms.GetByID(ctx, rm.ID)
}

func (s *RoomService) UpdateRoom(ctx context.Context, actor user.Identity, roomID uuid.UUID, input UpdateRoomInput) (room.Room, error) {
	if err := s.requireAdmin(ctx, actor, roomID); err != nil {
		return room.Room{}, err
	}

	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return room.Room{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return room.Room{}, portal_errors.ErrInvalidInput
		}
		rm.Name = name
	}
	if input.Description != nil {
		rm.Description = sql.NullString{String: *input.Description, Valid: *input.Description != ""}
	}
	if input.AvatarURL != nil {
		rm.AvatarURL = sql.NullString{String: *input.AvatarURL, Valid: *input.AvatarURL != ""}
	}
	if input.IsArchived != nil {
		rm.IsArchived = *input.IsArchived
	}
	rm.UpdatedBy = uuid.NullUUID{UUID: actor.ID, Valid: true}
	rm.UpdatedAt = time.Now()
	rm.Participants = nil

	if err := s.rooms.Update(ctx, rm); err != nil {
		return room.Room{}, err
	}

	// Membership update is a full replace, never a diff: deactivate the
	// whole active set, insert the new one. Unrelated members lose their
	// historical row timestamps, which the portal accepts for atomicity.
	if input.Members != nil {
		next := make([]room.Participant, 0, len(input.Members))
		for _, m := range input.Members {
			perm := m.Permission
			if perm == "" {
				perm = room.PermissionRead
			}
			if !room.ValidPermission(perm) {
				return room.Room{}, portal_errors.ErrInvalidInput
			}
			next = append(next, *s.participantRow(roomID, m.UserID, perm, actor.ID))
		}
		if err := s.rooms.ReplaceParticipants(ctx, roomID, next); err != nil {
			return room.Room{}, err
		}
	}

	s.publishRoomEvent(ctx, events.EventRoomUpdated, roomID)
	return s.rooms.GetByID(ctx, roomID)
}

// SoftDeleteRoom deactivates a room. Messages stay queryable for history.
func (s *RoomService) SoftDeleteRoom(ctx context.Context, actor user.Identity, roomID uuid.UUID) error {
	if err := s.requireAdmin(ctx, actor, roomID); err != nil {
		return err
	}
	if err := s.rooms.SoftDelete(ctx, roomID, actor.ID); err != nil {
		return err
	}
	s.publishRoomEvent(ctx, events.EventRoomDeleted, roomID)
	return nil
}

// EnsureEntityRoom creates the discussion room tied to a client, contract
// or proposal, seeded with the creating user and every platform admin.
// Safe to call again for the same entity; the existing room is returned.
func (s *RoomService) EnsureEntityRoom(ctx context.Context, creator user.Identity, entity room.EntityRef) (room.Room, error) {
	if entity.ID == uuid.Nil || entity.Name == "" {
		return room.Room{}, portal_errors.ErrInvalidInput
	}

	if existing, err := s.rooms.GetByEntity(ctx, entity.Kind, entity.ID); err == nil {
		return existing, nil
	}

	members := []MemberInput{}
	if s.admins != nil {
		admins, err := s.admins.PlatformAdmins(ctx)
		if err != nil {
			s.log.Errorf("platform admin lookup failed: %v", err)
		}
		for _, a := range admins {
			members = append(members, MemberInput{UserID: a.ID, Permission: room.PermissionAdmin})
		}
	}

	return s.CreateRoom(ctx, creator, CreateRoomInput{
		Name:    entity.Name,
		Type:    room.TypeForEntity(entity.Kind),
		Entity:  &entity,
		Members: members,
	})
}

func (s *RoomService) participantRow(roomID, userID uuid.UUID, permission string, by uuid.UUID) *room.Participant {
	now := time.Now()
	return &room.Participant{
		ID:         uuid.New(),
		RoomID:     roomID,
		UserID:     userID,
		Permission: permission,
		IsActive:   true,
		CreatedBy:  uuid.NullUUID{UUID: by, Valid: true},
		UpdatedBy:  uuid.NullUUID{UUID: by, Valid: true},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *RoomService) requireAdmin(ctx context.Context, actor user.Identity, roomID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	p, err := s.rooms.GetParticipant(ctx, roomID, actor.ID)
	if err != nil {
		return portal_errors.ErrForbidden
	}
	if p.Permission != room.PermissionAdmin {
		return portal_errors.ErrForbidden
	}
	return nil
}

func (s *RoomService) publishRoomEvent(ctx context.Context, eventType string, roomID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, roomID.String(), map[string]string{"room_id": roomID.String()})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.RoomChannel(roomID.String()), env); err != nil {
		s.log.Errorf("room event publish failed: %v", err)
	}
}

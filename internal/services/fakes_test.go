package services

import (
	"context"
	"sort"
	"time"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/room"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/events"
	portal_errors "agency-portal/pkg/errors"
	"agency-portal/pkg/logger"

	"github.com/google/uuid"
)

func testLogger() *logger.Logger {
	return logger.New(logger.DevelopmentMode)
}

type participantKey struct {
	roomID uuid.UUID
	userID uuid.UUID
}

type memRoomRepo struct {
	rooms        map[uuid.UUID]room.Room
	participants map[participantKey]room.Participant
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{
		rooms:        make(map[uuid.UUID]room.Room),
		participants: make(map[participantKey]room.Participant),
	}
}

func (r *memRoomRepo) Create(ctx context.Context, rm *room.Room) error {
	r.rooms[rm.ID] = *rm
	return nil
}

func (r *memRoomRepo) GetByID(ctx context.Context, id uuid.UUID) (room.Room, error) {
	rm, ok := r.rooms[id]
	if !ok || !rm.IsActive {
		return room.Room{}, portal_errors.ErrNotFound
	}
	rm.Participants = r.activeParticipants(id)
	return rm, nil
}

func (r *memRoomRepo) Update(ctx context.Context, rm room.Room) error {
	if _, ok := r.rooms[rm.ID]; !ok {
		return portal_errors.ErrNotFound
	}
	rm.Participants = nil
	r.rooms[rm.ID] = rm
	return nil
}

func (r *memRoomRepo) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error {
	rm, ok := r.rooms[id]
	if !ok {
		return portal_errors.ErrNotFound
	}
	rm.IsActive = false
	r.rooms[id] = rm
	return nil
}

func (r *memRoomRepo) GetUserRooms(ctx context.Context, userID uuid.UUID) ([]room.Room, error) {
	var out []room.Room
	for id, rm := range r.rooms {
		if !rm.IsActive {
			continue
		}
		if _, ok := r.participants[participantKey{roomID: id, userID: userID}]; !ok {
			continue
		}
		rm.Participants = r.activeParticipants(id)
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRoomRepo) GetByEntity(ctx context.Context, kind room.EntityKind, entityID uuid.UUID) (room.Room, error) {
	ref := uuid.NullUUID{UUID: entityID, Valid: true}
	for id, rm := range r.rooms {
		if !rm.IsActive {
			continue
		}
		var match bool
		switch kind {
		case room.EntityClient:
			match = rm.ClientID == ref
		case room.EntityContract:
			match = rm.ContractID == ref
		case room.EntityProposal:
			match = rm.ProposalID == ref
		}
		if match {
			rm.Participants = r.activeParticipants(id)
			return rm, nil
		}
	}
	return room.Room{}, portal_errors.ErrNotFound
}

func (r *memRoomRepo) TouchLastMessageAt(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	rm, ok := r.rooms[roomID]
	if !ok {
		return portal_errors.ErrNotFound
	}
	rm.LastMessageAt.Time = at
	rm.LastMessageAt.Valid = true
	r.rooms[roomID] = rm
	return nil
}

func (r *memRoomRepo) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (room.Participant, error) {
	p, ok := r.participants[participantKey{roomID: roomID, userID: userID}]
	if !ok || !p.IsActive {
		return room.Participant{}, portal_errors.ErrNotFound
	}
	return p, nil
}

func (r *memRoomRepo) GetParticipants(ctx context.Context, roomID uuid.UUID) ([]room.Participant, error) {
	return r.activeParticipants(roomID), nil
}

func (r *memRoomRepo) AddParticipant(ctx context.Context, p *room.Participant) error {
	r.participants[participantKey{roomID: p.RoomID, userID: p.UserID}] = *p
	return nil
}

func (r *memRoomRepo) ReplaceParticipants(ctx context.Context, roomID uuid.UUID, next []room.Participant) error {
	for key, p := range r.participants {
		if key.roomID == roomID {
			p.IsActive = false
			r.participants[key] = p
		}
	}
	for _, p := range next {
		r.participants[participantKey{roomID: roomID, userID: p.UserID}] = p
	}
	return nil
}

func (r *memRoomRepo) MarkRead(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error {
	key := participantKey{roomID: roomID, userID: userID}
	p, ok := r.participants[key]
	if !ok {
		return portal_errors.ErrNotFound
	}
	p.LastReadAt.Time = at
	p.LastReadAt.Valid = true
	r.participants[key] = p
	return nil
}

func (r *memRoomRepo) CountParticipants(ctx context.Context, roomID uuid.UUID) (int64, error) {
	return int64(len(r.activeParticipants(roomID))), nil
}

func (r *memRoomRepo) activeParticipants(roomID uuid.UUID) []room.Participant {
	var out []room.Participant
	for key, p := range r.participants {
		if key.roomID == roomID && p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out
}

type memMessageRepo struct {
	messages map[uuid.UUID]message.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{messages: make(map[uuid.UUID]message.Message)}
}

func (r *memMessageRepo) Create(ctx context.Context, m *message.Message) error {
	if _, ok := r.messages[m.ID]; ok {
		return portal_errors.ErrAlreadyExists
	}
	r.messages[m.ID] = *m
	return nil
}

func (r *memMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	m, ok := r.messages[id]
	if !ok || m.IsDeleted {
		return message.Message{}, portal_errors.ErrNotFound
	}
	return m, nil
}

func (r *memMessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string, updatedBy uuid.UUID) (message.Message, error) {
	m, ok := r.messages[id]
	if !ok || m.IsDeleted {
		return message.Message{}, portal_errors.ErrNotFound
	}
	m.Content.String = content
	m.Content.Valid = true
	m.IsEdited = true
	m.UpdatedAt = time.Now()
	r.messages[id] = m
	return m, nil
}

func (r *memMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) (message.Message, error) {
	m, ok := r.messages[id]
	if !ok || m.IsDeleted {
		return message.Message{}, portal_errors.ErrNotFound
	}
	m.IsDeleted = true
	m.UpdatedAt = time.Now()
	r.messages[id] = m
	return m, nil
}

func (r *memMessageRepo) GetRoomMessages(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	var out []message.Message
	for _, m := range r.messages {
		if m.RoomID != roomID || m.IsDeleted {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMessageRepo) GetLatestMessage(ctx context.Context, roomID uuid.UUID) (message.Message, error) {
	page, err := r.GetRoomMessages(ctx, roomID, time.Time{}, 1)
	if err != nil || len(page) == 0 {
		return message.Message{}, portal_errors.ErrNotFound
	}
	return page[0], nil
}

func (r *memMessageRepo) CountUnread(ctx context.Context, roomID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	for _, m := range r.messages {
		if m.RoomID == roomID && !m.IsDeleted && m.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

type capturingPublisher struct {
	envelopes []events.Envelope
	channels  []string
}

func (p *capturingPublisher) Publish(ctx context.Context, channel string, env events.Envelope) error {
	p.channels = append(p.channels, channel)
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (p *capturingPublisher) lastEventType() string {
	if len(p.envelopes) == 0 {
		return ""
	}
	return p.envelopes[len(p.envelopes)-1].EventType
}

type staticAdmins struct {
	admins []user.Identity
}

func (s staticAdmins) PlatformAdmins(ctx context.Context) ([]user.Identity, error) {
	return s.admins, nil
}

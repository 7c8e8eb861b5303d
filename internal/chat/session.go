package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/events"
	portal_errors "agency-portal/pkg/errors"
	"agency-portal/pkg/logger"

	"github.com/google/uuid"
)

// Receiver is handed raw change-feed payloads for subscribed channels.
type Receiver interface {
	Deliver(channel string, payload []byte)
}

// Feed attaches a receiver to a room's change-feed and presence channels.
type Feed interface {
	Subscribe(roomID uuid.UUID, r Receiver)
	Unsubscribe(roomID uuid.UUID, r Receiver)
}

// History pages persisted messages, newest first.
type History interface {
	RecentMessages(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]Entry, error)
}

// Sender persists a message the session already renders optimistically.
type Sender interface {
	Persist(ctx context.Context, m message.Message) error
}

// AuthorResolver resolves a user id to a display identity.
type AuthorResolver interface {
	ResolveAuthor(ctx context.Context, id uuid.UUID) (user.Identity, error)
}

// Presence tracks ephemeral room membership for this connection.
type Presence interface {
	Track(ctx context.Context, roomID, userID, userName, connectionID string) error
	Untrack(ctx context.Context, roomID, connectionID string) error
	TrackTyping(ctx context.Context, roomID, userID, userName string, isTyping bool) error
}

// ReadMarker advances the participant's read position.
type ReadMarker interface {
	MarkRead(ctx context.Context, userID, roomID uuid.UUID) error
}

// Sink receives state deltas to forward to the connected client.
type Sink interface {
	Push(event string, payload any)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event string, payload any)

func (f SinkFunc) Push(event string, payload any) { f(event, payload) }

// Sink event names.
const (
	PushRoomOpened       = "room.opened"
	PushMessageAppended  = "message.appended"
	PushMessageUpdated   = "message.updated"
	PushMessageRemoved   = "message.removed"
	PushHistoryPrepended = "history.prepended"
	PushBadgeUpdated     = "badge.updated"
	PushSendFailed       = "send.failed"
	PushPresenceSync     = "presence.sync"
	PushTyping           = "typing"
)

// Deps bundles everything a session needs from the outside.
type Deps struct {
	Feed     Feed
	History  History
	Sender   Sender
	Authors  AuthorResolver
	Presence Presence
	Read     ReadMarker
	Sink     Sink
	Log      *logger.Logger
}

// Session owns the in-memory chat state for one connected client: the
// message store for the active room, the optimistic-id registry, the
// pagination cursor and the new-message badge. All state mutations are
// serialized on the session mutex; the change feed and the client's
// commands never interleave mid-operation.
type Session struct {
	user         user.Identity
	connectionID string
	pageSize     int
	deps         Deps

	mu          sync.Mutex
	store       *Store
	optimistic  *Registry
	currentRoom uuid.UUID
	hasMore     bool
	epoch       uint64
	pinned      bool
	newMessages int
}

func NewSession(identity user.Identity, pageSize, registrySize int, deps Deps) *Session {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Session{
		user:         identity,
		connectionID: uuid.New().String(),
		pageSize:     pageSize,
		deps:         deps,
		store:        NewStore(),
		optimistic:   NewRegistry(registrySize),
		pinned:       true,
	}
}

func (s *Session) User() user.Identity { return s.user }

func (s *Session) ConnectionID() string { return s.connectionID }

// OpenRoom switches the active room. The previous room's subscription and
// presence are torn down first, so a late event for the old room can never
// land in the new room's store.
func (s *Session) OpenRoom(ctx context.Context, roomID uuid.UUID) error {
	s.mu.Lock()
	prev := s.currentRoom
	s.epoch++
	epoch := s.epoch
	s.store.Clear()
	s.currentRoom = roomID
	s.hasMore = false
	s.newMessages = 0
	s.pinned = true
	s.mu.Unlock()

	if prev != uuid.Nil {
		s.deps.Feed.Unsubscribe(prev, s)
		if err := s.deps.Presence.Untrack(ctx, prev.String(), s.connectionID); err != nil {
			s.logErr("presence untrack failed: %v", err)
		}
	}

	// Subscribe before loading history so nothing published during the
	// load is missed; the id check in the store absorbs any overlap.
	s.deps.Feed.Subscribe(roomID, s)

	page, err := s.deps.History.RecentMessages(ctx, roomID, time.Time{}, s.pageSize)
	if err != nil {
		return err
	}
	ascending := reverse(page)

	s.mu.Lock()
	if s.epoch != epoch {
		// Switched away while loading; drop the result.
		s.mu.Unlock()
		return nil
	}
	s.store.Prepend(ascending)
	s.hasMore = len(page) == s.pageSize
	entries := s.store.Entries()
	hasMore := s.hasMore
	s.mu.Unlock()

	if err := s.deps.Read.MarkRead(ctx, s.user.ID, roomID); err != nil {
		s.logErr("mark read failed: %v", err)
	}
	if err := s.deps.Presence.Track(ctx, roomID.String(), s.user.ID.String(), s.user.Name, s.connectionID); err != nil {
		s.logErr("presence track failed: %v", err)
	}

	s.deps.Sink.Push(PushRoomOpened, map[string]any{
		"room_id":  roomID.String(),
		"messages": entries,
		"has_more": hasMore,
	})
	return nil
}

// Close tears the session down on disconnect.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	room := s.currentRoom
	s.epoch++
	s.currentRoom = uuid.Nil
	s.store.Clear()
	s.mu.Unlock()

	if room != uuid.Nil {
		s.deps.Feed.Unsubscribe(room, s)
		if err := s.deps.Presence.Untrack(ctx, room.String(), s.connectionID); err != nil {
			s.logErr("presence untrack failed: %v", err)
		}
	}
}

// SendInput is what the client supplies for one send.
type SendInput struct {
	Content     string
	Attachments []message.Attachment
}

// Send runs the optimistic pipeline: generate the id, render immediately,
// register the id for echo suppression, then persist asynchronously. A
// failed persist is reported but the optimistic entry is left in place.
func (s *Session) Send(ctx context.Context, input SendInput) (Entry, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && len(input.Attachments) == 0 {
		return Entry{}, portal_errors.ErrInvalidInput
	}
	for _, a := range input.Attachments {
		if err := message.ValidateAttachment(a); err != nil {
			return Entry{}, err
		}
	}

	s.mu.Lock()
	room := s.currentRoom
	if room == uuid.Nil {
		s.mu.Unlock()
		return Entry{}, portal_errors.ErrInvalidInput
	}

	now := time.Now().UTC()
	msgType := message.TypeText
	if len(input.Attachments) > 0 {
		msgType = message.TypeFile
	}
	m := message.Message{
		ID:          uuid.New(),
		RoomID:      room,
		UserID:      s.user.ID,
		MessageType: msgType,
		CreatedBy:   uuid.NullUUID{UUID: s.user.ID, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
		Attachments: input.Attachments,
	}
	if content != "" {
		m.Content = sql.NullString{String: content, Valid: true}
	}

	entry := Entry{Message: m, Author: s.user}
	s.store.Append(entry)
	s.optimistic.Add(m.ID)
	s.mu.Unlock()

	s.deps.Sink.Push(PushMessageAppended, entry)

	persistCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.deps.Sender.Persist(persistCtx, m); err != nil {
			// Fire and leave: the entry stays visible, the failure is
			// only reported.
			s.logErr("message persist failed: %v", err)
			s.deps.Sink.Push(PushSendFailed, map[string]any{
				"message_id": m.ID.String(),
				"error":      err.Error(),
			})
		}
	}()

	return entry, nil
}

// LoadOlder prepends the next page of history. hasMore turns false when a
// short page comes back.
func (s *Session) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	room := s.currentRoom
	epoch := s.epoch
	oldest, ok := s.store.Oldest()
	hasMore := s.hasMore
	s.mu.Unlock()

	if room == uuid.Nil || !ok || !hasMore {
		return nil
	}

	page, err := s.deps.History.RecentMessages(ctx, room, oldest.Message.CreatedAt, s.pageSize)
	if err != nil {
		return err
	}
	ascending := reverse(page)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	s.store.Prepend(ascending)
	s.hasMore = len(page) == s.pageSize
	more := s.hasMore
	s.mu.Unlock()

	s.deps.Sink.Push(PushHistoryPrepended, map[string]any{
		"messages": ascending,
		"has_more": more,
	})
	return nil
}

// MarkRead acknowledges the active room explicitly.
func (s *Session) MarkRead(ctx context.Context) error {
	s.mu.Lock()
	room := s.currentRoom
	s.mu.Unlock()
	if room == uuid.Nil {
		return portal_errors.ErrInvalidInput
	}
	return s.deps.Read.MarkRead(ctx, s.user.ID, room)
}

// Typing forwards a typing indicator for the active room.
func (s *Session) Typing(ctx context.Context, isTyping bool) error {
	s.mu.Lock()
	room := s.currentRoom
	s.mu.Unlock()
	if room == uuid.Nil {
		return nil
	}
	return s.deps.Presence.TrackTyping(ctx, room.String(), s.user.ID.String(), s.user.Name, isTyping)
}

// SetPinned records whether the viewer is scrolled to the bottom. Pinned
// viewers get new messages immediately; unpinned viewers accumulate a
// badge instead.
func (s *Session) SetPinned(pinned bool) {
	s.mu.Lock()
	s.pinned = pinned
	if pinned {
		s.newMessages = 0
	}
	s.mu.Unlock()
}

// JumpToBottom clears the badge and pins the viewer again.
func (s *Session) JumpToBottom() {
	s.mu.Lock()
	s.pinned = true
	s.newMessages = 0
	s.mu.Unlock()
	s.deps.Sink.Push(PushBadgeUpdated, map[string]any{"count": 0})
}

// Deliver is the change-feed entry point. Events for any room other than
// the active one are discarded; handlers are idempotent against duplicate
// delivery.
func (s *Session) Deliver(channel string, payload []byte) {
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.logErr("bad feed payload: %v", err)
		return
	}

	switch env.EventType {
	case events.EventMessageInserted:
		s.applyInsert(env)
	case events.EventMessageUpdated:
		s.applyUpdate(env)
	case events.EventMessageDeleted:
		s.applyDelete(env)
	case events.EventPresenceSync:
		s.forward(PushPresenceSync, env)
	case events.EventTypingStarted, events.EventTypingStopped:
		s.forward(PushTyping, env)
	}
}

func (s *Session) applyInsert(env events.Envelope) {
	var me events.MessageEvent
	if err := json.Unmarshal(env.Payload, &me); err != nil {
		s.logErr("bad insert payload: %v", err)
		return
	}
	id, err := uuid.Parse(me.ID)
	if err != nil {
		return
	}

	s.mu.Lock()
	if !s.isCurrentLocked(env.RoomID) {
		s.mu.Unlock()
		return
	}
	if s.optimistic.Seen(id) {
		// Echo of our own optimistic append.
		s.mu.Unlock()
		return
	}
	authorID, _ := uuid.Parse(me.UserID)
	s.mu.Unlock()

	author := s.resolveAuthor(authorID)

	s.mu.Lock()
	if !s.isCurrentLocked(env.RoomID) {
		s.mu.Unlock()
		return
	}
	entry := Entry{Message: messageFromEvent(me), Author: author}
	added := s.store.Append(entry)
	pinned := s.pinned
	if added && !pinned {
		s.newMessages++
	}
	badge := s.newMessages
	s.mu.Unlock()

	if !added {
		return
	}
	if pinned {
		s.deps.Sink.Push(PushMessageAppended, entry)
	} else {
		s.deps.Sink.Push(PushBadgeUpdated, map[string]any{"count": badge})
	}
}

func (s *Session) applyUpdate(env events.Envelope) {
	var me events.MessageEvent
	if err := json.Unmarshal(env.Payload, &me); err != nil {
		s.logErr("bad update payload: %v", err)
		return
	}

	s.mu.Lock()
	if !s.isCurrentLocked(env.RoomID) {
		s.mu.Unlock()
		return
	}
	entry := Entry{Message: messageFromEvent(me)}
	updated := s.store.UpdateInPlace(entry)
	if updated {
		// Re-read so the pushed entry carries the preserved author.
		for _, e := range s.store.Entries() {
			if e.Message.ID == entry.Message.ID {
				entry = e
				break
			}
		}
	}
	s.mu.Unlock()

	if updated {
		s.deps.Sink.Push(PushMessageUpdated, entry)
	}
}

func (s *Session) applyDelete(env events.Envelope) {
	var me events.MessageEvent
	if err := json.Unmarshal(env.Payload, &me); err != nil {
		s.logErr("bad delete payload: %v", err)
		return
	}
	id, err := uuid.Parse(me.ID)
	if err != nil {
		return
	}

	s.mu.Lock()
	if !s.isCurrentLocked(env.RoomID) {
		s.mu.Unlock()
		return
	}
	removed := s.store.RemoveByID(id)
	s.mu.Unlock()

	if removed {
		s.deps.Sink.Push(PushMessageRemoved, map[string]any{"message_id": me.ID})
	}
}

func (s *Session) forward(kind string, env events.Envelope) {
	s.mu.Lock()
	current := s.isCurrentLocked(env.RoomID)
	s.mu.Unlock()
	if !current {
		return
	}
	s.deps.Sink.Push(kind, json.RawMessage(env.Payload))
}

func (s *Session) isCurrentLocked(roomID string) bool {
	return s.currentRoom != uuid.Nil && s.currentRoom.String() == roomID
}

func (s *Session) resolveAuthor(id uuid.UUID) user.Identity {
	if id == s.user.ID {
		return s.user
	}
	author, err := s.deps.Authors.ResolveAuthor(context.Background(), id)
	if err != nil {
		s.logErr("author lookup failed: %v", err)
		return user.Identity{ID: id}
	}
	return author
}

func (s *Session) logErr(template string, args ...interface{}) {
	if s.deps.Log != nil {
		s.deps.Log.Errorf(template, args...)
	}
}

// Entries exposes the current ordered view.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Entries()
}

// HasMore reports whether older history remains.
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Badge returns the unseen-message counter for unpinned viewers.
func (s *Session) Badge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newMessages
}

// CurrentRoom returns the active room id, or uuid.Nil.
func (s *Session) CurrentRoom() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRoom
}

func messageFromEvent(me events.MessageEvent) message.Message {
	id, _ := uuid.Parse(me.ID)
	roomID, _ := uuid.Parse(me.RoomID)
	userID, _ := uuid.Parse(me.UserID)
	m := message.Message{
		ID:          id,
		RoomID:      roomID,
		UserID:      userID,
		MessageType: me.MessageType,
		IsEdited:    me.IsEdited,
		IsDeleted:   me.IsDeleted,
		CreatedAt:   me.CreatedAt,
		UpdatedAt:   me.UpdatedAt,
	}
	if me.Content != "" {
		m.Content = sql.NullString{String: me.Content, Valid: true}
	}
	for _, a := range me.Attachments {
		attID, _ := uuid.Parse(a.ID)
		m.Attachments = append(m.Attachments, message.Attachment{
			ID:        attID,
			MessageID: id,
			FileName:  a.FileName,
			FilePath:  a.FilePath,
			FileSize:  a.FileSize,
			MimeType:  a.MimeType,
			Kind:      a.Kind,
		})
	}
	return m
}

func reverse(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[len(in)-1-i] = e
	}
	return out
}

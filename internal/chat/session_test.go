package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/events"

	"github.com/google/uuid"
)

type fakeFeed struct {
	mu         sync.Mutex
	subscribed []uuid.UUID
	active     map[uuid.UUID]bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{active: make(map[uuid.UUID]bool)}
}

func (f *fakeFeed) Subscribe(roomID uuid.UUID, r Receiver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, roomID)
	f.active[roomID] = true
}

func (f *fakeFeed) Unsubscribe(roomID uuid.UUID, r Receiver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[roomID] = false
}

type fakeHistory struct {
	pages map[uuid.UUID][]Entry // full history, newest first
}

func (h *fakeHistory) RecentMessages(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]Entry, error) {
	all := h.pages[roomID]
	var out []Entry
	for _, e := range all {
		if !before.IsZero() && !e.Message.CreatedAt.Before(before) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []message.Message
	err  error
	done chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{done: make(chan struct{}, 16)}
}

func (s *fakeSender) Persist(ctx context.Context, m message.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, m)
	err := s.err
	s.mu.Unlock()
	s.done <- struct{}{}
	return err
}

type fakeAuthors struct{}

func (fakeAuthors) ResolveAuthor(ctx context.Context, id uuid.UUID) (user.Identity, error) {
	return user.Identity{ID: id, Name: "resolved"}, nil
}

type fakePresence struct {
	mu      sync.Mutex
	tracked map[string]bool
}

func newFakePresence() *fakePresence { return &fakePresence{tracked: make(map[string]bool)} }

func (p *fakePresence) Track(ctx context.Context, roomID, userID, userName, connectionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracked[roomID] = true
	return nil
}

func (p *fakePresence) Untrack(ctx context.Context, roomID, connectionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracked[roomID] = false
	return nil
}

func (p *fakePresence) TrackTyping(ctx context.Context, roomID, userID, userName string, isTyping bool) error {
	return nil
}

type fakeReader struct {
	mu    sync.Mutex
	marks []uuid.UUID
}

func (r *fakeReader) MarkRead(ctx context.Context, userID, roomID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = append(r.marks, roomID)
	return nil
}

type push struct {
	event   string
	payload any
}

type recordingSink struct {
	mu     sync.Mutex
	pushes []push
	wake   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{wake: make(chan struct{}, 64)}
}

func (s *recordingSink) Push(event string, payload any) {
	s.mu.Lock()
	s.pushes = append(s.pushes, push{event: event, payload: payload})
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *recordingSink) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pushes))
	for i, p := range s.pushes {
		out[i] = p.event
	}
	return out
}

func (s *recordingSink) waitFor(t *testing.T, event string) push {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		for _, p := range s.pushes {
			if p.event == event {
				s.mu.Unlock()
				return p
			}
		}
		s.mu.Unlock()
		select {
		case <-s.wake:
		case <-deadline:
			t.Fatalf("no %q push arrived", event)
		}
	}
}

type sessionFixture struct {
	session  *Session
	feed     *fakeFeed
	history  *fakeHistory
	sender   *fakeSender
	presence *fakePresence
	reader   *fakeReader
	sink     *recordingSink
	identity user.Identity
}

func newFixture(pageSize int) *sessionFixture {
	f := &sessionFixture{
		feed:     newFakeFeed(),
		history:  &fakeHistory{pages: make(map[uuid.UUID][]Entry)},
		sender:   newFakeSender(),
		presence: newFakePresence(),
		reader:   &fakeReader{},
		sink:     newRecordingSink(),
		identity: user.Identity{ID: uuid.New(), Name: "me", Role: user.RoleAgency},
	}
	f.session = NewSession(f.identity, pageSize, 8, Deps{
		Feed:     f.feed,
		History:  f.history,
		Sender:   f.sender,
		Authors:  fakeAuthors{},
		Presence: f.presence,
		Read:     f.reader,
		Sink:     f.sink,
	})
	return f
}

// seedHistory fills a room with count messages one second apart and
// returns them newest first, the way the history source serves them.
func seedHistory(f *sessionFixture, roomID uuid.UUID, count int) []Entry {
	base := time.Now().Add(-time.Duration(count) * time.Minute)
	entries := make([]Entry, 0, count)
	for i := count - 1; i >= 0; i-- {
		entries = append(entries, Entry{
			Message: message.Message{
				ID:        uuid.New(),
				RoomID:    roomID,
				UserID:    uuid.New(),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			},
		})
	}
	f.history.pages[roomID] = entries
	return entries
}

func insertEnvelope(t *testing.T, roomID uuid.UUID, m message.Message) []byte {
	t.Helper()
	content := ""
	if m.Content.Valid {
		content = m.Content.String
	}
	env, err := events.NewEnvelope(events.EventMessageInserted, roomID.String(), events.MessageEvent{
		ID:          m.ID.String(),
		RoomID:      roomID.String(),
		UserID:      m.UserID.String(),
		Content:     content,
		MessageType: message.TypeText,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestOpenRoomLoadsNewestPageAscending(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	newest := seedHistory(f, roomID, 12)

	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}

	entries := f.session.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected one page of 5, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Message.CreatedAt.Before(entries[i-1].Message.CreatedAt) {
			t.Fatal("entries not ascending")
		}
	}
	if entries[len(entries)-1].Message.ID != newest[0].Message.ID {
		t.Fatal("newest message should be at the tail")
	}
	if !f.session.HasMore() {
		t.Fatal("a full page means more history remains")
	}
	if len(f.reader.marks) != 1 || f.reader.marks[0] != roomID {
		t.Fatal("opening a room should mark it read")
	}
	f.sink.waitFor(t, PushRoomOpened)
}

func TestOpenRoomSwitchTearsDownPreviousRoom(t *testing.T) {
	f := newFixture(5)
	first := uuid.New()
	second := uuid.New()
	seedHistory(f, first, 2)
	seedHistory(f, second, 2)

	if err := f.session.OpenRoom(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	firstEntries := f.session.Entries()
	if err := f.session.OpenRoom(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	if f.feed.active[first] {
		t.Fatal("previous room subscription should be torn down")
	}
	if f.presence.tracked[first.String()] {
		t.Fatal("previous room presence should be untracked")
	}

	// A late event for the old room must not land in the new store.
	stale := message.Message{ID: uuid.New(), RoomID: first, UserID: uuid.New(), CreatedAt: time.Now()}
	f.session.Deliver(events.RoomChannel(first.String()), insertEnvelope(t, first, stale))

	for _, e := range f.session.Entries() {
		if e.Message.ID == stale.ID {
			t.Fatal("stale event leaked into the new room")
		}
		for _, old := range firstEntries {
			if e.Message.ID == old.Message.ID {
				t.Fatal("old room entries survived the switch")
			}
		}
	}
}

func TestSendOptimisticAndEchoSuppression(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}

	entry, err := f.session.Send(context.Background(), SendInput{Content: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Message.ID == uuid.Nil {
		t.Fatal("send must generate the message id")
	}
	if len(f.session.Entries()) != 1 {
		t.Fatal("optimistic entry should render immediately")
	}

	<-f.sender.done
	if len(f.sender.sent) != 1 || f.sender.sent[0].ID != entry.Message.ID {
		t.Fatal("persisted row should carry the pre-generated id")
	}

	// The feed echoes our own insert; it must not appear twice.
	f.session.Deliver(events.RoomChannel(roomID.String()), insertEnvelope(t, roomID, entry.Message))
	if n := len(f.session.Entries()); n != 1 {
		t.Fatalf("echo created a duplicate, store has %d entries", n)
	}
}

func TestSendRejectsEmptyInput(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.session.Send(context.Background(), SendInput{Content: "   "}); err == nil {
		t.Fatal("whitespace-only content should be rejected")
	}
}

func TestSendPersistFailureKeepsEntry(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}
	f.sender.err = errors.New("db down")

	entry, err := f.session.Send(context.Background(), SendInput{Content: "hello"})
	if err != nil {
		t.Fatal(err)
	}

	<-f.sender.done
	failed := f.sink.waitFor(t, PushSendFailed)
	payload, ok := failed.payload.(map[string]any)
	if !ok || payload["message_id"] != entry.Message.ID.String() {
		t.Fatal("failure report should name the message")
	}
	if len(f.session.Entries()) != 1 {
		t.Fatal("the optimistic entry stays visible after a failed persist")
	}
}

func TestDeliverInsertFromOther(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}

	incoming := message.Message{ID: uuid.New(), RoomID: roomID, UserID: uuid.New(), CreatedAt: time.Now()}
	f.session.Deliver(events.RoomChannel(roomID.String()), insertEnvelope(t, roomID, incoming))

	entries := f.session.Entries()
	if len(entries) != 1 || entries[0].Message.ID != incoming.ID {
		t.Fatal("incoming message should be appended")
	}
	if entries[0].Author.Name != "resolved" {
		t.Fatal("author should be resolved for display")
	}
	f.sink.waitFor(t, PushMessageAppended)
	if f.session.Badge() != 0 {
		t.Fatal("pinned viewer should not accumulate a badge")
	}
}

func TestDeliverInsertUnpinnedAccumulatesBadge(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}
	f.session.SetPinned(false)

	for i := 0; i < 3; i++ {
		incoming := message.Message{ID: uuid.New(), RoomID: roomID, UserID: uuid.New(), CreatedAt: time.Now()}
		f.session.Deliver(events.RoomChannel(roomID.String()), insertEnvelope(t, roomID, incoming))
	}

	if got := f.session.Badge(); got != 3 {
		t.Fatalf("expected badge 3, got %d", got)
	}
	// Messages still land in the store so the jump renders instantly.
	if len(f.session.Entries()) != 3 {
		t.Fatal("store should hold the buffered messages")
	}

	f.session.JumpToBottom()
	if f.session.Badge() != 0 {
		t.Fatal("jump to bottom should clear the badge")
	}
}

func TestDeliverUpdateAndDelete(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}

	original := message.Message{ID: uuid.New(), RoomID: roomID, UserID: uuid.New(), CreatedAt: time.Now()}
	f.session.Deliver(events.RoomChannel(roomID.String()), insertEnvelope(t, roomID, original))

	env, _ := events.NewEnvelope(events.EventMessageUpdated, roomID.String(), events.MessageEvent{
		ID:        original.ID.String(),
		RoomID:    roomID.String(),
		UserID:    original.UserID.String(),
		Content:   "edited",
		IsEdited:  true,
		CreatedAt: original.CreatedAt,
	})
	data, _ := json.Marshal(env)
	f.session.Deliver(events.RoomChannel(roomID.String()), data)

	entries := f.session.Entries()
	if len(entries) != 1 || !entries[0].Message.IsEdited || entries[0].Message.Content.String != "edited" {
		t.Fatal("update not applied in place")
	}

	env, _ = events.NewEnvelope(events.EventMessageDeleted, roomID.String(), events.MessageEvent{
		ID:        original.ID.String(),
		RoomID:    roomID.String(),
		IsDeleted: true,
	})
	data, _ = json.Marshal(env)
	f.session.Deliver(events.RoomChannel(roomID.String()), data)

	if len(f.session.Entries()) != 0 {
		t.Fatal("deleted message should leave the view")
	}
	f.sink.waitFor(t, PushMessageRemoved)
}

func TestLoadOlderPaginates(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	seedHistory(f, roomID, 12)
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}

	if err := f.session.LoadOlder(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.session.Entries()) != 10 {
		t.Fatalf("expected 10 entries after one older page, got %d", len(f.session.Entries()))
	}
	if !f.session.HasMore() {
		t.Fatal("two more messages remain")
	}

	if err := f.session.LoadOlder(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.session.Entries()) != 12 {
		t.Fatalf("expected full history, got %d", len(f.session.Entries()))
	}
	if f.session.HasMore() {
		t.Fatal("a short page should clear hasMore")
	}

	// Exhausted history makes further loads a no-op.
	if err := f.session.LoadOlder(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.session.Entries()) != 12 {
		t.Fatal("exhausted pagination must not change the store")
	}

	entries := f.session.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i].Message.CreatedAt.Before(entries[i-1].Message.CreatedAt) {
			t.Fatal("pagination broke ascending order")
		}
	}
}

func TestCloseLeavesRoom(t *testing.T) {
	f := newFixture(5)
	roomID := uuid.New()
	if err := f.session.OpenRoom(context.Background(), roomID); err != nil {
		t.Fatal(err)
	}

	f.session.Close(context.Background())

	if f.feed.active[roomID] {
		t.Fatal("close should unsubscribe the active room")
	}
	if f.presence.tracked[roomID.String()] {
		t.Fatal("close should untrack presence")
	}
	if f.session.CurrentRoom() != uuid.Nil {
		t.Fatal("no room should remain active")
	}
}

package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/room"
	"agency-portal/internal/domain/user"

	"github.com/google/uuid"
)

func seedRoomWithMessages(t *testing.T, roomRepo *memRoomRepo, msgRepo *memMessageRepo, userID uuid.UUID, count int) uuid.UUID {
	t.Helper()
	roomID := uuid.New()
	roomRepo.Create(context.Background(), &room.Room{ID: roomID, Name: roomID.String(), Type: room.TypeGeneral, IsActive: true})
	roomRepo.AddParticipant(context.Background(), &room.Participant{
		ID: uuid.New(), RoomID: roomID, UserID: userID,
		Permission: room.PermissionWrite, IsActive: true,
	})
	base := time.Now().Add(-time.Hour)
	for i := 0; i < count; i++ {
		msgRepo.Create(context.Background(), &message.Message{
			ID:          uuid.New(),
			RoomID:      roomID,
			UserID:      uuid.New(),
			Content:     sql.NullString{String: "hi", Valid: true},
			MessageType: message.TypeText,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	return roomID
}

func TestUnreadCountsEverythingWhenNeverRead(t *testing.T) {
	roomRepo := newMemRoomRepo()
	msgRepo := newMemMessageRepo()
	svc := NewReadService(roomRepo, msgRepo)
	userID := uuid.New()
	roomID := seedRoomWithMessages(t, roomRepo, msgRepo, userID, 4)

	got, err := svc.GetUnreadCount(context.Background(), userID, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if got != 4 {
		t.Fatalf("never-read room should count everything, got %d", got)
	}
}

func TestMarkReadZeroesUnread(t *testing.T) {
	roomRepo := newMemRoomRepo()
	msgRepo := newMemMessageRepo()
	svc := NewReadService(roomRepo, msgRepo)
	userID := uuid.New()
	roomID := seedRoomWithMessages(t, roomRepo, msgRepo, userID, 4)

	if err := svc.MarkRead(context.Background(), userID, roomID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetUnreadCount(context.Background(), userID, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("expected 0 unread after mark read, got %d", got)
	}

	// New arrivals count again.
	msgRepo.Create(context.Background(), &message.Message{
		ID:          uuid.New(),
		RoomID:      roomID,
		UserID:      uuid.New(),
		Content:     sql.NullString{String: "new", Valid: true},
		MessageType: message.TypeText,
		CreatedAt:   time.Now().Add(time.Minute),
	})
	got, err = svc.GetUnreadCount(context.Background(), userID, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("expected 1 unread, got %d", got)
	}
}

func TestUnreadExcludesSoftDeletedMessages(t *testing.T) {
	roomRepo := newMemRoomRepo()
	msgRepo := newMemMessageRepo()
	svc := NewReadService(roomRepo, msgRepo)
	msgSvc := NewMessageService(msgRepo, roomRepo, &capturingPublisher{}, testLogger())

	reader := uuid.New()
	author := user.Identity{ID: uuid.New(), Name: "author", Role: user.RoleAgency}
	roomID := seedRoomWithMessages(t, roomRepo, msgRepo, reader, 0)
	roomRepo.AddParticipant(context.Background(), &room.Participant{
		ID: uuid.New(), RoomID: roomID, UserID: author.ID,
		Permission: room.PermissionWrite, IsActive: true,
	})

	if err := svc.MarkRead(context.Background(), reader, roomID); err != nil {
		t.Fatal(err)
	}

	var doomed uuid.UUID
	for i := 0; i < 3; i++ {
		m := message.Message{
			ID:          uuid.New(),
			RoomID:      roomID,
			UserID:      author.ID,
			Content:     sql.NullString{String: "later", Valid: true},
			MessageType: message.TypeText,
			CreatedAt:   time.Now().Add(time.Duration(i+1) * time.Minute),
		}
		if err := msgRepo.Create(context.Background(), &m); err != nil {
			t.Fatal(err)
		}
		doomed = m.ID
	}

	got, err := svc.GetUnreadCount(context.Background(), reader, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Fatalf("expected 3 unread before delete, got %d", got)
	}

	if err := msgSvc.Delete(context.Background(), author, doomed); err != nil {
		t.Fatal(err)
	}

	got, err = svc.GetUnreadCount(context.Background(), reader, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("soft-deleted message still counted, got %d unread", got)
	}
}

func TestDashboardOrdersByUnreadThenRecency(t *testing.T) {
	svc := NewReadService(newMemRoomRepo(), newMemMessageRepo())

	older := sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}
	newer := sql.NullTime{Time: time.Now(), Valid: true}
	summaries := []RoomSummary{
		{Room: room.Room{ID: uuid.New(), Name: "quiet-old", LastMessageAt: older}, UnreadCount: 0},
		{Room: room.Room{ID: uuid.New(), Name: "busy", LastMessageAt: older}, UnreadCount: 5},
		{Room: room.Room{ID: uuid.New(), Name: "quiet-new", LastMessageAt: newer}, UnreadCount: 0},
		{Room: room.Room{ID: uuid.New(), Name: "busier", LastMessageAt: newer}, UnreadCount: 5},
	}

	dash := svc.GetDashboard(summaries)
	if dash.TotalUnread != 10 {
		t.Fatalf("expected total 10, got %d", dash.TotalUnread)
	}

	got := make([]string, len(dash.Rooms))
	for i, r := range dash.Rooms {
		got[i] = r.Room.Name
	}
	want := []string{"busier", "busy", "quiet-new", "quiet-old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

package services

import (
	"context"
	"sort"
	"time"

	"agency-portal/internal/repository"

	"github.com/google/uuid"
)

// ReadService owns read positions and unread counting.
type ReadService struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
}

func NewReadService(rooms repository.RoomRepository, messages repository.MessageRepository) *ReadService {
	return &ReadService{rooms: rooms, messages: messages}
}

// GetUnreadCount counts messages created strictly after the participant's
// last_read_at, excluding soft-deleted ones. A never-read room counts
// everything.
func (s *ReadService) GetUnreadCount(ctx context.Context, userID, roomID uuid.UUID) (int64, error) {
	p, err := s.rooms.GetParticipant(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	var since time.Time
	if p.LastReadAt.Valid {
		since = p.LastReadAt.Time
	}
	return s.messages.CountUnread(ctx, roomID, since)
}

// MarkRead advances the participant's read position to now.
func (s *ReadService) MarkRead(ctx context.Context, userID, roomID uuid.UUID) error {
	return s.rooms.MarkRead(ctx, roomID, userID, time.Now())
}

// Dashboard aggregates unread state across every room of a user.
type Dashboard struct {
	TotalUnread int64
	Rooms       []RoomSummary
}

// GetDashboard returns the user's rooms ordered by unread count, falling
// back to most recent activity when nothing is unread.
func (s *ReadService) GetDashboard(summaries []RoomSummary) Dashboard {
	var total int64
	for _, sum := range summaries {
		total += sum.UnreadCount
	}

	sorted := make([]RoomSummary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UnreadCount != sorted[j].UnreadCount {
			return sorted[i].UnreadCount > sorted[j].UnreadCount
		}
		ti, tj := time.Time{}, time.Time{}
		if sorted[i].Room.LastMessageAt.Valid {
			ti = sorted[i].Room.LastMessageAt.Time
		}
		if sorted[j].Room.LastMessageAt.Valid {
			tj = sorted[j].Room.LastMessageAt.Time
		}
		return ti.After(tj)
	})

	return Dashboard{TotalUnread: total, Rooms: sorted}
}

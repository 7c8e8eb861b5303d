package services

import (
	"context"
	"time"

	"agency-portal/internal/chat"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/repository"

	"github.com/google/uuid"
)

// AuthorLookup resolves cached identities from the identity boundary.
type AuthorLookup interface {
	Lookup(ctx context.Context, id string) (user.Identity, error)
}

// ChatHistory serves the session's history pages with authors resolved.
type ChatHistory struct {
	messages repository.MessageRepository
	authors  AuthorLookup
}

func NewChatHistory(messages repository.MessageRepository, authors AuthorLookup) *ChatHistory {
	return &ChatHistory{messages: messages, authors: authors}
}

func (h *ChatHistory) RecentMessages(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]chat.Entry, error) {
	rows, err := h.messages.GetRoomMessages(ctx, roomID, before, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]chat.Entry, 0, len(rows))
	for _, m := range rows {
		entries = append(entries, chat.Entry{
			Message: m,
			Author:  h.resolve(ctx, m.UserID),
		})
	}
	return entries, nil
}

// ChatAuthors adapts AuthorLookup to the session's resolver contract.
type ChatAuthors struct {
	authors AuthorLookup
}

func NewChatAuthors(authors AuthorLookup) *ChatAuthors {
	return &ChatAuthors{authors: authors}
}

func (a *ChatAuthors) ResolveAuthor(ctx context.Context, id uuid.UUID) (user.Identity, error) {
	return a.authors.Lookup(ctx, id.String())
}

func (h *ChatHistory) resolve(ctx context.Context, id uuid.UUID) user.Identity {
	identity, err := h.authors.Lookup(ctx, id.String())
	if err != nil {
		// Display identity not cached; the id still renders.
		return user.Identity{ID: id}
	}
	return identity
}

package chat

import (
	"sort"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/user"

	"github.com/google/uuid"
)

// Entry is a display-ready message: the persisted row plus the resolved
// author identity.
type Entry struct {
	Message message.Message `json:"message"`
	Author  user.Identity   `json:"author"`
}

// Store is the ordered, deduplicated message cache for the single active
// room. It holds ascending created_at order at all times and is scoped to
// one room; switching rooms goes through Clear.
//
// Store is not safe for concurrent use; the owning session serializes
// access.
type Store struct {
	entries []Entry
	ids     map[uuid.UUID]struct{}
}

func NewStore() *Store {
	return &Store{ids: make(map[uuid.UUID]struct{})}
}

// Append adds a message at its ordered position (normally the tail).
// Appending an id already present is a no-op, which is what makes the
// optimistic insert and its feed echo converge on one entry.
func (s *Store) Append(e Entry) bool {
	if _, ok := s.ids[e.Message.ID]; ok {
		return false
	}
	s.ids[e.Message.ID] = struct{}{}

	// Fast path: newest message lands at the tail.
	n := len(s.entries)
	if n == 0 || !e.Message.CreatedAt.Before(s.entries[n-1].Message.CreatedAt) {
		s.entries = append(s.entries, e)
		return true
	}

	// Out-of-order arrival: insert at the sorted position.
	i := sort.Search(n, func(i int) bool {
		return s.entries[i].Message.CreatedAt.After(e.Message.CreatedAt)
	})
	s.entries = append(s.entries, Entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	return true
}

// Prepend inserts an older page (ascending order) at the head. Entries
// whose id is already present are skipped. Returns how many were added.
func (s *Store) Prepend(older []Entry) int {
	fresh := make([]Entry, 0, len(older))
	for _, e := range older {
		if _, ok := s.ids[e.Message.ID]; ok {
			continue
		}
		s.ids[e.Message.ID] = struct{}{}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return 0
	}
	s.entries = append(fresh, s.entries...)
	return len(fresh)
}

// UpdateInPlace replaces the entry with a matching id, keeping its position.
func (s *Store) UpdateInPlace(e Entry) bool {
	if _, ok := s.ids[e.Message.ID]; !ok {
		return false
	}
	for i := range s.entries {
		if s.entries[i].Message.ID == e.Message.ID {
			// Position is keyed by created_at; an edit never moves it.
			e.Message.CreatedAt = s.entries[i].Message.CreatedAt
			if e.Author.ID == uuid.Nil {
				e.Author = s.entries[i].Author
			}
			s.entries[i] = e
			return true
		}
	}
	return false
}

// RemoveByID drops the entry with the given id from the active view. The
// persisted row keeps existing with is_deleted=true.
func (s *Store) RemoveByID(id uuid.UUID) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	for i := range s.entries {
		if s.entries[i].Message.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the store. Called on every room switch; the store is never
// a multi-room cache.
func (s *Store) Clear() {
	s.entries = nil
	s.ids = make(map[uuid.UUID]struct{})
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) Contains(id uuid.UUID) bool {
	_, ok := s.ids[id]
	return ok
}

// Entries returns a copy of the ordered sequence.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// OldestCreatedAt returns the created_at cursor for backward pagination.
func (s *Store) Oldest() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[0], true
}

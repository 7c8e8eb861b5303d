package chat

import (
	"container/list"

	"github.com/google/uuid"
)

// Registry is a bounded LRU set of locally-originated message ids. The
// session registers every id it renders optimistically; the change-feed
// echo for a registered id is suppressed instead of appended twice.
//
// Bounding the registry keeps a long-lived session from growing without
// limit; once an echo has arrived the id no longer needs to be remembered,
// so evicting the oldest entries is safe.
type Registry struct {
	capacity int
	order    *list.List // front = most recently touched
	items    map[uuid.UUID]*list.Element
}

const defaultRegistryCapacity = 512

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = defaultRegistryCapacity
	}
	return &Registry{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[uuid.UUID]*list.Element),
	}
}

// Add registers an id, evicting the least recently touched entry when full.
func (r *Registry) Add(id uuid.UUID) {
	if el, ok := r.items[id]; ok {
		r.order.MoveToFront(el)
		return
	}
	if r.order.Len() >= r.capacity {
		oldest := r.order.Back()
		if oldest != nil {
			r.order.Remove(oldest)
			delete(r.items, oldest.Value.(uuid.UUID))
		}
	}
	r.items[id] = r.order.PushFront(id)
}

// Seen reports whether the id originated locally, refreshing its recency.
func (r *Registry) Seen(id uuid.UUID) bool {
	el, ok := r.items[id]
	if !ok {
		return false
	}
	r.order.MoveToFront(el)
	return true
}

func (r *Registry) Len() int {
	return r.order.Len()
}

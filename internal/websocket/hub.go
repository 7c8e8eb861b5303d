package websocket

import (
	"sync"

	"agency-portal/internal/chat"
	"agency-portal/internal/events"

	"github.com/google/uuid"
)

// Hub fans change-feed payloads out to the session receivers subscribed to
// each channel, and tracks live client connections for cleanup.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	receivers map[string]map[chat.Receiver]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		receivers: make(map[string]map[chat.Receiver]struct{}),
	}
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// Unregister removes a client and detaches its session from every channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	for channel, set := range h.receivers {
		delete(set, c.session)
		if len(set) == 0 {
			delete(h.receivers, channel)
		}
	}
	h.mu.Unlock()
}

// Attach subscribes a receiver to one channel.
func (h *Hub) Attach(channel string, r chat.Receiver) {
	h.mu.Lock()
	set, ok := h.receivers[channel]
	if !ok {
		set = make(map[chat.Receiver]struct{})
		h.receivers[channel] = set
	}
	set[r] = struct{}{}
	h.mu.Unlock()
}

// Detach unsubscribes a receiver from one channel.
func (h *Hub) Detach(channel string, r chat.Receiver) {
	h.mu.Lock()
	if set, ok := h.receivers[channel]; ok {
		delete(set, r)
		if len(set) == 0 {
			delete(h.receivers, channel)
		}
	}
	h.mu.Unlock()
}

// Broadcast delivers a payload to every receiver subscribed to the channel.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.mu.RLock()
	set := h.receivers[channel]
	targets := make([]chat.Receiver, 0, len(set))
	for r := range set {
		targets = append(targets, r)
	}
	h.mu.RUnlock()

	for _, r := range targets {
		r.Deliver(channel, payload)
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomFeed adapts the hub to the session's Feed contract: subscribing to a
// room attaches both its change-feed and presence channels.
type RoomFeed struct {
	hub *Hub
}

func NewRoomFeed(hub *Hub) *RoomFeed {
	return &RoomFeed{hub: hub}
}

func (f *RoomFeed) Subscribe(roomID uuid.UUID, r chat.Receiver) {
	f.hub.Attach(events.RoomChannel(roomID.String()), r)
	f.hub.Attach(events.PresenceChannel(roomID.String()), r)
}

func (f *RoomFeed) Unsubscribe(roomID uuid.UUID, r chat.Receiver) {
	f.hub.Detach(events.RoomChannel(roomID.String()), r)
	f.hub.Detach(events.PresenceChannel(roomID.String()), r)
}

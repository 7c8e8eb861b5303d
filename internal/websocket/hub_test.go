package websocket

import (
	"testing"

	"agency-portal/internal/events"

	"github.com/google/uuid"
)

type recordingReceiver struct {
	channels []string
	payloads [][]byte
}

func (r *recordingReceiver) Deliver(channel string, payload []byte) {
	r.channels = append(r.channels, channel)
	r.payloads = append(r.payloads, payload)
}

func TestHubBroadcastReachesOnlySubscribedChannel(t *testing.T) {
	hub := NewHub()
	a := &recordingReceiver{}
	b := &recordingReceiver{}

	hub.Attach("channel:room:1", a)
	hub.Attach("channel:room:2", b)

	hub.Broadcast("channel:room:1", []byte("x"))

	if len(a.payloads) != 1 {
		t.Fatalf("subscribed receiver got %d payloads", len(a.payloads))
	}
	if len(b.payloads) != 0 {
		t.Fatal("receiver on another channel must not be reached")
	}
}

func TestHubDetachStopsDelivery(t *testing.T) {
	hub := NewHub()
	r := &recordingReceiver{}

	hub.Attach("channel:room:1", r)
	hub.Detach("channel:room:1", r)
	hub.Broadcast("channel:room:1", []byte("x"))

	if len(r.payloads) != 0 {
		t.Fatal("detached receiver still received a payload")
	}
}

func TestRoomFeedSubscribesBothChannels(t *testing.T) {
	hub := NewHub()
	feed := NewRoomFeed(hub)
	r := &recordingReceiver{}
	roomID := uuid.New()

	feed.Subscribe(roomID, r)
	hub.Broadcast(events.RoomChannel(roomID.String()), []byte("m"))
	hub.Broadcast(events.PresenceChannel(roomID.String()), []byte("p"))

	if len(r.payloads) != 2 {
		t.Fatalf("expected change-feed and presence delivery, got %d", len(r.payloads))
	}

	feed.Unsubscribe(roomID, r)
	hub.Broadcast(events.RoomChannel(roomID.String()), []byte("m2"))
	if len(r.payloads) != 2 {
		t.Fatal("unsubscribed receiver still received a payload")
	}
}

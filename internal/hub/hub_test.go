package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/joblink/chat-service/internal/config"
	"github.com/joblink/chat-service/internal/domain"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 65536,
	}
}

// newTestClient builds a client with no underlying connection; tests read
// delivered payloads straight from the send queue.
func newTestClient(h *Hub, connID, identityID string) *Client {
	return NewClient(connID, domain.Identity{ID: identityID, DisplayName: identityID}, h, nil, testWSConfig())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func receivePayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no payload delivered")
	}
	return nil
}

func expectNoPayload(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected payload: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegisterTracksIdentityConnections(t *testing.T) {
	h := New()
	go h.Run()

	c1 := newTestClient(h, "conn-1", "alice")
	c2 := newTestClient(h, "conn-2", "alice") // second tab
	h.Register(c1)
	h.Register(c2)

	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 2 })

	if conns := h.ConnectionsFor("bob"); len(conns) != 0 {
		t.Errorf("bob has %d connections, want 0", len(conns))
	}
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	h := New()
	go h.Run()

	member := newTestClient(h, "conn-1", "alice")
	outsider := newTestClient(h, "conn-2", "bob")
	h.Register(member)
	h.Register(outsider)
	waitFor(t, func() bool {
		return len(h.ConnectionsFor("alice")) == 1 && len(h.ConnectionsFor("bob")) == 1
	})

	h.JoinRoom(member, "conv-1")

	if err := h.Broadcast("conv-1", domain.NewJoinedChatEvent("conv-1"), ""); err != nil {
		t.Fatal(err)
	}

	var evt domain.JoinedChatEvent
	if err := json.Unmarshal(receivePayload(t, member), &evt); err != nil {
		t.Fatal(err)
	}
	if evt.ConversationID != "conv-1" {
		t.Errorf("conversation id = %q", evt.ConversationID)
	}

	expectNoPayload(t, outsider)
}

func TestBroadcastExcludesOrigin(t *testing.T) {
	h := New()
	go h.Run()

	origin := newTestClient(h, "conn-1", "alice")
	peer := newTestClient(h, "conn-2", "bob")
	h.Register(origin)
	h.Register(peer)
	waitFor(t, func() bool {
		return len(h.ConnectionsFor("alice")) == 1 && len(h.ConnectionsFor("bob")) == 1
	})
	h.JoinRoom(origin, "conv-1")
	h.JoinRoom(peer, "conv-1")

	if err := h.Broadcast("conv-1", domain.NewUserTypingEvent(origin.Identity()), origin.ID); err != nil {
		t.Fatal(err)
	}

	receivePayload(t, peer)
	expectNoPayload(t, origin)
}

func TestBroadcastsOnSameRoomKeepOrder(t *testing.T) {
	h := New()
	go h.Run()

	member := newTestClient(h, "conn-1", "alice")
	h.Register(member)
	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 1 })
	h.JoinRoom(member, "conv-1")

	for i := 0; i < 20; i++ {
		if err := h.Broadcast("conv-1", domain.NewJoinedChatEvent(string(rune('a'+i))), ""); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 20; i++ {
		var evt domain.JoinedChatEvent
		if err := json.Unmarshal(receivePayload(t, member), &evt); err != nil {
			t.Fatal(err)
		}
		if want := string(rune('a' + i)); evt.ConversationID != want {
			t.Fatalf("delivery %d = %q, want %q", i, evt.ConversationID, want)
		}
	}
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	h := New()
	go h.Run()

	c := newTestClient(h, "conn-1", "alice")
	h.Register(c)
	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 1 })
	h.JoinRoom(c, "conv-1")
	h.JoinRoom(c, "conv-2")

	h.Unregister(c)
	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 0 })

	if h.RoomSize("conv-1") != 0 || h.RoomSize("conv-2") != 0 {
		t.Error("unregistered connection still subscribed to rooms")
	}
	if h.IdentityInRoom("conv-1", "alice") {
		t.Error("identity still reported in room after unregister")
	}

	// The send queue is closed; later broadcasts must not panic or deliver.
	if err := h.Broadcast("conv-1", domain.NewJoinedChatEvent("conv-1"), ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	})
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := New()
	go h.Run()

	c := newTestClient(h, "conn-1", "alice")
	h.Register(c)
	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 1 })
	h.JoinRoom(c, "conv-1")
	if !c.Session.InRoom("conv-1") {
		t.Fatal("session does not record joined room")
	}

	h.LeaveRoom(c, "conv-1")
	if c.Session.InRoom("conv-1") {
		t.Error("session still records left room")
	}

	if err := h.Broadcast("conv-1", domain.NewJoinedChatEvent("conv-1"), ""); err != nil {
		t.Fatal(err)
	}
	expectNoPayload(t, c)
}

func TestIdentityInRoomAcrossConnections(t *testing.T) {
	h := New()
	go h.Run()

	tab1 := newTestClient(h, "conn-1", "alice")
	tab2 := newTestClient(h, "conn-2", "alice")
	h.Register(tab1)
	h.Register(tab2)
	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 2 })

	h.JoinRoom(tab2, "conv-1")

	if !h.IdentityInRoom("conv-1", "alice") {
		t.Error("identity with one joined tab not reported in room")
	}

	// Unregistering the non-joined tab must not affect room membership.
	h.Unregister(tab1)
	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 1 })
	if !h.IdentityInRoom("conv-1", "alice") {
		t.Error("room membership lost after unrelated tab closed")
	}
}

func TestDeliverToIdentityHitsEveryConnection(t *testing.T) {
	h := New()
	go h.Run()

	tab1 := newTestClient(h, "conn-1", "alice")
	tab2 := newTestClient(h, "conn-2", "alice")
	h.Register(tab1)
	h.Register(tab2)
	waitFor(t, func() bool { return len(h.ConnectionsFor("alice")) == 2 })

	h.DeliverToIdentity("alice", []byte(`{"type":"new_message_notification"}`))

	receivePayload(t, tab1)
	receivePayload(t, tab2)
}

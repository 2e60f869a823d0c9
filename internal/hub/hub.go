package hub

import (
	"encoding/json"
	"sync"

	"github.com/joblink/chat-service/pkg/log"
)

// Hub tracks live connections and per-conversation subscriber sets, and fans
// events out to them. It holds no durable state; a restart starts empty and
// clients reconnect.
//
// All broadcasts for a room pass through a single run-loop goroutine, so
// deliveries on the same room are never reordered relative to each other.
type Hub struct {
	clients    map[string]*Client            // connection id -> client
	identities map[string]map[string]*Client // identity id -> connection id -> client
	rooms      map[string]map[string]*Client // conversation id -> connection id -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent
	mu         sync.RWMutex
}

type roomEvent struct {
	ConversationID string
	Payload        []byte
	Exclude        string // connection id to skip
}

// New creates an empty hub. Call Run in its own goroutine before use.
func New() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		identities: make(map[string]map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
	}
}

// Run processes registration, unregistration and room fan-out. Registration
// and teardown are serialized against fan-out, so a broadcast either fully
// reaches a connection before it is removed or not at all.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; !ok {
				h.clients[client.ID] = client
				identityID := client.Identity().ID
				if _, ok := h.identities[identityID]; !ok {
					h.identities[identityID] = make(map[string]*Client)
				}
				h.identities[identityID][client.ID] = client
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().
				Str(log.FieldConnectionID, client.ID).
				Str(log.FieldUserID, client.Identity().ID).
				Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for convID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, convID)
					}
				}
				identityID := client.Identity().ID
				if conns, ok := h.identities[identityID]; ok {
					delete(conns, client.ID)
					if len(conns) == 0 {
						delete(h.identities, identityID)
					}
				}
				delete(h.clients, client.ID)
				client.closeSend()
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnectionID, client.ID).Msg("client unregistered")

		case evt := <-h.broadcast:
			h.mu.RLock()
			if members, ok := h.rooms[evt.ConversationID]; ok {
				for connID, client := range members {
					if connID == evt.Exclude {
						continue
					}
					if !client.enqueue(evt.Payload) {
						// Slow or dying consumer; drop it from the hub.
						go h.Unregister(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection to the registry. Idempotent per connection id.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes the connection from the registry and from every room it
// joined, and closes its outbound queue.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom subscribes the connection to a conversation room. Membership
// validation happens in the service layer before this is called.
func (h *Hub) JoinRoom(client *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[string]*Client)
	}
	h.rooms[conversationID][client.ID] = client
	client.Session.JoinRoom(conversationID)

	l := log.L()
	l.Info().
		Str(log.FieldConnectionID, client.ID).
		Str(log.FieldConversationID, conversationID).
		Msg("client joined room")
}

// LeaveRoom drops the connection's subscription.
func (h *Hub) LeaveRoom(client *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[conversationID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	client.Session.LeaveRoom(conversationID)

	l := log.L()
	l.Info().
		Str(log.FieldConnectionID, client.ID).
		Str(log.FieldConversationID, conversationID).
		Msg("client left room")
}

// Broadcast fans the event out to every connection subscribed to the room,
// skipping excludeConnID if non-empty. Delivery is best-effort at-most-once
// per connection.
func (h *Hub) Broadcast(conversationID string, event interface{}, excludeConnID string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.broadcast <- &roomEvent{
		ConversationID: conversationID,
		Payload:        data,
		Exclude:        excludeConnID,
	}
	return nil
}

// ConnectionsFor returns a snapshot of the identity's live connections.
func (h *Hub) ConnectionsFor(identityID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.identities[identityID]
	if !ok {
		return nil
	}
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// IdentityInRoom reports whether any of the identity's connections is
// subscribed to the conversation room.
func (h *Hub) IdentityInRoom(conversationID, identityID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[conversationID]
	if !ok {
		return false
	}
	for _, client := range members {
		if client.Identity().ID == identityID {
			return true
		}
	}
	return false
}

// RoomSize returns the number of connections subscribed to the room.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// DeliverToIdentity sends the payload to every live connection of the
// identity, independent of any room. This is the in-process leg of the
// personal channel.
func (h *Hub) DeliverToIdentity(identityID string, payload []byte) {
	for _, client := range h.ConnectionsFor(identityID) {
		client.enqueue(payload)
	}
}

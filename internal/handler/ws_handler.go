package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/joblink/chat-service/internal/audit"
	"github.com/joblink/chat-service/internal/auth"
	"github.com/joblink/chat-service/internal/config"
	"github.com/joblink/chat-service/internal/domain"
	"github.com/joblink/chat-service/internal/hub"
	"github.com/joblink/chat-service/internal/service"
	"github.com/joblink/chat-service/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler authenticates incoming WebSocket connections and dispatches
// their events.
type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	verifier auth.Verifier
	wsCfg    config.WebSocketConfig
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.ChatService, verifier auth.Verifier, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		wsCfg:    wsCfg,
	}
}

// HandleWebSocket verifies the handshake credential, upgrades the
// connection, and starts the read/write pumps. Verification happens exactly
// once, before the upgrade; a bad credential never reaches event exchange.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, err := h.verifier.Verify(ctx, credentialFrom(c))
	if err != nil {
		audit.Log(ctx, audit.ActionAuthFailed, "", "websocket authentication failed")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), *identity, h.hub, conn, h.wsCfg)
	h.hub.Register(client)
	audit.Log(ctx, audit.ActionConnect, identity.ID, "client connected")

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleEvent)
		h.service.HandleDisconnect(context.Background(), client)
	}()
}

// credentialFrom pulls the bearer credential supplied at handshake time,
// either as a token query parameter or an Authorization header.
func credentialFrom(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}

// handleEvent decodes one client frame into its tagged variant and routes it.
// Malformed payloads are rejected here, before any business logic runs, and
// never close the connection.
func (h *WSHandler) handleEvent(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendEvent(domain.NewErrorEvent("Invalid event format"))
		return
	}

	ctx := log.WithLogger(context.Background(), log.L().With().
		Str(log.FieldConnectionID, client.ID).
		Str(log.FieldUserID, client.Identity().ID).
		Logger())

	l := log.Ctx(ctx)

	switch base.Type {
	case domain.EventJoinChat:
		var evt domain.JoinChatEvent
		if !h.decode(client, message, &evt) || !h.requireConversation(client, evt.ConversationID) {
			return
		}
		if err := h.service.HandleJoinChat(ctx, client, evt.ConversationID); err != nil {
			l.Warn().Err(err).Str(log.FieldConversationID, evt.ConversationID).Msg("join_chat failed")
		}

	case domain.EventLeaveChat:
		var evt domain.LeaveChatEvent
		if !h.decode(client, message, &evt) || !h.requireConversation(client, evt.ConversationID) {
			return
		}
		if err := h.service.HandleLeaveChat(ctx, client, evt.ConversationID); err != nil {
			l.Warn().Err(err).Str(log.FieldConversationID, evt.ConversationID).Msg("leave_chat failed")
		}

	case domain.EventSendMessage:
		var evt domain.SendMessageEvent
		if !h.decode(client, message, &evt) || !h.requireConversation(client, evt.ConversationID) {
			return
		}
		if err := h.service.HandleSendMessage(ctx, client, evt.ConversationID, evt.Text); err != nil {
			l.Warn().Err(err).Str(log.FieldConversationID, evt.ConversationID).Msg("send_message failed")
		}

	case domain.EventTyping:
		var evt domain.TypingEvent
		if !h.decode(client, message, &evt) || !h.requireConversation(client, evt.ConversationID) {
			return
		}
		if err := h.service.HandleTyping(ctx, client, evt.ConversationID); err != nil {
			l.Warn().Err(err).Msg("typing relay failed")
		}

	case domain.EventStopTyping:
		var evt domain.TypingEvent
		if !h.decode(client, message, &evt) || !h.requireConversation(client, evt.ConversationID) {
			return
		}
		if err := h.service.HandleStopTyping(ctx, client, evt.ConversationID); err != nil {
			l.Warn().Err(err).Msg("stop_typing relay failed")
		}

	default:
		client.SendEvent(domain.NewErrorEvent("Unknown event type"))
	}
}

func (h *WSHandler) decode(client *hub.Client, message []byte, v interface{}) bool {
	if err := json.Unmarshal(message, v); err != nil {
		client.SendEvent(domain.NewErrorEvent("Invalid event payload"))
		return false
	}
	return true
}

func (h *WSHandler) requireConversation(client *hub.Client, conversationID string) bool {
	if conversationID == "" {
		client.SendEvent(domain.NewErrorEvent("conversationId is required"))
		return false
	}
	return true
}

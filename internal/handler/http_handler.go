package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/joblink/chat-service/internal/domain"
	"github.com/joblink/chat-service/internal/repository"
	"github.com/joblink/chat-service/internal/service"
	"github.com/joblink/chat-service/pkg/log"
	"github.com/joblink/chat-service/pkg/response"
)

// HTTPHandler serves the REST surface: conversation listing, find-or-create,
// history, and read-state.
type HTTPHandler struct {
	service        service.ChatService
	authMiddleware *AuthMiddleware
}

// NewHTTPHandler creates a new REST handler.
func NewHTTPHandler(svc service.ChatService, authMiddleware *AuthMiddleware) *HTTPHandler {
	return &HTTPHandler{
		service:        svc,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all REST routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	chats := r.Group("/api/chats")
	chats.Use(h.authMiddleware.RequireAuth())
	{
		chats.GET("", h.ListConversations)
		chats.POST("", h.FindOrCreateConversation)
		chats.GET("/:id", h.GetConversation)
		chats.PUT("/:id/read", h.MarkRead)
	}
}

// ListConversations returns the caller's conversations, most recently active
// first.
func (h *HTTPHandler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	identity, ok := identityFrom(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	convs, err := h.service.ListConversations(ctx, identity.ID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("list conversations failed")
		response.InternalError(c, "failed to list conversations")
		return
	}

	response.Success(c, convs)
}

type findOrCreateRequest struct {
	ParticipantID string  `json:"participantId" binding:"required"`
	JobID         *string `json:"jobId"`
}

// FindOrCreateConversation returns the conversation for the caller and the
// given participant, creating it on first contact.
func (h *HTTPHandler) FindOrCreateConversation(c *gin.Context) {
	ctx := c.Request.Context()
	identity, ok := identityFrom(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	var req findOrCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "participantId is required")
		return
	}

	conv, err := h.service.FindOrCreateConversation(ctx, identity.ID, req.ParticipantID, req.JobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingParticipant), errors.Is(err, service.ErrSelfConversation):
			response.BadRequest(c, err.Error())
		default:
			l := log.Ctx(ctx)
			l.Error().Err(err).Msg("find-or-create conversation failed")
			response.InternalError(c, "failed to open conversation")
		}
		return
	}

	response.Success(c, conv)
}

type conversationHistoryResponse struct {
	Conversation *domain.ConversationSummary `json:"conversation"`
	Messages     []*domain.Message           `json:"messages"`
}

// GetConversation returns one conversation with its messages in total order.
func (h *HTTPHandler) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	identity, ok := identityFrom(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	conv, msgs, err := h.service.ConversationHistory(ctx, identity.ID, c.Param("id"))
	if err != nil {
		h.writeChatError(c, err, "failed to load conversation")
		return
	}

	response.Success(c, conversationHistoryResponse{Conversation: conv, Messages: msgs})
}

type markReadResponse struct {
	Updated int64 `json:"updated"`
}

// MarkRead bulk-marks the conversation's messages from the other participant
// as read.
func (h *HTTPHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	identity, ok := identityFrom(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	n, err := h.service.MarkRead(ctx, identity.ID, c.Param("id"))
	if err != nil {
		h.writeChatError(c, err, "failed to mark messages read")
		return
	}

	response.Success(c, markReadResponse{Updated: n})
}

func (h *HTTPHandler) writeChatError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrConversationNotFound):
		response.NotFound(c, "conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		response.Forbidden(c, "not a participant of this conversation")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(fallback)
		response.InternalError(c, fallback)
	}
}

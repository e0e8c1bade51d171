package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/app"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/transport/http/response"
)

type ConversationalHandler struct {
	conversationService *app.ConversationService
}

type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=128"`
}

type SendMessageRequest struct {
	UserQuestion string `json:"userQuestion" binding:"required"`
}

func NewConversationalHandler(conversationService *app.ConversationService) *ConversationalHandler {
	return &ConversationalHandler{conversationService: conversationService}
}

func (h *ConversationalHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// title is optional and an absent body is fine
	_ = c.ShouldBindJSON(&req)
	response.Created(c, h.conversationService.CreateSession(req.Title))
}

func (h *ConversationalHandler) ListSessions(c *gin.Context) {
	response.OK(c, h.conversationService.ListSessions())
}

func (h *ConversationalHandler) GetSession(c *gin.Context) {
	sess, err := h.conversationService.GetSession(c.Param("sessionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, sess)
}

func (h *ConversationalHandler) DeleteSession(c *gin.Context) {
	if err := h.conversationService.DeleteSession(c.Param("sessionId")); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"deletedSessionId": c.Param("sessionId")})
}

func (h *ConversationalHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "userQuestion is required")
		return
	}
	result, err := h.conversationService.SendMessage(c.Request.Context(), c.Param("sessionId"), req.UserQuestion)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ConversationalHandler) GetMessages(c *gin.Context) {
	msgs, err := h.conversationService.GetMessages(c.Param("sessionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, msgs)
}

func (h *ConversationalHandler) ClearMessages(c *gin.Context) {
	if err := h.conversationService.ClearMessages(c.Param("sessionId")); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"cleared": true})
}

func (h *ConversationalHandler) Compress(c *gin.Context) {
	result, err := h.conversationService.Compress(c.Param("sessionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ConversationalHandler) Stats(c *gin.Context) {
	stats, err := h.conversationService.Stats(c.Param("sessionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, stats)
}

func (h *ConversationalHandler) Export(c *gin.Context) {
	export, err := h.conversationService.Export(c.Param("sessionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, export)
}

func (h *ConversationalHandler) Import(c *gin.Context) {
	var export app.SessionExport
	if err := c.ShouldBindJSON(&export); err != nil {
		response.Error(c, http.StatusBadRequest, "malformed import payload")
		return
	}
	sess, err := h.conversationService.Import(&export)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, sess)
}

// Transcript serves the persisted archive, which outlives the in-memory
// session.
func (h *ConversationalHandler) Transcript(c *gin.Context) {
	msgs, err := h.conversationService.Transcript(c.Param("sessionId"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "load transcript failed")
		return
	}
	response.OK(c, msgs)
}

func (h *ConversationalHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, "session not found")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrMalformedImport):
		response.Error(c, http.StatusBadRequest, "malformed import payload")
	case errors.Is(err, app.ErrNotEnoughMessages):
		response.Error(c, http.StatusBadRequest, "not enough messages to compress")
	default:
		response.Error(c, http.StatusInternalServerError, "conversation operation failed")
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/app"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/transport/http/response"
)

type AskHandler struct {
	askService *app.AskService
}

type AskRequest struct {
	UserQuestion string `json:"userQuestion"`
}

func NewAskHandler(askService *app.AskService) *AskHandler {
	return &AskHandler{askService: askService}
}

// Ask always answers 200 with the answer envelope; pipeline failures are
// reported in the body's error field, never as a transport error.
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, app.AskResponse{
			Sources: []string{},
			Error:   "userQuestion is required",
		})
		return
	}
	c.JSON(http.StatusOK, h.askService.Ask(c.Request.Context(), req.UserQuestion))
}

func (h *AskHandler) QuestionStats(c *gin.Context) {
	stats, err := h.askService.Stats(c.Request.Context(), c.Query("q"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "query parameter q is required")
			return
		}
		response.Error(c, http.StatusInternalServerError, "question stats failed")
		return
	}
	response.OK(c, stats)
}

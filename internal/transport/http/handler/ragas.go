package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/app"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/transport/http/response"
)

type RagasHandler struct {
	evalService *app.EvalService
}

type AddPairRequest struct {
	Question       string `json:"question" binding:"required"`
	ExpectedAnswer string `json:"expectedAnswer" binding:"required"`
}

type EvaluateRequest struct {
	PairID       string `json:"pairId" binding:"required"`
	ActualAnswer string `json:"actualAnswer" binding:"required"`
}

type RunRequest struct {
	PairID string `json:"pairId" binding:"required"`
}

type BatchEvaluateRequest struct {
	PairIDs []string `json:"pairIds" binding:"required"`
}

func NewRagasHandler(evalService *app.EvalService) *RagasHandler {
	return &RagasHandler{evalService: evalService}
}

func (h *RagasHandler) AddPair(c *gin.Context) {
	var req AddPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "question and expectedAnswer are required")
		return
	}
	pair, err := h.evalService.AddPair(req.Question, req.ExpectedAnswer)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, pair)
}

func (h *RagasHandler) ListPairs(c *gin.Context) {
	pairs, err := h.evalService.ListPairs()
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, pairs)
}

func (h *RagasHandler) GetPair(c *gin.Context) {
	pair, err := h.evalService.GetPair(c.Param("pairId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, pair)
}

func (h *RagasHandler) DeletePair(c *gin.Context) {
	if err := h.evalService.DeletePair(c.Param("pairId")); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"deletedPairId": c.Param("pairId")})
}

// Evaluate scores a caller-supplied answer against a stored pair.
func (h *RagasHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "pairId and actualAnswer are required")
		return
	}
	result, err := h.evalService.EvaluateAnswer(req.PairID, req.ActualAnswer)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Run asks the live pipeline the pair's question and scores the answer.
func (h *RagasHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "pairId is required")
		return
	}
	result, err := h.evalService.Run(c.Request.Context(), req.PairID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *RagasHandler) BatchEvaluate(c *gin.Context) {
	var req BatchEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "pairIds is required")
		return
	}
	results, err := h.evalService.EvaluateBatch(c.Request.Context(), req.PairIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, results)
}

func (h *RagasHandler) ResultsForPair(c *gin.Context) {
	results, err := h.evalService.ResultsForPair(c.Param("pairId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, results)
}

func (h *RagasHandler) Metrics(c *gin.Context) {
	response.OK(c, h.evalService.Metrics())
}

func (h *RagasHandler) Trends(c *gin.Context) {
	response.OK(c, h.evalService.Trends())
}

func (h *RagasHandler) Distribution(c *gin.Context) {
	response.OK(c, h.evalService.Distribution())
}

func (h *RagasHandler) Report(c *gin.Context) {
	report, err := h.evalService.Report()
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, report)
}

func (h *RagasHandler) Export(c *gin.Context) {
	export, err := h.evalService.Export()
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, export)
}

func (h *RagasHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrPairNotFound):
		response.Error(c, http.StatusNotFound, "ground truth pair not found")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "evaluation operation failed")
	}
}

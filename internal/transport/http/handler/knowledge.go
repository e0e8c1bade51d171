package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/app"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/pkg/pdfextract"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

type KnowledgeHandler struct {
	knowledgeService *app.KnowledgeService
}

type CreateDocumentRequest struct {
	Name       string `json:"name" binding:"required"`
	Content    string `json:"content" binding:"required"`
	SourceType string `json:"sourceType"`
	SourceID   string `json:"sourceId"`
}

func NewKnowledgeHandler(knowledgeService *app.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledgeService: knowledgeService}
}

func (h *KnowledgeHandler) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "name and content are required")
		return
	}

	result, err := h.knowledgeService.Ingest(c.Request.Context(), app.IngestInput{
		Name:       req.Name,
		Content:    req.Content,
		SourceType: model.SourceType(req.SourceType),
		SourceID:   req.SourceID,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "ingest failed")
		return
	}
	response.Created(c, result)
}

// UploadPDF accepts a multipart form with "file" (PDF, max 10MB) and an
// optional "name", extracts the text and ingests it as a document.
func (h *KnowledgeHandler) UploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, "file too large (max 10MB)")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to extract text from PDF: "+err.Error())
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		response.Error(c, http.StatusBadRequest, "PDF contains no extractable text")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	result, err := h.knowledgeService.Ingest(c.Request.Context(), app.IngestInput{
		Name:    name,
		Content: text,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "ingest failed")
		return
	}
	response.Created(c, result)
}

func (h *KnowledgeHandler) Stats(c *gin.Context) {
	stats, err := h.knowledgeService.Stats()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "knowledge stats failed")
		return
	}
	response.OK(c, stats)
}

func (h *KnowledgeHandler) Clear(c *gin.Context) {
	if err := h.knowledgeService.Clear(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, "clear knowledge base failed")
		return
	}
	response.OK(c, gin.H{"cleared": true})
}

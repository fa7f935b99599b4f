package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apeko/appraisal-rag/internal/core/domain"
)

func (s *Server) handleCreateDocument(c *gin.Context) {
	var body DocumentCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, err := s.rag.Ingest(c.Request.Context(), body.toRequest())
	if err != nil {
		respondError(c, "creating document", err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(doc))
}

func (s *Server) handleUploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if file.Size > s.opts.MaxUploadBytes {
		badRequest(c, fmt.Sprintf("file exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, "uploading document", err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		respondError(c, "uploading document", err)
		return
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		badRequest(c, fmt.Sprintf("file exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}

	raw := domain.RawDocument{
		Filename: file.Filename,
		MIMEType: file.Header.Get("Content-Type"),
		Content:  data,
	}
	doc, err := s.rag.IngestFile(c.Request.Context(), raw, domain.IngestRequest{
		Title:        c.PostForm("title"),
		DocumentType: c.PostForm("document_type"),
		Source:       c.PostForm("source"),
	})
	if err != nil {
		respondError(c, "uploading document", err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(doc))
}

func (s *Server) handleListDocuments(c *gin.Context) {
	limit, err := queryInt(c, "limit", domain.DefaultListLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	docs, err := s.rag.ListDocuments(c.Request.Context(), domain.DocumentFilter{
		DocumentType: c.Query("document_type"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondError(c, "retrieving documents", err)
		return
	}

	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = newDocumentResponse(&docs[i])
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}

	doc, err := s.rag.GetDocument(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		notFound(c, id)
		return
	}
	if err != nil {
		respondError(c, "retrieving document", err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(doc))
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}

	err := s.rag.DeleteDocument(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		notFound(c, id)
		return
	}
	if err != nil {
		respondError(c, "deleting document", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Document with ID %d deleted successfully", id),
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	query, ok := bindSearchQuery(c)
	if !ok {
		return
	}

	results, err := s.rag.Search(c.Request.Context(), query.Query, query.options())
	if err != nil {
		respondError(c, "searching documents", err)
		return
	}
	c.JSON(http.StatusOK, newSearchResults(results))
}

func (s *Server) handleGenerate(c *gin.Context) {
	query, ok := bindSearchQuery(c)
	if !ok {
		return
	}

	answer, err := s.rag.GenerateAnswer(c.Request.Context(), query.Query, query.options())
	if err != nil {
		respondError(c, "generating response", err)
		return
	}
	c.JSON(http.StatusOK, newRAGResponse(answer))
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := s.rag.UsageStatistics(c.Request.Context())
	if err != nil {
		respondError(c, "retrieving statistics", err)
		return
	}
	c.JSON(http.StatusOK, newUsageStatistics(stats))
}

func (s *Server) handleHealth(c *gin.Context) {
	h := s.rag.Health(c.Request.Context())
	c.JSON(http.StatusOK, HealthResponse{
		Status:    h.Status,
		Version:   s.opts.Version,
		Timestamp: formatTime(time.Now()),
		LLMStatus: h.LLMStatus,
		LLMModel:  h.LLMModel,
		Embedder:  h.Embedder,
	})
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Status: "ok", Message: "pong"})
}

// bindSearchQuery decodes a search body and requires a non-blank query.
func bindSearchQuery(c *gin.Context) (SearchQuery, bool) {
	var q SearchQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return q, false
	}
	if strings.TrimSpace(q.Query) == "" {
		badRequest(c, "query is required")
		return q, false
	}
	if q.TopK < 0 {
		badRequest(c, "top_k must not be negative")
		return q, false
	}
	return q, true
}

// documentID parses the :id path parameter, aborting with 400 when invalid.
func documentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid document id: "+c.Param("id"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
	}
	return v, nil
}

func notFound(c *gin.Context, id int64) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
		Detail: fmt.Sprintf("Document with ID %d not found", id),
	})
}

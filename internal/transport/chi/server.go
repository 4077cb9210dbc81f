// Package chi is the HTTP transport: hand-written handlers on the chi
// router, with domain errors mapped to JSON error responses through an
// ordered handler chain.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	router "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/domain"
	healthuc "github.com/studyhall-ai/quizgen/internal/usecase/health"
	ingestuc "github.com/studyhall-ai/quizgen/internal/usecase/ingest"
	quizuc "github.com/studyhall-ai/quizgen/internal/usecase/quiz"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest          = "bad_request"
	codeUnauthorized        = "unauthorized"
	codeNotFound            = "not_found"
	codeInsufficientContent = "insufficient_content"
	codeMalformedGeneration = "malformed_generation"
	codeEmbeddingProvider   = "embedding_provider_error"
	codeGenerationProvider  = "generation_provider_error"
	codeInternalError       = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the ingestion and quiz services.
type Server struct {
	documents      *ingestuc.Service
	quizzes        *quizuc.Service
	health         *healthuc.Service
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *ingestuc.Service,
	quizzes *quizuc.Service,
	health *healthuc.Service,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		documents:      documents,
		quizzes:        quizzes,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInsufficientContent, http.StatusUnprocessableEntity, codeInsufficientContent),
		sentinelHandler(domain.ErrMalformedGeneration, http.StatusBadGateway, codeMalformedGeneration),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrGenerationProvider, http.StatusBadGateway, codeGenerationProvider),
	}
	return s
}

// Register mounts all routes on the given router.
func (s *Server) Register(r router.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/documents", func(r router.Router) {
		r.Post("/", s.CreateDocument)
		r.Post("/file", s.UploadDocument)
		r.Post("/url", s.CreateDocumentFromURL)
		r.Get("/", s.ListDocuments)
		r.Get("/{id}", s.GetDocument)
		r.Get("/{id}/chunks", s.ListDocumentChunks)
		r.Delete("/{id}", s.DeleteDocument)
	})

	r.Route("/quizzes", func(r router.Router) {
		r.Post("/generate", s.GenerateDocumentQuiz)
		r.Post("/topic", s.GenerateTopicQuiz)
		r.Get("/", s.ListQuizzes)
		r.Get("/{id}", s.GetQuiz)
		r.Delete("/{id}", s.DeleteQuiz)
	})
}

// owner resolves the request's owner identity; writes 401 and returns ""
// when missing.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) string {
	owner := OwnerFromContext(r.Context())
	if owner == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing owner identity")
	}
	return owner
}

// CreateDocument handles POST /documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := s.documents.IngestText(r.Context(), owner, req.Title, req.Content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"documentId": id})
}

// UploadDocument handles POST /documents/file (multipart: title, file).
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart body: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "file field is required")
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	// The PDF parser needs random access, so spool the upload to disk.
	tmp, err := os.CreateTemp("", "quizgen-upload-*.pdf")
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		s.handleDomainError(w, err)
		return
	}
	if err := tmp.Close(); err != nil {
		s.handleDomainError(w, err)
		return
	}

	id, err := s.documents.IngestPDF(r.Context(), owner, title, tmp.Name(), header.Filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"documentId": id})
}

// CreateDocumentFromURL handles POST /documents/url.
func (s *Server) CreateDocumentFromURL(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "url is required")
		return
	}

	id, err := s.documents.IngestURL(r.Context(), owner, req.URL)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"documentId": id})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	docs, err := s.documents.List(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": items})
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	doc, err := s.documents.Get(r.Context(), owner, router.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// ListDocumentChunks handles GET /documents/{id}/chunks.
func (s *Server) ListDocumentChunks(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	chunks, err := s.documents.Chunks(r.Context(), owner, router.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]chunkResponse, len(chunks))
	for i, c := range chunks {
		items[i] = chunkToResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": items})
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	if err := s.documents.Delete(r.Context(), owner, router.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateDocumentQuiz handles POST /quizzes/generate.
func (s *Server) GenerateDocumentQuiz(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	var req struct {
		DocumentID   string `json:"documentId"`
		NumQuestions int    `json:"numQuestions"`
		Difficulty   string `json:"difficulty"`
		Title        string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	quiz, err := s.quizzes.FromDocument(r.Context(), owner, quizuc.DocumentRequest{
		DocumentID:   req.DocumentID,
		NumQuestions: req.NumQuestions,
		Difficulty:   req.Difficulty,
		Title:        req.Title,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"quiz": quizToResponse(quiz)})
}

// GenerateTopicQuiz handles POST /quizzes/topic.
func (s *Server) GenerateTopicQuiz(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	var req struct {
		Topic        string `json:"topic"`
		NumQuestions int    `json:"numQuestions"`
		Difficulty   string `json:"difficulty"`
		Title        string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	quiz, err := s.quizzes.FromTopic(r.Context(), owner, quizuc.TopicRequest{
		Topic:        req.Topic,
		NumQuestions: req.NumQuestions,
		Difficulty:   req.Difficulty,
		Title:        req.Title,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"quiz": quizToResponse(quiz)})
}

// ListQuizzes handles GET /quizzes.
func (s *Server) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	quizzes, err := s.quizzes.List(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]quizResponse, len(quizzes))
	for i, q := range quizzes {
		items[i] = quizToResponse(q)
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": items})
}

// GetQuiz handles GET /quizzes/{id}.
func (s *Server) GetQuiz(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	quiz, err := s.quizzes.Get(r.Context(), owner, router.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quizToResponse(quiz)})
}

// DeleteQuiz handles DELETE /quizzes/{id}.
func (s *Server) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	if owner == "" {
		return
	}

	if err := s.quizzes.Delete(r.Context(), owner, router.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Response shapes ---

type documentResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourceType string    `json:"sourceType"`
	SourceRef  string    `json:"sourceRef,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type chunkResponse struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type questionResponse struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

type quizResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Topic       string             `json:"topic,omitempty"`
	Difficulty  string             `json:"difficulty"`
	Description string             `json:"description,omitempty"`
	Questions   []questionResponse `json:"questions"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func documentToResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:         d.ID,
		Title:      d.Title,
		SourceType: string(d.SourceType),
		SourceRef:  d.SourceRef,
		CreatedAt:  d.CreatedAt,
	}
}

func chunkToResponse(c domain.Chunk) chunkResponse {
	return chunkResponse{
		ID:        c.ID,
		Position:  c.Position,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func quizToResponse(q domain.Quiz) quizResponse {
	questions := make([]questionResponse, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = questionResponse{
			ID:            question.ID,
			Question:      question.Question,
			Options:       question.Options,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
		}
	}
	return quizResponse{
		ID:          q.ID,
		Title:       q.Title,
		Topic:       q.Topic,
		Difficulty:  q.Difficulty,
		Description: q.Description,
		Questions:   questions,
		CreatedAt:   q.CreatedAt,
	}
}

// --- Error plumbing ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrEmptyInput,
		domain.ErrVectorDimMismatch,
		domain.ErrUnauthorized,
		domain.ErrNotFound,
		domain.ErrInsufficientContent,
		domain.ErrMalformedGeneration,
		domain.ErrEmbeddingProvider,
		domain.ErrGenerationProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

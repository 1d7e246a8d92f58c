package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paperchat/paperchat/internal/domain"
	"github.com/paperchat/paperchat/internal/extract"
	healthuc "github.com/paperchat/paperchat/internal/usecase/health"
)

// Ingester replaces the resident corpus with a new document.
type Ingester interface {
	Ingest(ctx context.Context, text string) error
}

// Chatter answers one chat turn.
type Chatter interface {
	Answer(ctx context.Context, message string, history []domain.Turn, provider domain.Provider) (string, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor func(ctx context.Context, r io.ReaderAt, size int64) (string, error)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	ingest        Ingester
	chat          Chatter
	health        *healthuc.Service
	uploadDir     string
	extractText   TextExtractor
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest Ingester,
	chat Chatter,
	health *healthuc.Service,
	uploadDir string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:      ingest,
		chat:        chat,
		health:      health,
		uploadDir:   uploadDir,
		extractText: extract.PDFText,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, codeEmptyDocument),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, codeGenerationProviderError),
		sentinelHandler(domain.ErrStoreWrite, http.StatusInternalServerError, codeStoreError),
	}
	return s
}

// WithExtractor overrides the text extractor (test substitution).
func (s *Server) WithExtractor(f TextExtractor) *Server {
	s.extractText = f
	return s
}

// Root handles GET /. Liveness probe.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "paperchat API is running!"})
}

// Upload handles POST /upload: saves the PDF, extracts its text, and
// replaces the resident corpus with it.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "No file uploaded. Please try again.")
		return
	}
	defer file.Close()

	if mime.TypeByExtension(filepath.Ext(header.Filename)) != "application/pdf" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid file type. Only PDF files are allowed.")
		return
	}

	// Same-named re-uploads silently overwrite the stored file.
	path, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("failed to persist upload", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeStoreError, "File saving failed.")
		return
	}

	saved, err := os.Open(path)
	if err != nil {
		s.logger.Error("failed to reopen upload", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeStoreError, "File saving failed.")
		return
	}
	defer saved.Close()

	text, err := s.extractText(r.Context(), saved, header.Size)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDocument) {
			writeError(w, http.StatusBadRequest, codeEmptyDocument, "No text extracted from the PDF.")
			return
		}
		s.logger.Error("failed to extract text", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, http.StatusBadRequest, codeBadRequest, "Could not read the PDF.")
		return
	}

	if err := s.ingest.Ingest(r.Context(), text); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("PDF '%s' successfully processed and stored.", header.Filename),
	})
}

// chatRequest is the POST /chat body. History carries structured turns so
// the prompt builder never has to guess whose turn is whose.
type chatRequest struct {
	Message string        `json:"message"`
	History []historyTurn `json:"history"`
	Model   string        `json:"model"`
}

type historyTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Message is required.")
		return
	}

	history := make([]domain.Turn, 0, len(req.History))
	for _, t := range req.History {
		role := domain.RoleUser
		if t.Role == string(domain.RoleAssistant) {
			role = domain.RoleAssistant
		}
		history = append(history, domain.Turn{Role: role, Text: t.Text})
	}

	provider, _ := domain.ParseProvider(req.Model)
	answer, err := s.chat.Answer(r.Context(), req.Message, history, provider)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	}
	if _, ok := report.Checks["corpus"]; ok {
		body["corpus_chunks"] = report.CorpusChunks
	}
	writeJSON(w, httpStatus, body)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// saveUpload persists the raw upload under the upload dir by original
// filename and returns the path.
func (s *Server) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.uploadDir, filepath.Base(filename))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// --- Error responses ---

type errorCode string

const (
	codeBadRequest              errorCode = "bad_request"
	codeValidationFailed        errorCode = "validation_failed"
	codeEmptyDocument           errorCode = "empty_document"
	codeEmbeddingProviderError  errorCode = "embedding_provider_error"
	codeGenerationProviderError errorCode = "generation_provider_error"
	codeStoreError              errorCode = "store_error"
	codeInternalError           errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-safe message: full detail for known
// sentinels, a generic one otherwise.
func safeDomainMessage(err error) string {
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Error()
	}

	sentinels := []error{
		domain.ErrEmptyDocument,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
		domain.ErrStoreWrite,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
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

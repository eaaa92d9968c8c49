// Package stubserver is an in-memory development backend speaking the
// document service's HTTP contract. It chunks uploads by paragraph and answers
// questions by keyword overlap.
package stubserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"docqa/internal/httputil"
)

const (
	defaultNumChunks = 3
	maxMemory        = 32 << 20
)

// Options tunes the fake backend.
type Options struct {
	MaxUploadSize  int64
	ChunkSize      int
	HybridScores   bool
	RequestTimeout time.Duration
}

type Server struct {
	store    *Store
	log      *slog.Logger
	validate *httputil.Validator
	opts     Options
}

func New(log *slog.Logger, opts Options) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 10 << 20
	}
	return &Server{
		store:    NewStore(),
		log:      log,
		validate: httputil.NewValidator(),
		opts:     opts,
	}
}

func (s *Server) Store() *Store { return s.store }

// Routes mounts the contract under /api.
func (s *Server) Routes() http.Handler {
	r := httputil.NewRouter(s.log, s.opts.RequestTimeout)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health/", httputil.HealthHandler(s.log))
		r.Get("/documents/", s.listDocuments)
		r.Post("/documents/upload/", s.uploadDocument)
		r.Get("/documents/{id}/", s.documentDetail)
		r.Delete("/documents/{id}/delete/", s.deleteDocument)
		r.Get("/documents/{id}/chat-history/", s.chatHistory)
		r.Post("/ask/", s.ask)
	})
	return r
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, stats := s.store.List()
	httputil.OK(w, map[string]any{
		"documents":  docs,
		"total":      len(docs),
		"statistics": stats,
	})
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize+maxMemory)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Fail(s.log, w, fmt.Sprintf("File too large (max %d bytes)", s.opts.MaxUploadSize), err, http.StatusRequestEntityTooLarge)
			return
		}
		httputil.Fail(s.log, w, "No file provided", err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > s.opts.MaxUploadSize {
		httputil.Fail(s.log, w, fmt.Sprintf("File too large (max %d bytes)", s.opts.MaxUploadSize), nil, http.StatusRequestEntityTooLarge)
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		httputil.Fail(s.log, w, "Failed to read file", err, http.StatusInternalServerError)
		return
	}

	title := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	doc := s.store.Create(title, documentType(header.Filename), int64(len(content)))
	log := s.log.With("document_id", doc.ID, "filename", header.Filename)

	result := s.process(doc.ID, header.Filename, content)
	if result["status"] == httputil.StatusSuccess {
		log.Info("document processed", "chunks", result["chunks_created"])
	} else {
		log.Warn("document processing failed", "err", result["error"])
	}

	httputil.OK(w, map[string]any{
		"message":           "Document uploaded successfully",
		"document_id":       doc.ID,
		"processing_result": result,
	})
}

// process extracts and chunks content synchronously and reports the outcome
// the way the upload response nests it.
func (s *Server) process(id int, filename string, content []byte) map[string]any {
	start := time.Now()
	fail := func(err error) map[string]any {
		_ = s.store.MarkFailed(id)
		return map[string]any{"status": httputil.StatusError, "error": err.Error()}
	}

	text, pages, err := extractText(filename, content)
	if err != nil {
		return fail(err)
	}
	chunks := ChunkText(text, ChunkOptions{MaxChars: s.opts.ChunkSize})
	if len(chunks) == 0 {
		return fail(ErrNoText)
	}
	if err := s.store.Complete(id, chunks, pages); err != nil {
		return fail(err)
	}
	return map[string]any{
		"status":          httputil.StatusSuccess,
		"chunks_created":  len(chunks),
		"processing_time": time.Since(start).Seconds(),
	}
}

func (s *Server) documentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(s.log, w, "Document not found", err, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func (s *Server) documentDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	doc, err := s.store.Get(id)
	if err != nil {
		httputil.Fail(s.log, w, "Document not found", err, http.StatusNotFound)
		return
	}
	chunks, _ := s.store.Chunks(id)
	httputil.OK(w, map[string]any{
		"document": map[string]any{
			"document_id":       doc.ID,
			"title":             doc.Title,
			"total_chunks":      len(chunks),
			"processing_status": doc.ProcessingStatus,
			"file_size":         doc.FileSize,
			"pages_count":       doc.PagesCount,
			"uploaded_at":       doc.UploadedAt,
			"processed_at":      doc.ProcessedAt,
			"updated_at":        doc.UpdatedAt,
		},
	})
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		httputil.Fail(s.log, w, "Document not found", err, http.StatusNotFound)
		return
	}
	s.log.Info("document deleted", "document_id", id)
	httputil.OK(w, map[string]any{"message": "Document deleted"})
}

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	history, err := s.store.History(id)
	if err != nil {
		httputil.Fail(s.log, w, "Document not found", err, http.StatusNotFound)
		return
	}
	httputil.OK(w, map[string]any{"chat_history": history})
}

type askRequest struct {
	DocumentID *int   `json:"document_id" validate:"required"`
	Question   string `json:"question" validate:"required,max=1000"`
	NumChunks  *int   `json:"num_chunks" validate:"omitempty,min=1,max=10"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := s.validate.Decode(r.Body, &req); err != nil {
		var verr *httputil.ValidationError
		if errors.As(err, &verr) {
			httputil.FailWith(s.log, w, "Invalid data", err, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
			return
		}
		httputil.Fail(s.log, w, "Invalid JSON data", err, http.StatusBadRequest)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		httputil.Fail(s.log, w, "Question cannot be empty", nil, http.StatusBadRequest)
		return
	}
	numChunks := defaultNumChunks
	if req.NumChunks != nil {
		numChunks = *req.NumChunks
	}

	id := *req.DocumentID
	doc, err := s.store.Get(id)
	if err != nil {
		httputil.Fail(s.log, w, "Document not found", err, http.StatusNotFound)
		return
	}
	if doc.ProcessingStatus != StatusCompleted {
		httputil.Fail(s.log, w, "Document is not ready. Status: "+doc.ProcessingStatus, nil, http.StatusBadRequest)
		return
	}

	chunks, err := s.store.Chunks(id)
	if err != nil {
		httputil.Fail(s.log, w, "Document not found", err, http.StatusNotFound)
		return
	}
	answer := answerQuestion(question, chunks, numChunks, s.opts.HybridScores)

	used := make([]int, len(answer.Sources))
	for i, src := range answer.Sources {
		used[i] = src.ChunkID
	}
	if err := s.store.AppendHistory(id, ChatEntry{
		Question:        question,
		Answer:          answer.Answer,
		ConfidenceScore: answer.Confidence,
		ChunksUsed:      used,
	}); err != nil {
		s.log.Warn("failed to record chat history", "document_id", id, "err", err)
	}

	httputil.OK(w, map[string]any{
		"document_title": doc.Title,
		"document_id":    doc.ID,
		"question":       question,
		"answer":         answer.Answer,
		"confidence":     answer.Confidence,
		"response_time":  answer.ResponseTime,
		"sources":        answer.Sources,
	})
}

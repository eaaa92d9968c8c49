package stubserver

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var ErrNotFound = errors.New("document not found")

// Document is the wire form of a stored document.
type Document struct {
	ID               int        `json:"id"`
	Title            string     `json:"title"`
	DocumentType     string     `json:"document_type"`
	FileSize         int64      `json:"file_size"`
	FileSizeDisplay  string     `json:"file_size_display"`
	PagesCount       int        `json:"pages_count"`
	ProcessingStatus string     `json:"processing_status"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	ProcessedAt      *time.Time `json:"processed_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Statistics struct {
	TotalDocuments int `json:"total_documents"`
	Completed      int `json:"completed"`
	Processing     int `json:"processing"`
	Failed         int `json:"failed"`
}

type ChatEntry struct {
	Question        string    `json:"question"`
	Answer          string    `json:"answer"`
	ConfidenceScore float64   `json:"confidence_score"`
	ChunksUsed      []int     `json:"chunks_used"`
	CreatedAt       time.Time `json:"created_at"`
}

type record struct {
	doc     Document
	chunks  []Chunk
	history []ChatEntry // newest first
}

// Store keeps documents, their chunks and chat history in memory.
type Store struct {
	mu     sync.RWMutex
	nextID int
	docs   map[int]*record
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{docs: make(map[int]*record), now: time.Now}
}

// Create registers a new document in the processing state.
func (s *Store) Create(title, docType string, size int64) Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now().UTC()
	rec := &record{doc: Document{
		ID:               s.nextID,
		Title:            title,
		DocumentType:     docType,
		FileSize:         size,
		FileSizeDisplay:  fileSizeDisplay(size),
		PagesCount:       1,
		ProcessingStatus: StatusProcessing,
		UploadedAt:       now,
		UpdatedAt:        now,
	}}
	s.docs[rec.doc.ID] = rec
	return rec.doc
}

// Complete stores the chunks and marks the document completed.
func (s *Store) Complete(id int, chunks []Chunk, pages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	now := s.now().UTC()
	rec.chunks = chunks
	rec.doc.ProcessingStatus = StatusCompleted
	if pages > 0 {
		rec.doc.PagesCount = pages
	}
	rec.doc.ProcessedAt = &now
	rec.doc.UpdatedAt = now
	return nil
}

func (s *Store) MarkFailed(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	rec.doc.ProcessingStatus = StatusFailed
	rec.doc.UpdatedAt = s.now().UTC()
	return nil
}

// List returns documents newest first with aggregate counts.
func (s *Store) List() ([]Document, Statistics) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs))
	var stats Statistics
	for _, rec := range s.docs {
		docs = append(docs, rec.doc)
		stats.TotalDocuments++
		switch rec.doc.ProcessingStatus {
		case StatusCompleted:
			stats.Completed++
		case StatusProcessing:
			stats.Processing++
		case StatusFailed:
			stats.Failed++
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs, stats
}

func (s *Store) Get(id int) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return rec.doc, nil
}

func (s *Store) Chunks(id int) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Chunk(nil), rec.chunks...), nil
}

// Delete removes a document with its chunks and history.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *Store) AppendHistory(id int, entry ChatEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	rec.history = append([]ChatEntry{entry}, rec.history...)
	return nil
}

// History returns the document's chat history, newest first.
func (s *Store) History(id int) ([]ChatEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]ChatEntry{}, rec.history...), nil
}

// fileSizeDisplay renders size with one decimal in the largest unit below 1024.
func fileSizeDisplay(size int64) string {
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f TB", v)
}

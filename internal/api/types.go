package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// DocumentID is the server's opaque document identifier.
// The backend may encode it as a JSON number or string.
type DocumentID string

func (id DocumentID) String() string { return string(id) }

// MarshalJSON keeps numeric ids numeric so the backend's integer fields accept them.
func (id DocumentID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *DocumentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = DocumentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("document id: %w", err)
	}
	*id = DocumentID(n.String())
	return nil
}

// Status is a document's server-side processing status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Actionable reports whether questions may be asked against a document in this status.
func (s Status) Actionable() bool { return s == StatusCompleted }

// Timestamp decodes the backend's ISO-8601 timestamps, with or without a zone.
type Timestamp struct{ time.Time }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

type Document struct {
	ID               DocumentID `json:"id"`
	Title            string     `json:"title"`
	DocumentType     string     `json:"document_type"`
	FileSize         int64      `json:"file_size"`
	FileSizeDisplay  string     `json:"file_size_display,omitempty"`
	ProcessingStatus Status     `json:"processing_status"`
	UploadedAt       Timestamp  `json:"uploaded_at"`
	PagesCount       *int       `json:"pages_count,omitempty"`
}

// Statistics is the server's aggregate snapshot returned with every list.
type Statistics struct {
	TotalDocuments int `json:"total_documents"`
	Completed      int `json:"completed"`
	Processing     int `json:"processing"`
	Failed         int `json:"failed"`
}

// Source is one retrieved excerpt backing an answer.
type Source struct {
	ChunkID       int      `json:"chunk_id" validate:"gte=0"`
	Content       string   `json:"content"`
	Similarity    float64  `json:"similarity" validate:"gte=0,lte=1"`
	SemanticScore *float64 `json:"semantic_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	KeywordScore  *float64 `json:"keyword_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Hybrid reports whether both hybrid sub-scores are present.
func (s Source) Hybrid() bool { return s.SemanticScore != nil && s.KeywordScore != nil }

type Answer struct {
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence" validate:"gte=0,lte=1"`
	ResponseTime float64  `json:"response_time" validate:"gte=0"`
	Sources      []Source `json:"sources" validate:"dive"`
}

// ChatEntry is one persisted question about a document, newest first.
type ChatEntry struct {
	Question        string    `json:"question"`
	Answer          string    `json:"answer,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       Timestamp `json:"created_at"`
}

const (
	ProcessingSuccess = "success"
	ProcessingError   = "error"
)

// ProcessingResult is the nested outcome of server-side processing of an upload.
type ProcessingResult struct {
	Status         string  `json:"status"`
	ChunksCreated  int     `json:"chunks_created,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Error          string  `json:"error,omitempty"`
}

func (r ProcessingResult) Succeeded() bool { return r.Status == ProcessingSuccess }

// UploadAck acknowledges an accepted upload. A transport-level success
// does not mean processing succeeded; check ProcessingResult.
type UploadAck struct {
	Message          string           `json:"message,omitempty"`
	DocumentID       DocumentID       `json:"document_id,omitempty"`
	ProcessingResult ProcessingResult `json:"processing_result"`
}

// Upload is a local file handed to UploadDocument.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// AskRequest is the body of POST /ask/.
type AskRequest struct {
	DocumentID DocumentID `json:"document_id"`
	Question   string     `json:"question"`
	NumChunks  int        `json:"num_chunks"`
}

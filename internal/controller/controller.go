// Package controller implements the dashboard, upload and Q&A flows. Each
// flow validates locally, runs one remote call through the state store's
// operation guard and applies the result as store transitions.
package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"docqa/internal/api"
	"docqa/internal/state"
)

const (
	DefaultNumChunks      = 3
	DefaultHistoryTimeout = 15 * time.Second
)

// User-facing messages.
const (
	msgSelectFile       = "Please select a file"
	msgEmptyFile        = "The selected file is empty"
	msgAskPrecondition  = "Please select a document and enter a question"
	msgDocumentGone     = "The selected document is no longer available"
	msgNotReady         = "Document is not ready. Status: "
	msgDeleted          = "Document deleted successfully"
	msgUploaded         = "Document uploaded and processed successfully! Created %d chunks."
	msgProcessingFailed = "Document uploaded but processing failed. Please try again."
	DeleteConfirmPrompt = "Are you sure you want to delete this document? This action cannot be undone."
)

// ErrProcessingFailed is returned by Upload.Submit when the file was accepted
// but server-side processing reported failure.
var ErrProcessingFailed = errors.New("document processing failed")

// ValidationError is a failure caught before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Confirmer is a blocking yes/no gate.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Options tunes the flows.
type Options struct {
	NumChunks      int
	HistoryTimeout time.Duration
}

// Controllers bundles the flows sharing one store and service.
type Controllers struct {
	Dashboard *Dashboard
	Upload    *Upload
	QA        *QA
	History   *History
}

// New wires the flows together.
func New(svc api.Service, st *state.Store, confirm Confirmer, opts Options, log *slog.Logger) *Controllers {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.NumChunks <= 0 {
		opts.NumChunks = DefaultNumChunks
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = DefaultHistoryTimeout
	}

	history := &History{svc: svc, store: st, timeout: opts.HistoryTimeout, log: log.With("flow", "history")}
	dashboard := &Dashboard{svc: svc, store: st, history: history, confirm: confirm, log: log.With("flow", "dashboard")}
	return &Controllers{
		Dashboard: dashboard,
		Upload:    &Upload{svc: svc, store: st, dashboard: dashboard, log: log.With("flow", "upload")},
		QA:        &QA{svc: svc, store: st, history: history, numChunks: opts.NumChunks, log: log.With("flow", "qa")},
		History:   history,
	}
}

func invalid(st *state.Store, msg string) error {
	st.RecordError(msg)
	return &ValidationError{Message: msg}
}

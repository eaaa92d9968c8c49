package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docqa/internal/api"
	"docqa/internal/state"
)

// AcceptedExtensions and AdvisoryMaxSize are hints for the user. The server
// decides what it actually accepts.
var AcceptedExtensions = []string{".txt", ".pdf", ".docx", ".md"}

const AdvisoryMaxSize int64 = 10 << 20

// Advisory describes soft problems with a chosen file. Neither blocks upload.
type Advisory struct {
	UnsupportedType bool
	TooLarge        bool
}

func (a Advisory) Warnings() []string {
	var out []string
	if a.UnsupportedType {
		out = append(out, "File type may not be supported. Supported formats: "+strings.Join(AcceptedExtensions, ", "))
	}
	if a.TooLarge {
		out = append(out, "File is larger than the recommended 10 MB")
	}
	return out
}

// Advise checks a file name and size against the advisory limits.
func Advise(name string, size int64) Advisory {
	ext := strings.ToLower(filepath.Ext(name))
	return Advisory{
		UnsupportedType: !slices.Contains(AcceptedExtensions, ext),
		TooLarge:        size > AdvisoryMaxSize,
	}
}

// Upload stages a local file and sends it to the service.
type Upload struct {
	svc       api.Service
	store     *state.Store
	dashboard *Dashboard
	log       *slog.Logger
}

// Enter shows the upload page.
func (u *Upload) Enter() {
	u.store.SetPage(state.PageUpload)
}

// Choose stages the file at path for upload. Only unreadable paths fail.
func (u *Upload) Choose(path string) (Advisory, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Advisory{}, invalid(u.store, msgSelectFile)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Advisory{}, invalid(u.store, fmt.Sprintf("Cannot read %s", path))
	}
	if info.IsDir() {
		return Advisory{}, invalid(u.store, fmt.Sprintf("%s is a directory", path))
	}

	var contentType string
	if info.Size() > 0 {
		if mt, err := mimetype.DetectFile(path); err == nil {
			contentType = mt.String()
		} else {
			u.log.Debug("content sniffing failed", "path", path, "err", err)
		}
	}

	u.store.SetUploadFile(state.PendingFile{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
	})
	return Advise(info.Name(), info.Size()), nil
}

// Clear unstages the chosen file.
func (u *Upload) Clear() {
	u.store.ClearUploadFile()
}

// Submit uploads the staged file, reloads the collection and returns to the
// dashboard. If the server accepted the file but could not process it, a
// warning notice is set and ErrProcessingFailed is returned.
func (u *Upload) Submit(ctx context.Context) error {
	f := u.store.Snapshot().UploadFile
	if f == nil {
		return invalid(u.store, msgSelectFile)
	}
	if f.Size == 0 {
		return invalid(u.store, msgEmptyFile)
	}

	op, err := u.store.Begin(state.OpUpload)
	if err != nil {
		return err
	}
	defer op.End()

	file, err := os.Open(f.Path)
	if err != nil {
		op.Fail(fmt.Sprintf("Cannot read %s", f.Name))
		return fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	ack, err := u.svc.UploadDocument(ctx, api.Upload{Filename: f.Name, ContentType: f.ContentType, Body: file})
	if err != nil {
		u.log.Warn("upload failed", "file", f.Name, "err", err)
		op.Fail(api.Message(err))
		return err
	}
	u.log.Info("document uploaded", "file", f.Name, "document_id", ack.DocumentID,
		"processing", ack.ProcessingResult.Status, "chunks", ack.ProcessingResult.ChunksCreated)

	u.store.ClearUploadFile()
	_ = u.dashboard.load(ctx, op)
	u.store.SetPage(state.PageDashboard)

	if !ack.ProcessingResult.Succeeded() {
		op.Notify(state.NoticeWarning, msgProcessingFailed)
		if ack.ProcessingResult.Error != "" {
			return fmt.Errorf("%w: %s", ErrProcessingFailed, ack.ProcessingResult.Error)
		}
		return ErrProcessingFailed
	}
	op.Notify(state.NoticeSuccess, fmt.Sprintf(msgUploaded, ack.ProcessingResult.ChunksCreated))
	return nil
}

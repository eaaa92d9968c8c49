// Package state holds the client's single view-state aggregate. Every
// mutation goes through a named transition so the UI, the controllers and
// late network responses all observe one consistent state.
package state

import (
	"errors"
	"sync"

	"docqa/internal/api"
)

// Page is the view currently shown.
type Page string

const (
	PageDashboard Page = "dashboard"
	PageUpload    Page = "upload"
	PageQA        Page = "qa"
)

// NoticeKind distinguishes good news from a soft failure the user must see.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
)

// Notice is a dismissible message that is not an error.
type Notice struct {
	Kind NoticeKind
	Text string
}

// PendingFile is the local file chosen for upload but not yet sent.
type PendingFile struct {
	Path        string
	Name        string
	Size        int64
	ContentType string // empty when unknown
}

// ErrBusy is returned by Begin while another primary operation is outstanding.
var ErrBusy = errors.New("another operation is in progress")

// Store is the canonical client state. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	page        Page
	documents   []api.Document
	statistics  *api.Statistics
	selectedID  api.DocumentID
	uploadFile  *PendingFile
	question    string
	answer      *api.Answer
	chatHistory []api.ChatEntry
	err         string
	notice      *Notice

	inflight *Op
	seq      map[OpKind]uint64
	visits   uint64 // bumped on every page change

	historySeq uint64
	historyErr error

	subs []chan struct{}
}

// New returns a store showing an empty dashboard.
func New() *Store {
	return &Store{
		page:        PageDashboard,
		documents:   []api.Document{},
		chatHistory: []api.ChatEntry{},
		seq:         make(map[OpKind]uint64),
	}
}

// Subscribe returns a channel that receives a signal after state changes.
// Signals coalesce; a receiver should re-read Snapshot.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// changed must be called with s.mu held.
func (s *Store) changed() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SetPage switches the view. It does not fetch anything. Leaving a page
// drops the current answer.
func (s *Store) SetPage(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p != s.page {
		s.answer = nil
		s.visits++
	}
	s.page = p
	s.changed()
}

// RecordError puts msg in the shared error slot and leaves everything else alone.
func (s *Store) RecordError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
	s.changed()
}

func (s *Store) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
	s.changed()
}

func (s *Store) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
	s.changed()
}

// Select marks id as the Q&A target. Choosing a different document drops the
// previous document's answer and chat history.
func (s *Store) Select(id api.DocumentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.selectedID {
		s.answer = nil
		s.chatHistory = []api.ChatEntry{}
		s.historyErr = nil
	}
	s.selectedID = id
	s.changed()
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = ""
	s.answer = nil
	s.chatHistory = []api.ChatEntry{}
	s.historyErr = nil
	s.changed()
}

// SetQuestion replaces the draft question text.
func (s *Store) SetQuestion(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q == s.question {
		return
	}
	s.question = q
	s.changed()
}

func (s *Store) SetUploadFile(f PendingFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadFile = &f
	s.changed()
}

func (s *Store) ClearUploadFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadFile = nil
	s.changed()
}

// Busy reports whether a primary operation is outstanding.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight != nil
}

// Snapshot is a copy of the state, safe to read without locking.
type Snapshot struct {
	Page        Page
	Documents   []api.Document
	Statistics  *api.Statistics
	SelectedID  api.DocumentID
	Selected    *api.Document // SelectedID resolved against Documents; nil if absent
	UploadFile  *PendingFile
	Question    string
	Answer      *api.Answer
	ChatHistory []api.ChatEntry
	Loading     bool
	Operation   OpKind // kind of the in-flight operation, empty when idle
	Error       string
	Notice      *Notice

	// HistoryError is the last chat-history failure. It is never shown in
	// the error slot.
	HistoryError error
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Page:         s.page,
		Documents:    append([]api.Document(nil), s.documents...),
		SelectedID:   s.selectedID,
		Question:     s.question,
		ChatHistory:  append([]api.ChatEntry(nil), s.chatHistory...),
		Loading:      s.inflight != nil,
		Error:        s.err,
		HistoryError: s.historyErr,
	}
	if s.inflight != nil {
		snap.Operation = s.inflight.kind
	}
	if s.statistics != nil {
		stats := *s.statistics
		snap.Statistics = &stats
	}
	if s.uploadFile != nil {
		f := *s.uploadFile
		snap.UploadFile = &f
	}
	if s.answer != nil {
		a := *s.answer
		a.Sources = append([]api.Source(nil), s.answer.Sources...)
		snap.Answer = &a
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	if s.selectedID != "" {
		for i := range snap.Documents {
			if snap.Documents[i].ID == s.selectedID {
				snap.Selected = &snap.Documents[i]
				break
			}
		}
	}
	return snap
}

// Find looks up a document in the current collection.
func (s *Store) Find(id api.DocumentID) (api.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.ID == id {
			return d, true
		}
	}
	return api.Document{}, false
}

// SelectedID returns the id of the selected document, empty when none.
func (s *Store) SelectedID() api.DocumentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// HistoryWindow is how many chat-history entries are offered for display.
const HistoryWindow = 5

// RecentQuestions returns the newest chat-history entries within HistoryWindow.
func (snap Snapshot) RecentQuestions() []api.ChatEntry {
	if len(snap.ChatHistory) > HistoryWindow {
		return snap.ChatHistory[:HistoryWindow]
	}
	return snap.ChatHistory
}

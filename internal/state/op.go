package state

import (
	"sync"

	"docqa/internal/api"
)

// OpKind names a category of primary operation.
type OpKind string

const (
	OpList   OpKind = "list"
	OpUpload OpKind = "upload"
	OpDelete OpKind = "delete"
	OpAsk    OpKind = "ask"
)

// Op is the ticket for one primary operation. It holds the store's single
// in-flight slot from Begin until End, and its results apply only while its
// sequence number is the newest issued for its kind.
type Op struct {
	s      *Store
	kind   OpKind
	seq    uint64
	visits uint64
	once   sync.Once
}

// Begin claims the in-flight slot for a primary operation: loading becomes
// true, the error and notice are cleared, and for OpAsk the answer too.
// Callers must defer End.
func (s *Store) Begin(kind OpKind) (*Op, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		return nil, ErrBusy
	}
	s.seq[kind]++
	op := &Op{s: s, kind: kind, seq: s.seq[kind], visits: s.visits}
	s.inflight = op
	s.err = ""
	s.notice = nil
	if kind == OpAsk {
		s.answer = nil
	}
	s.changed()
	return op, nil
}

// End releases the in-flight slot. It is safe to call more than once.
func (o *Op) End() {
	o.once.Do(func() {
		o.s.mu.Lock()
		defer o.s.mu.Unlock()
		if o.s.inflight == o {
			o.s.inflight = nil
		}
		o.s.changed()
	})
}

func (o *Op) Kind() OpKind { return o.kind }

// Current reports whether no newer operation of the same kind was issued.
func (o *Op) Current() bool {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.current()
}

func (o *Op) current() bool { return o.s.seq[o.kind] == o.seq }

// apply runs fn under the store lock if the op is still current.
func (o *Op) apply(fn func(s *Store)) bool {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if !o.current() {
		return false
	}
	fn(o.s)
	o.s.changed()
	return true
}

// Fail records msg in the error slot. Stale ops are ignored.
func (o *Op) Fail(msg string) bool {
	return o.apply(func(s *Store) { s.err = msg })
}

// ReplaceDocuments swaps in a fresh collection and statistics snapshot.
// The selection is kept as an id; Snapshot re-resolves it.
func (o *Op) ReplaceDocuments(docs []api.Document, stats *api.Statistics) bool {
	if docs == nil {
		docs = []api.Document{}
	}
	return o.apply(func(s *Store) {
		s.documents = append([]api.Document(nil), docs...)
		if stats != nil {
			cp := *stats
			s.statistics = &cp
		} else {
			s.statistics = nil
		}
	})
}

// SetAnswer stores the answer to a question about id. It is discarded when
// id is no longer selected or the page changed since Begin.
func (o *Op) SetAnswer(id api.DocumentID, a api.Answer) bool {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if !o.current() || o.s.selectedID != id || o.s.visits != o.visits {
		return false
	}
	o.s.answer = &a
	o.s.changed()
	return true
}

func (o *Op) Notify(kind NoticeKind, text string) bool {
	return o.apply(func(s *Store) { s.notice = &Notice{Kind: kind, Text: text} })
}

// HistoryTicket identifies one best-effort chat-history fetch.
type HistoryTicket struct {
	seq        uint64
	DocumentID api.DocumentID
}

// BeginHistory issues a ticket for a chat-history fetch. It never touches
// the loading flag or the error slot.
func (s *Store) BeginHistory(id api.DocumentID) HistoryTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historySeq++
	return HistoryTicket{seq: s.historySeq, DocumentID: id}
}

func (s *Store) historyCurrent(t HistoryTicket) bool {
	return t.seq == s.historySeq && t.DocumentID == s.selectedID
}

// ApplyHistory stores entries if t is the newest ticket and its document is
// still selected.
func (s *Store) ApplyHistory(t HistoryTicket, entries []api.ChatEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.historyCurrent(t) {
		return false
	}
	s.chatHistory = append([]api.ChatEntry{}, entries...)
	s.historyErr = nil
	s.changed()
	return true
}

// RecordHistoryError keeps err on the history channel, away from the error slot.
func (s *Store) RecordHistoryError(t HistoryTicket, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.historyCurrent(t) {
		return false
	}
	s.historyErr = err
	s.changed()
	return true
}

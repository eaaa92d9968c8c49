package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docqa/internal/api"
	"docqa/internal/state"
)

// History refreshes a document's chat history in the background. Failures
// are logged and kept on the store's history channel; they never reach the
// error slot or the loading flag.
type History struct {
	svc     api.Service
	store   *state.Store
	timeout time.Duration
	log     *slog.Logger

	wg sync.WaitGroup
}

// Refresh starts a fetch for id and returns immediately. The fetch outlives
// ctx's cancellation but is bounded by the history timeout.
func (h *History) Refresh(ctx context.Context, id api.DocumentID) {
	ticket := h.store.BeginHistory(id)
	bg := context.WithoutCancel(ctx)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.fetch(bg, ticket)
	}()
}

func (h *History) fetch(ctx context.Context, ticket state.HistoryTicket) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	entries, err := h.svc.FetchChatHistory(ctx, ticket.DocumentID)
	if err != nil {
		h.log.Warn("failed to fetch chat history", "document_id", ticket.DocumentID, "err", err)
		h.store.RecordHistoryError(ticket, err)
		return
	}
	if !h.store.ApplyHistory(ticket, entries) {
		h.log.Debug("discarded stale chat history", "document_id", ticket.DocumentID)
	}
}

// Wait blocks until every started fetch has finished.
func (h *History) Wait() { h.wg.Wait() }

package controller

import (
	"context"
	"log/slog"
	"strings"

	"docqa/internal/api"
	"docqa/internal/state"
)

// QA asks questions about the selected document.
type QA struct {
	svc       api.Service
	store     *state.Store
	history   *History
	numChunks int
	log       *slog.Logger
}

func (q *QA) SetQuestion(text string) {
	q.store.SetQuestion(text)
}

// Ask sends the draft question for the selected document. On success the
// answer is stored and chat history is refreshed in the background.
func (q *QA) Ask(ctx context.Context) error {
	snap := q.store.Snapshot()
	question := strings.TrimSpace(snap.Question)
	if snap.SelectedID == "" || question == "" {
		return invalid(q.store, msgAskPrecondition)
	}
	if snap.Selected == nil {
		return invalid(q.store, msgDocumentGone)
	}
	if !snap.Selected.ProcessingStatus.Actionable() {
		return invalid(q.store, msgNotReady+string(snap.Selected.ProcessingStatus))
	}

	op, err := q.store.Begin(state.OpAsk)
	if err != nil {
		return err
	}
	defer op.End()

	id := snap.SelectedID
	answer, err := q.svc.AskQuestion(ctx, api.AskRequest{
		DocumentID: id,
		Question:   question,
		NumChunks:  q.numChunks,
	})
	if err != nil {
		q.log.Warn("ask failed", "document_id", id, "err", err)
		op.Fail(api.Message(err))
		return err
	}
	q.log.Info("question answered", "document_id", id,
		"confidence", answer.Confidence, "response_time", answer.ResponseTime, "sources", len(answer.Sources))

	if !op.SetAnswer(id, *answer) {
		q.log.Debug("discarding answer for a document no longer on screen", "document_id", id)
		return nil
	}
	q.history.Refresh(ctx, id)
	return nil
}

// Recall copies the i-th recent question into the draft.
func (q *QA) Recall(i int) (string, bool) {
	recent := q.store.Snapshot().RecentQuestions()
	if i < 0 || i >= len(recent) {
		return "", false
	}
	q.store.SetQuestion(recent[i].Question)
	return recent[i].Question, true
}

package controller

import (
	"context"
	"log/slog"

	"docqa/internal/api"
	"docqa/internal/state"
)

// Dashboard lists, opens and deletes documents.
type Dashboard struct {
	svc     api.Service
	store   *state.Store
	history *History
	confirm Confirmer
	log     *slog.Logger
}

// Enter shows the dashboard and reloads the collection.
func (d *Dashboard) Enter(ctx context.Context) error {
	d.store.SetPage(state.PageDashboard)
	return d.Refresh(ctx)
}

// Refresh reloads the collection and statistics.
func (d *Dashboard) Refresh(ctx context.Context) error {
	op, err := d.store.Begin(state.OpList)
	if err != nil {
		return err
	}
	defer op.End()
	return d.load(ctx, op)
}

// load fetches the collection on behalf of op. Upload and delete reuse it
// while still holding their own slot.
func (d *Dashboard) load(ctx context.Context, op *state.Op) error {
	list, err := d.svc.ListDocuments(ctx)
	if err != nil {
		d.log.Warn("failed to list documents", "err", err)
		op.Fail(api.Message(err))
		return err
	}
	if !op.ReplaceDocuments(list.Documents, list.Statistics) {
		d.log.Debug("discarded stale document list", "op", op.Kind())
	}
	return nil
}

// Delete asks for confirmation and then removes id. A declined confirmation
// returns nil without touching the service.
func (d *Dashboard) Delete(ctx context.Context, id api.DocumentID) error {
	if d.store.Busy() {
		return state.ErrBusy
	}
	if d.confirm != nil {
		ok, err := d.confirm.Confirm(ctx, DeleteConfirmPrompt)
		if err != nil {
			return err
		}
		if !ok {
			d.log.Debug("delete declined", "document_id", id)
			return nil
		}
	}

	op, err := d.store.Begin(state.OpDelete)
	if err != nil {
		return err
	}
	defer op.End()

	if err := d.svc.DeleteDocument(ctx, id); err != nil {
		d.log.Warn("failed to delete document", "document_id", id, "err", err)
		op.Fail(api.Message(err))
		return err
	}
	d.log.Info("document deleted", "document_id", id)

	// The delete already happened; a failed reload only shows in the error slot.
	_ = d.load(ctx, op)

	if d.store.SelectedID() == id {
		d.store.ClearSelection()
		d.store.SetPage(state.PageDashboard)
	}
	op.Notify(state.NoticeSuccess, msgDeleted)
	return nil
}

// Open selects a completed document and switches to the Q&A page.
func (d *Dashboard) Open(ctx context.Context, id api.DocumentID) error {
	doc, ok := d.store.Find(id)
	if !ok {
		return invalid(d.store, msgDocumentGone)
	}
	if !doc.ProcessingStatus.Actionable() {
		return invalid(d.store, msgNotReady+string(doc.ProcessingStatus))
	}
	d.store.Select(id)
	d.store.SetPage(state.PageQA)
	d.history.Refresh(ctx, id)
	return nil
}

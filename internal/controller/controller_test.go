package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docqa/internal/api"
	"docqa/internal/state"
)

var (
	alwaysYes = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	alwaysNo  = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
)

func setup(confirm Confirmer) (*Controllers, *state.Store, *api.MockService) {
	svc := new(api.MockService)
	st := state.New()
	return New(svc, st, confirm, Options{}, nil), st, svc
}

func seed(st *state.Store, docs ...api.Document) {
	op, err := st.Begin(state.OpList)
	if err != nil {
		panic(err)
	}
	op.ReplaceDocuments(docs, nil)
	op.End()
}

func doc(id string, status api.Status) api.Document {
	return api.Document{ID: api.DocumentID(id), Title: "doc " + id, ProcessingStatus: status}
}

func assertIdle(t *testing.T, st *state.Store) {
	t.Helper()
	if st.Snapshot().Loading {
		t.Error("expected loading to be false after the operation")
	}
}

func TestRefresh(t *testing.T) {
	c, st, svc := setup(nil)
	stats := &api.Statistics{TotalDocuments: 2, Completed: 1, Processing: 1}
	svc.On("ListDocuments", mock.Anything).
		Return(api.DocumentList{Documents: []api.Document{doc("1", api.StatusCompleted), doc("2", api.StatusProcessing)}, Statistics: stats}, nil).
		Once()

	require.NoError(t, c.Dashboard.Enter(context.Background()))

	snap := st.Snapshot()
	if len(snap.Documents) != 2 || snap.Statistics.TotalDocuments != 2 {
		t.Errorf("unexpected state %+v", snap)
	}
	assertIdle(t, st)
	svc.AssertExpectations(t)
}

func TestRefreshFailureKeepsDocuments(t *testing.T) {
	c, st, svc := setup(nil)
	seed(st, doc("1", api.StatusCompleted))
	svc.On("ListDocuments", mock.Anything).
		Return(api.DocumentList{}, &api.Error{Kind: api.KindApplication, Message: "Failed to fetch documents"}).
		Once()

	err := c.Dashboard.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	snap := st.Snapshot()
	if snap.Error != "Failed to fetch documents" {
		t.Errorf("unexpected error slot %q", snap.Error)
	}
	if len(snap.Documents) != 1 {
		t.Errorf("failed refresh must keep the previous collection, got %d docs", len(snap.Documents))
	}
	assertIdle(t, st)
	svc.AssertExpectations(t)
}

func TestRefreshWhileBusy(t *testing.T) {
	c, st, svc := setup(nil)
	op, _ := st.Begin(state.OpUpload)
	defer op.End()

	if err := c.Dashboard.Refresh(context.Background()); !errors.Is(err, state.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	svc.AssertNotCalled(t, "ListDocuments", mock.Anything)
}

func TestDeleteSelectedDocument(t *testing.T) {
	c, st, svc := setup(alwaysYes)
	seed(st, doc("1", api.StatusCompleted), doc("2", api.StatusCompleted))
	st.Select("1")
	st.SetPage(state.PageQA)

	svc.On("DeleteDocument", mock.Anything, api.DocumentID("1")).Return(nil).Once()
	svc.On("ListDocuments", mock.Anything).
		Return(api.DocumentList{Documents: []api.Document{doc("2", api.StatusCompleted)}}, nil).
		Once()

	require.NoError(t, c.Dashboard.Delete(context.Background(), "1"))

	snap := st.Snapshot()
	if snap.SelectedID != "" || snap.Selected != nil {
		t.Errorf("expected selection cleared, got %q", snap.SelectedID)
	}
	if snap.Page != state.PageDashboard {
		t.Errorf("expected dashboard, got %s", snap.Page)
	}
	if snap.Notice == nil || snap.Notice.Text != "Document deleted successfully" {
		t.Errorf("unexpected notice %+v", snap.Notice)
	}
	if len(snap.Documents) != 1 {
		t.Errorf("expected reloaded collection, got %d docs", len(snap.Documents))
	}
	assertIdle(t, st)
	svc.AssertExpectations(t)
}

func TestDeleteOtherDocumentKeepsSelection(t *testing.T) {
	c, st, svc := setup(alwaysYes)
	seed(st, doc("1", api.StatusCompleted), doc("2", api.StatusCompleted))
	st.Select("1")

	svc.On("DeleteDocument", mock.Anything, api.DocumentID("2")).Return(nil).Once()
	svc.On("ListDocuments", mock.Anything).
		Return(api.DocumentList{Documents: []api.Document{doc("1", api.StatusCompleted)}}, nil).
		Once()

	require.NoError(t, c.Dashboard.Delete(context.Background(), "2"))
	if st.SelectedID() != "1" {
		t.Errorf("expected selection kept, got %q", st.SelectedID())
	}
	svc.AssertExpectations(t)
}

func TestDeleteDeclined(t *testing.T) {
	c, st, svc := setup(alwaysNo)
	seed(st, doc("1", api.StatusCompleted))

	require.NoError(t, c.Dashboard.Delete(context.Background(), "1"))
	svc.AssertNotCalled(t, "DeleteDocument", mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "ListDocuments", mock.Anything)
	if len(st.Snapshot().Documents) != 1 {
		t.Error("declined delete must not change the collection")
	}
}

func TestDeleteConfirmError(t *testing.T) {
	boom := errors.New("closed")
	c, _, svc := setup(ConfirmFunc(func(context.Context, string) (bool, error) { return false, boom }))

	if err := c.Dashboard.Delete(context.Background(), "1"); !errors.Is(err, boom) {
		t.Errorf("expected confirm error, got %v", err)
	}
	svc.AssertNotCalled(t, "DeleteDocument", mock.Anything, mock.Anything)
}

func TestDeleteFailure(t *testing.T) {
	c, st, svc := setup(alwaysYes)
	seed(st, doc("1", api.StatusCompleted))
	svc.On("DeleteDocument", mock.Anything, api.DocumentID("1")).
		Return(&api.Error{Kind: api.KindTransport, Status: 404, Message: "Document not found"}).
		Once()

	if err := c.Dashboard.Delete(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
	snap := st.Snapshot()
	if snap.Error != "Document not found" {
		t.Errorf("unexpected error slot %q", snap.Error)
	}
	if snap.Notice != nil {
		t.Errorf("unexpected notice %+v", snap.Notice)
	}
	assertIdle(t, st)
	svc.AssertNotCalled(t, "ListDocuments", mock.Anything)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		id      api.DocumentID
		wantErr string
	}{
		{"completed", "1", ""},
		{"processing", "2", "Document is not ready. Status: processing"},
		{"unknown", "9", "The selected document is no longer available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, st, svc := setup(nil)
			seed(st, doc("1", api.StatusCompleted), doc("2", api.StatusProcessing))
			if tt.wantErr == "" {
				svc.On("FetchChatHistory", mock.Anything, tt.id).
					Return([]api.ChatEntry{{Question: "earlier"}}, nil).
					Once()
			}

			err := c.Dashboard.Open(context.Background(), tt.id)
			c.History.Wait()

			snap := st.Snapshot()
			if tt.wantErr != "" {
				if !IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if snap.Error != tt.wantErr {
					t.Errorf("unexpected error slot %q", snap.Error)
				}
				if snap.Page != state.PageDashboard {
					t.Errorf("expected to stay on dashboard, got %s", snap.Page)
				}
				svc.AssertNotCalled(t, "FetchChatHistory", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			if snap.Page != state.PageQA || snap.SelectedID != tt.id {
				t.Errorf("unexpected page %s / selection %q", snap.Page, snap.SelectedID)
			}
			if len(snap.ChatHistory) != 1 {
				t.Errorf("expected history loaded, got %+v", snap.ChatHistory)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAskValidation(t *testing.T) {
	tests := []struct {
		name     string
		selected api.DocumentID
		question string
		wantErr  string
	}{
		{"no selection", "", "what is this?", "Please select a document and enter a question"},
		{"empty question", "1", "", "Please select a document and enter a question"},
		{"whitespace question", "1", "   \n\t", "Please select a document and enter a question"},
		{"deleted selection", "7", "what?", "The selected document is no longer available"},
		{"not ready", "2", "what?", "Document is not ready. Status: processing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, st, svc := setup(nil)
			seed(st, doc("1", api.StatusCompleted), doc("2", api.StatusProcessing))
			if tt.selected != "" {
				st.Select(tt.selected)
			}
			c.QA.SetQuestion(tt.question)

			err := c.QA.Ask(context.Background())
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := st.Snapshot().Error; got != tt.wantErr {
				t.Errorf("got %q, want %q", got, tt.wantErr)
			}
			assertIdle(t, st)
			svc.AssertNotCalled(t, "AskQuestion", mock.Anything, mock.Anything)
		})
	}
}

func TestAsk(t *testing.T) {
	c, st, svc := setup(nil)
	seed(st, doc("1", api.StatusCompleted))
	st.Select("1")
	c.QA.SetQuestion("  What is the refund policy?  ")

	answer := &api.Answer{Answer: "30 days.", Confidence: 0.82, ResponseTime: 1.25, Sources: []api.Source{{ChunkID: 0, Content: "Refunds within 30 days", Similarity: 0.9}}}
	svc.On("AskQuestion", mock.Anything, api.AskRequest{DocumentID: "1", Question: "What is the refund policy?", NumChunks: DefaultNumChunks}).
		Return(answer, nil).
		Once()
	svc.On("FetchChatHistory", mock.Anything, api.DocumentID("1")).
		Return([]api.ChatEntry{{Question: "What is the refund policy?", Answer: "30 days."}}, nil).
		Once()

	require.NoError(t, c.QA.Ask(context.Background()))
	c.History.Wait()

	snap := st.Snapshot()
	require.NotNil(t, snap.Answer)
	if snap.Answer.Answer != "30 days." || len(snap.Answer.Sources) != 1 {
		t.Errorf("unexpected answer %+v", snap.Answer)
	}
	if len(snap.ChatHistory) != 1 {
		t.Errorf("expected refreshed history, got %+v", snap.ChatHistory)
	}
	assertIdle(t, st)
	svc.AssertExpectations(t)
}

func TestAskKeepsAnswerWhenHistoryFails(t *testing.T) {
	c, st, svc := setup(nil)
	seed(st, doc("1", api.StatusCompleted))
	st.Select("1")
	c.QA.SetQuestion("q")

	svc.On("AskQuestion", mock.Anything, mock.Anything).Return(&api.Answer{Answer: "a", Confidence: 0.5}, nil).Once()
	svc.On("FetchChatHistory", mock.Anything, api.DocumentID("1")).
		Return(nil, &api.Error{Kind: api.KindTransport, Message: "Network error: unable to reach the document service"}).
		Once()

	require.NoError(t, c.QA.Ask(context.Background()))
	c.History.Wait()

	snap := st.Snapshot()
	if snap.Answer == nil || snap.Answer.Answer != "a" {
		t.Errorf("answer must survive a history failure, got %+v", snap.Answer)
	}
	if snap.Error != "" {
		t.Errorf("history failure must not reach the error slot, got %q", snap.Error)
	}
	if snap.HistoryError == nil {
		t.Error("expected history error recorded")
	}
	svc.AssertExpectations(t)
}

func TestLateAnswerAfterNavigation(t *testing.T) {
	tests := []struct {
		name   string
		reopen api.DocumentID
	}{
		{"other document opened", "2"},
		{"same document reopened", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, st, svc := setup(nil)
			seed(st, doc("1", api.StatusCompleted), doc("2", api.StatusCompleted))
			st.Select("1")
			st.SetPage(state.PageQA)
			c.QA.SetQuestion("What are the main features?")

			release := make(chan struct{})
			svc.On("AskQuestion", mock.Anything, mock.MatchedBy(func(r api.AskRequest) bool { return r.DocumentID == "1" })).
				Run(func(mock.Arguments) { <-release }).
				Return(&api.Answer{Answer: "answer about doc 1", Confidence: 0.7}, nil).
				Once()
			svc.On("FetchChatHistory", mock.Anything, tt.reopen).Return([]api.ChatEntry{}, nil)

			done := make(chan error, 1)
			go func() { done <- c.QA.Ask(context.Background()) }()
			require.Eventually(t, st.Busy, time.Second, time.Millisecond)

			if err := c.Dashboard.Enter(context.Background()); !errors.Is(err, state.ErrBusy) {
				t.Errorf("expected refresh to be rejected while asking, got %v", err)
			}
			require.NoError(t, c.Dashboard.Open(context.Background(), tt.reopen))

			close(release)
			require.NoError(t, <-done)
			c.History.Wait()

			snap := st.Snapshot()
			if snap.SelectedID != tt.reopen || snap.Page != state.PageQA {
				t.Errorf("unexpected selection %q on page %s", snap.SelectedID, snap.Page)
			}
			if snap.Answer != nil {
				t.Errorf("late answer must be discarded, got %+v", snap.Answer)
			}
			assertIdle(t, st)
			svc.AssertNumberOfCalls(t, "FetchChatHistory", 1)
			svc.AssertExpectations(t)
		})
	}
}

func TestAskFailure(t *testing.T) {
	c, st, svc := setup(nil)
	seed(st, doc("1", api.StatusCompleted))
	st.Select("1")
	c.QA.SetQuestion("q")

	svc.On("AskQuestion", mock.Anything, mock.Anything).
		Return(nil, &api.Error{Kind: api.KindApplication, Message: "Document is not ready. Status: processing"}).
		Once()

	if err := c.QA.Ask(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	c.History.Wait()

	snap := st.Snapshot()
	if snap.Error != "Document is not ready. Status: processing" {
		t.Errorf("unexpected error slot %q", snap.Error)
	}
	if snap.Answer != nil {
		t.Errorf("expected no answer, got %+v", snap.Answer)
	}
	assertIdle(t, st)
	svc.AssertNotCalled(t, "FetchChatHistory", mock.Anything, mock.Anything)
}

func TestRecall(t *testing.T) {
	c, st, _ := setup(nil)
	st.Select("1")
	entries := make([]api.ChatEntry, 7)
	for i := range entries {
		entries[i] = api.ChatEntry{Question: strings.Repeat("q", i+1)}
	}
	st.ApplyHistory(st.BeginHistory("1"), entries)

	q, ok := c.QA.Recall(1)
	if !ok || q != "qq" {
		t.Errorf("got %q, %v", q, ok)
	}
	if st.Snapshot().Question != "qq" {
		t.Errorf("expected draft replaced, got %q", st.Snapshot().Question)
	}
	if _, ok := c.QA.Recall(state.HistoryWindow); ok {
		t.Error("entries beyond the history window are not recallable")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUploadValidation(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		c, st, svc := setup(nil)
		err := c.Upload.Submit(context.Background())
		if !IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if st.Snapshot().Error != "Please select a file" {
			t.Errorf("unexpected error slot %q", st.Snapshot().Error)
		}
		svc.AssertNotCalled(t, "UploadDocument", mock.Anything, mock.Anything)
	})

	t.Run("empty file", func(t *testing.T) {
		c, st, svc := setup(nil)
		_, err := c.Upload.Choose(writeFile(t, "empty.txt", ""))
		require.NoError(t, err)

		err = c.Upload.Submit(context.Background())
		if !IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		assertIdle(t, st)
		svc.AssertNotCalled(t, "UploadDocument", mock.Anything, mock.Anything)
	})
}

func TestChoose(t *testing.T) {
	c, st, _ := setup(nil)

	adv, err := c.Upload.Choose(writeFile(t, "notes.txt", "hello world"))
	require.NoError(t, err)
	if len(adv.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", adv.Warnings())
	}
	f := st.Snapshot().UploadFile
	require.NotNil(t, f)
	if f.Name != "notes.txt" || f.Size != 11 {
		t.Errorf("unexpected pending file %+v", f)
	}
	if !strings.HasPrefix(f.ContentType, "text/plain") {
		t.Errorf("unexpected content type %q", f.ContentType)
	}

	adv, err = c.Upload.Choose(writeFile(t, "tool.exe", "MZ"))
	require.NoError(t, err)
	if !adv.UnsupportedType {
		t.Error("expected advisory for unsupported extension")
	}

	if _, err := c.Upload.Choose(filepath.Join(t.TempDir(), "missing.pdf")); !IsValidation(err) {
		t.Errorf("expected validation error for missing file, got %v", err)
	}

	c.Upload.Clear()
	if st.Snapshot().UploadFile != nil {
		t.Error("expected pending file cleared")
	}
}

func TestAdvise(t *testing.T) {
	tests := []struct {
		name        string
		size        int64
		unsupported bool
		tooLarge    bool
	}{
		{"a.PDF", 10, false, false},
		{"a.md", AdvisoryMaxSize, false, false},
		{"a.docx", AdvisoryMaxSize + 1, false, true},
		{"a.csv", 1, true, false},
		{"noext", 1, true, false},
	}
	for _, tt := range tests {
		a := Advise(tt.name, tt.size)
		if a.UnsupportedType != tt.unsupported || a.TooLarge != tt.tooLarge {
			t.Errorf("%s/%d: got %+v", tt.name, tt.size, a)
		}
	}
}

func TestUploadSuccess(t *testing.T) {
	c, st, svc := setup(nil)
	st.SetPage(state.PageUpload)
	_, err := c.Upload.Choose(writeFile(t, "notes.txt", "hello world"))
	require.NoError(t, err)

	svc.On("UploadDocument", mock.Anything, mock.MatchedBy(func(u api.Upload) bool {
		return u.Filename == "notes.txt" && u.Body != nil
	})).Return(&api.UploadAck{
		DocumentID:       "5",
		ProcessingResult: api.ProcessingResult{Status: api.ProcessingSuccess, ChunksCreated: 4},
	}, nil).Once()
	svc.On("ListDocuments", mock.Anything).
		Return(api.DocumentList{Documents: []api.Document{doc("5", api.StatusCompleted)}}, nil).
		Once()

	require.NoError(t, c.Upload.Submit(context.Background()))

	snap := st.Snapshot()
	if snap.Page != state.PageDashboard {
		t.Errorf("expected dashboard, got %s", snap.Page)
	}
	if snap.UploadFile != nil {
		t.Error("expected pending file cleared")
	}
	if snap.Notice == nil || snap.Notice.Kind != state.NoticeSuccess ||
		snap.Notice.Text != "Document uploaded and processed successfully! Created 4 chunks." {
		t.Errorf("unexpected notice %+v", snap.Notice)
	}
	if len(snap.Documents) != 1 {
		t.Errorf("expected reloaded collection, got %d docs", len(snap.Documents))
	}
	assertIdle(t, st)
	svc.AssertExpectations(t)
}

func TestUploadProcessingFailure(t *testing.T) {
	c, st, svc := setup(nil)
	_, err := c.Upload.Choose(writeFile(t, "scan.pdf", "%PDF-1.4 broken"))
	require.NoError(t, err)

	svc.On("UploadDocument", mock.Anything, mock.Anything).Return(&api.UploadAck{
		DocumentID:       "6",
		ProcessingResult: api.ProcessingResult{Status: api.ProcessingError, Error: "no text found"},
	}, nil).Once()
	svc.On("ListDocuments", mock.Anything).Return(api.DocumentList{}, nil).Once()

	err = c.Upload.Submit(context.Background())
	if !errors.Is(err, ErrProcessingFailed) {
		t.Fatalf("expected ErrProcessingFailed, got %v", err)
	}

	snap := st.Snapshot()
	if snap.Notice == nil || snap.Notice.Kind != state.NoticeWarning {
		t.Errorf("expected warning notice, got %+v", snap.Notice)
	}
	if snap.Error != "" {
		t.Errorf("processing failure is a notice, not an error; got %q", snap.Error)
	}
	assertIdle(t, st)
	svc.AssertExpectations(t)
}

func TestUploadTransportFailure(t *testing.T) {
	c, st, svc := setup(nil)
	_, err := c.Upload.Choose(writeFile(t, "notes.txt", "hello"))
	require.NoError(t, err)

	svc.On("UploadDocument", mock.Anything, mock.Anything).
		Return(nil, &api.Error{Kind: api.KindTransport, Status: 413, Message: "Request failed with status code 413"}).
		Once()

	if err := c.Upload.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := st.Snapshot()
	if snap.Error != "Request failed with status code 413" {
		t.Errorf("unexpected error slot %q", snap.Error)
	}
	if snap.UploadFile == nil {
		t.Error("failed upload keeps the pending file for a retry")
	}
	assertIdle(t, st)
	svc.AssertNotCalled(t, "ListDocuments", mock.Anything)
}

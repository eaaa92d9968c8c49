package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"docqa/internal/api"
	"docqa/internal/controller"
	"docqa/internal/state"
)

// Frame is the widget state the renderers need in addition to the snapshot.
type Frame struct {
	Width    int
	Cursor   int
	Spinner  string
	Input    string // rendered path input or question textarea
	Advisory []string
}

func (f Frame) wrapWidth() int {
	if f.Width <= 0 {
		return 76
	}
	if f.Width < 24 {
		return 20
	}
	return f.Width - 4
}

// Render draws the whole screen for snap.
func Render(snap state.Snapshot, f Frame) string {
	var b strings.Builder
	b.WriteString(renderHeader(snap.Page))
	b.WriteString("\n\n")

	if banner := renderBanners(snap, f); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n\n")
	}

	switch snap.Page {
	case state.PageUpload:
		b.WriteString(renderUpload(snap, f))
	case state.PageQA:
		b.WriteString(renderQA(snap, f))
	default:
		b.WriteString(renderDashboard(snap, f))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpText(snap.Page)))
	return b.String()
}

func renderHeader(page state.Page) string {
	tabs := []struct {
		page  state.Page
		label string
	}{
		{state.PageDashboard, "Dashboard"},
		{state.PageUpload, "Upload"},
		{state.PageQA, "Q&A"},
	}
	parts := []string{titleStyle.Render("Document Intelligence Platform")}
	for _, t := range tabs {
		style := tabStyle
		if t.page == page {
			style = activeTabStyle
		}
		parts = append(parts, style.Render(t.label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderBanners draws the loading indicator, the error slot and the notice.
func renderBanners(snap state.Snapshot, f Frame) string {
	var lines []string
	if snap.Loading {
		label := "Processing..."
		if snap.Operation == state.OpAsk {
			label = "Thinking..."
		}
		lines = append(lines, statusBarStyle.Render(strings.TrimSpace(f.Spinner+" "+label)))
	}
	if snap.Error != "" {
		lines = append(lines, errorStyle.Render("Error: "+snap.Error)+mutedStyle.Render("  (ctrl+x to dismiss)"))
	}
	if snap.Notice != nil {
		style := successStyle
		if snap.Notice.Kind == state.NoticeWarning {
			style = warningStyle
		}
		lines = append(lines, style.Render(snap.Notice.Text)+mutedStyle.Render("  (ctrl+x to dismiss)"))
	}
	return strings.Join(lines, "\n")
}

// askAction is the label of a document's Q&A button and whether it is enabled.
func askAction(d api.Document) (string, bool) {
	if d.ProcessingStatus.Actionable() {
		return "Ask Questions", true
	}
	return "Processing...", false
}

func renderDashboard(snap state.Snapshot, f Frame) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Document Library"))
	if s := snap.Statistics; s != nil {
		stats := fmt.Sprintf("%d Total | %d Completed | %d Processing", s.TotalDocuments, s.Completed, s.Processing)
		if s.Failed > 0 {
			stats += fmt.Sprintf(" | %d Failed", s.Failed)
		}
		b.WriteString("  " + mutedStyle.Render(stats))
	}
	b.WriteString("\n\n")

	if len(snap.Documents) == 0 {
		b.WriteString("No documents uploaded yet\n")
		b.WriteString(mutedStyle.Render("Upload your first document to get started. Press u to upload."))
		b.WriteString("\n")
		return b.String()
	}

	width := f.wrapWidth()
	for i, d := range snap.Documents {
		b.WriteString(renderCard(d, i == f.Cursor, width))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCard(d api.Document, selected bool, width int) string {
	title := truncate.StringWithTail(d.Title, uint(max(width-6, 10)), "...")
	status := string(d.ProcessingStatus)
	statusStyle, ok := statusStyles[status]
	if !ok {
		statusStyle = mutedStyle
	}

	info := []string{
		labelStyle.Render("Type: ") + strings.ToUpper(d.DocumentType),
		labelStyle.Render("Size: ") + DocumentSize(d),
		labelStyle.Render("Status: ") + statusStyle.Render(status),
		labelStyle.Render("Uploaded: ") + FormatDate(d.UploadedAt),
	}
	if d.PagesCount != nil && *d.PagesCount > 0 {
		info = append(info, labelStyle.Render("Pages: ")+fmt.Sprint(*d.PagesCount))
	}

	label, enabled := askAction(d)
	button := disabledButtonStyle.Render(label)
	if enabled {
		button = buttonStyle.Render(label)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render(title),
		strings.Join(info, "  "),
		button,
	)
	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Width(width).Render(body)
}

func renderUpload(snap state.Snapshot, f Frame) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Upload Document"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Select Document (path)"))
	b.WriteString("\n")
	b.WriteString(f.Input)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Supported formats: %s\nMaximum size: 10MB\nCurrently optimized for: TXT files",
		strings.ToUpper(strings.ReplaceAll(strings.Join(controller.AcceptedExtensions, ", "), ".", "")))))
	b.WriteString("\n")

	if file := snap.UploadFile; file != nil {
		contentType := file.ContentType
		if contentType == "" {
			contentType = "Unknown"
		}
		b.WriteString("\n")
		b.WriteString(headingStyle.Render("File Preview"))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Name: ") + file.Name + "\n")
		b.WriteString(labelStyle.Render("Size: ") + FormatFileSize(file.Size) + "\n")
		b.WriteString(labelStyle.Render("Type: ") + contentType + "\n")
	}
	for _, w := range f.Advisory {
		b.WriteString(warningStyle.Render(w))
		b.WriteString("\n")
	}

	label := "Upload Document"
	if snap.Loading && snap.Operation == state.OpUpload {
		label = "Uploading..."
	}
	b.WriteString("\n")
	if snap.UploadFile != nil && !snap.Loading {
		b.WriteString(buttonStyle.Render(label))
	} else {
		b.WriteString(disabledButtonStyle.Render(label))
	}
	b.WriteString("\n")
	return b.String()
}

func renderQA(snap state.Snapshot, f Frame) string {
	var b strings.Builder
	width := f.wrapWidth()

	title := "no document selected"
	if snap.Selected != nil {
		title = snap.Selected.Title
	} else if snap.SelectedID != "" {
		title = "document no longer available"
	}
	b.WriteString(headingStyle.Render("Q&A: " + title))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Ask a Question"))
	b.WriteString("\n")
	b.WriteString(f.Input)
	b.WriteString("\n")

	if recent := snap.RecentQuestions(); len(recent) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Recent Questions"))
		b.WriteString(mutedStyle.Render("  (ctrl+r to reuse)"))
		b.WriteString("\n")
		for _, c := range recent {
			b.WriteString(wordwrap.String("Q: "+c.Question, width))
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render(fmt.Sprintf("   Confidence: %s | %s", Percent(c.ConfidenceScore), FormatDate(c.CreatedAt))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(renderAnswer(snap.Answer, width))
	return b.String()
}

func renderAnswer(a *api.Answer, width int) string {
	if a == nil {
		return mutedStyle.Render(strings.Join([]string{
			"Ask a question to see the answer here",
			"Try asking about:",
			`  "What are the main features?"`,
			`  "How does this work?"`,
			`  "What are the benefits?"`,
		}, "\n")) + "\n"
	}

	var b strings.Builder
	b.WriteString(wordwrap.String(a.Answer, width))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Confidence: ") + Percent(a.Confidence) + "\n")
	b.WriteString(labelStyle.Render("Response Time: ") + Seconds(a.ResponseTime) + "\n")

	if len(a.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Sources:"))
		b.WriteString("\n")
		for _, s := range a.Sources {
			b.WriteString(renderSource(s, width))
		}
	}
	return b.String()
}

func renderSource(s api.Source, width int) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Chunk %d", s.ChunkID+1)))
	b.WriteString("\n")
	b.WriteString("Similarity: " + Percent(s.Similarity) + "\n")
	if s.Hybrid() {
		b.WriteString(fmt.Sprintf("Semantic: %s | Keyword: %s\n", Percent(*s.SemanticScore), Percent(*s.KeywordScore)))
	}
	b.WriteString(mutedStyle.Render(wordwrap.String(s.Content, width)))
	b.WriteString("\n")
	return b.String()
}

func helpText(page state.Page) string {
	switch page {
	case state.PageUpload:
		return "enter: choose file • ctrl+s: upload • esc: back • ctrl+c: quit"
	case state.PageQA:
		return "ctrl+s: ask • ctrl+r: reuse recent question • esc: back • ctrl+c: quit"
	default:
		return "↑/↓: move • enter: ask questions • d: delete • r: refresh • u: upload • q: quit"
	}
}

func renderConfirm(prompt string) string {
	return modalStyle.Render(prompt + "\n\n" + labelStyle.Render("[y] yes   [n] no"))
}

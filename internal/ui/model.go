// Package ui is the terminal front end. Render is a pure function of a state
// snapshot; Model wires keys to controllers and re-renders on store changes.
package ui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/controller"
	"docqa/internal/state"
)

type storeChangedMsg struct{}

type opDoneMsg struct {
	err error
}

type Model struct {
	ctx     context.Context
	store   *state.Store
	ctl     *controller.Controllers
	confirm *PromptConfirmer
	changes <-chan struct{}
	log     *slog.Logger

	snap     state.Snapshot
	cursor   int
	recall   int
	advisory []string
	prompt   *confirmRequest

	width, height int
	spinner       spinner.Model
	path          textinput.Model
	question      textarea.Model
}

// NewModel builds the program model. confirm must be the Confirmer the
// controllers were built with.
func NewModel(ctx context.Context, st *state.Store, ctl *controller.Controllers, confirm *PromptConfirmer, log *slog.Logger) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	ti := textinput.New()
	ti.Placeholder = "/path/to/document.txt"
	ti.CharLimit = 4096

	ta := textarea.New()
	ta.Placeholder = "Enter your question about the document..."
	ta.CharLimit = 1000
	ta.ShowLineNumbers = false
	ta.SetHeight(4)

	return Model{
		ctx:      ctx,
		store:    st,
		ctl:      ctl,
		confirm:  confirm,
		changes:  st.Subscribe(),
		log:      log,
		snap:     st.Snapshot(),
		spinner:  sp,
		path:     ti,
		question: ta,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForChange(m.changes),
		m.confirm.waitForPrompt(),
		m.run(m.ctl.Dashboard.Refresh),
	)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

// run executes a controller call off the render loop.
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.path.Width = max(msg.Width-8, 20)
		m.question.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case storeChangedMsg:
		cmd := m.sync(m.store.Snapshot())
		return m, tea.Batch(cmd, waitForChange(m.changes))

	case opDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, state.ErrBusy) && m.log != nil {
			m.log.Debug("operation finished with error", "err", msg.err)
		}
		return m, nil

	case confirmRequestMsg:
		req := confirmRequest(msg)
		m.prompt = &req
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

// sync adopts a new snapshot, moving focus when the page changed.
func (m *Model) sync(snap state.Snapshot) tea.Cmd {
	prev := m.snap.Page
	m.snap = snap
	if m.cursor >= len(snap.Documents) {
		m.cursor = max(len(snap.Documents)-1, 0)
	}
	if snap.Question != m.question.Value() {
		m.question.SetValue(snap.Question)
	}
	if snap.Page == prev {
		return nil
	}

	m.path.Blur()
	m.question.Blur()
	switch snap.Page {
	case state.PageUpload:
		m.advisory = nil
		m.path.Reset()
		return m.path.Focus()
	case state.PageQA:
		m.recall = 0
		return m.question.Focus()
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.prompt != nil {
		switch key {
		case "y", "Y", "enter":
			return m.answerPrompt(true)
		case "n", "N", "esc", "ctrl+c":
			return m.answerPrompt(false)
		}
		return m, nil
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+x":
		m.store.DismissError()
		m.store.DismissNotice()
		return m, nil
	}

	switch m.snap.Page {
	case state.PageUpload:
		return m.uploadKey(msg)
	case state.PageQA:
		return m.qaKey(msg)
	default:
		return m.dashboardKey(key)
	}
}

func (m Model) answerPrompt(ok bool) (tea.Model, tea.Cmd) {
	m.prompt.reply <- ok
	m.prompt = nil
	return m, m.confirm.waitForPrompt()
}

func (m Model) dashboardKey(key string) (tea.Model, tea.Cmd) {
	docs := m.snap.Documents
	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(docs)-1 {
			m.cursor++
		}
	case "u":
		m.ctl.Upload.Enter()
	case "r":
		if !m.snap.Loading {
			return m, m.run(m.ctl.Dashboard.Refresh)
		}
	case "enter", "a":
		if m.cursor < len(docs) && !m.snap.Loading {
			id := docs[m.cursor].ID
			return m, m.run(func(ctx context.Context) error { return m.ctl.Dashboard.Open(ctx, id) })
		}
	case "d":
		if m.cursor < len(docs) && !m.snap.Loading {
			id := docs[m.cursor].ID
			return m, m.run(func(ctx context.Context) error { return m.ctl.Dashboard.Delete(ctx, id) })
		}
	}
	return m, nil
}

func (m Model) uploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.run(m.ctl.Dashboard.Enter)
	case "enter":
		adv, err := m.ctl.Upload.Choose(m.path.Value())
		m.advisory = nil
		if err == nil {
			m.advisory = adv.Warnings()
		}
		return m, nil
	case "ctrl+s":
		if !m.snap.Loading {
			return m, m.run(m.ctl.Upload.Submit)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m Model) qaKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.run(m.ctl.Dashboard.Enter)
	case "ctrl+s":
		if !m.snap.Loading {
			return m, m.run(m.ctl.QA.Ask)
		}
		return m, nil
	case "ctrl+r":
		if n := len(m.snap.RecentQuestions()); n > 0 {
			if q, ok := m.ctl.QA.Recall(m.recall % n); ok {
				m.question.SetValue(q)
			}
			m.recall++
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.question, cmd = m.question.Update(msg)
	m.ctl.QA.SetQuestion(m.question.Value())
	return m, cmd
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	cmds = append(cmds, cmd)
	m.question, cmd = m.question.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	frame := Frame{
		Width:    m.width,
		Cursor:   m.cursor,
		Spinner:  m.spinner.View(),
		Advisory: m.advisory,
	}
	switch m.snap.Page {
	case state.PageUpload:
		frame.Input = m.path.View()
	case state.PageQA:
		frame.Input = m.question.View()
	}

	view := Render(m.snap, frame)
	if m.prompt != nil {
		modal := renderConfirm(m.prompt.prompt)
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
		}
		return view + "\n\n" + modal
	}
	return view
}

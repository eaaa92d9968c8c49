package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

type confirmRequest struct {
	prompt string
	reply  chan bool
}

type confirmRequestMsg confirmRequest

// PromptConfirmer asks the user yes/no through the running program. Confirm
// blocks the calling goroutine until the user answers or ctx ends.
type PromptConfirmer struct {
	requests chan confirmRequest
}

func NewPromptConfirmer() *PromptConfirmer {
	return &PromptConfirmer{requests: make(chan confirmRequest)}
}

func (p *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	req := confirmRequest{prompt: prompt, reply: make(chan bool, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// waitForPrompt delivers the next confirmation request to the program.
func (p *PromptConfirmer) waitForPrompt() tea.Cmd {
	return func() tea.Msg {
		return confirmRequestMsg(<-p.requests)
	}
}

package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papercomputeco/querybot/conversation"
)

// Run shows the chat screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, store *conversation.Store, renderer *Renderer, options Options, programOpts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	}, programOpts...)

	p := tea.NewProgram(New(ctx, store, renderer, options), opts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

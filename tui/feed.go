package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papercomputeco/querybot/conversation"
)

// StateMsg carries a conversation snapshot into the Bubble Tea event loop.
type StateMsg struct {
	State conversation.State
}

// Feed bridges store notifications into the event loop. Only the newest
// snapshot is kept, so Push never blocks the store.
type Feed struct {
	mu     sync.Mutex
	latest conversation.State
	has    bool
	signal chan struct{}
}

func NewFeed() *Feed {
	return &Feed{signal: make(chan struct{}, 1)}
}

// Push records s if it is at least as new as the last one seen.
func (f *Feed) Push(s conversation.State) {
	f.mu.Lock()
	if !f.has || s.Version >= f.latest.Version {
		f.latest = s
		f.has = true
	}
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Next waits for the next snapshot. It yields nil once ctx is done.
func (f *Feed) Next(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-f.signal:
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		return StateMsg{State: f.latest}
	}
}

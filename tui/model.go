// Package tui is the full-screen chat front end for a conversation.Store.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/querybot/conversation"
)

const (
	idlePlaceholder = "Type your message..."
	busyPlaceholder = "Waiting for a reply..."
	emptyTranscript = "No messages yet"
	inputHeight     = 3
)

// Options tune the chat view.
type Options struct {
	// Title shown in the header
	Title string

	// Endpoint shown next to the title, usually the server base URL
	Endpoint string
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	store    *conversation.Store
	feed     *Feed
	renderer *Renderer
	options  Options

	state     conversation.State
	showDebug bool
	notice    string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	width  int
	height int
	ready  bool
}

// New builds a Model bound to store. The store's notifications are delivered
// to the model for as long as ctx lives.
func New(ctx context.Context, store *conversation.Store, renderer *Renderer, options Options) Model {
	if options.Title == "" {
		options.Title = "QueryBot"
	}

	input := textarea.New()
	input.Placeholder = idlePlaceholder
	input.ShowLineNumbers = false
	input.Prompt = ""
	input.CharLimit = 4000
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	input.Focus()

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = pendingStyle

	feed := NewFeed()
	store.Subscribe(feed.Push)

	m := Model{
		ctx:      ctx,
		store:    store,
		feed:     feed,
		renderer: renderer,
		options:  options,
		input:    input,
		spinner:  spin,
		help:     help.New(),
		keys:     defaultKeyMap(),
		viewport: vp,
	}
	m.state = store.State()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.feed.Next(m.ctx))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case StateMsg:
		cmds = append(cmds, m.applyState(msg.State), m.feed.Next(m.ctx))
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Send):
			return m, m.submit()

		case key.Matches(msg, m.keys.Clear):
			m.store.Reset()
			m.notice = ""
			return m, m.applyState(m.store.State())

		case key.Matches(msg, m.keys.Debug):
			m.showDebug = !m.showDebug
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit hands the input to the store. Blank input and input typed while a
// reply is pending are ignored.
func (m *Model) submit() tea.Cmd {
	if m.state.Pending {
		return nil
	}

	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	_, err := m.store.Submit(m.ctx, text)
	switch {
	case err == nil:
		m.input.Reset()
		m.notice = ""
	case errors.Is(err, conversation.ErrBusy), errors.Is(err, conversation.ErrClosed):
		m.notice = err.Error()
	default:
		m.notice = fmt.Sprintf("could not send: %v", err)
	}

	return m.applyState(m.store.State())
}

// applyState adopts s unless a newer snapshot was already applied, toggles
// the input with the pending flag and scrolls to the newest message.
func (m *Model) applyState(s conversation.State) tea.Cmd {
	if s.Version < m.state.Version {
		return nil
	}
	m.state = s

	var cmd tea.Cmd
	if s.Pending {
		m.input.Blur()
		m.input.Placeholder = busyPlaceholder
	} else {
		m.input.Placeholder = idlePlaceholder
		cmd = m.input.Focus()
	}

	m.refresh()
	return cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.input.SetWidth(max(width-2, 10))
	m.help.Width = width

	// header + status + bordered input + help
	chrome := 1 + 1 + (inputHeight + 2) + 1
	m.viewport.Width = width
	m.viewport.Height = max(height-chrome, 1)

	_ = m.renderer.SetWidth(max(width-4, 10))
	m.ready = true
	m.refresh()
}

// refresh re-renders the transcript into the viewport and follows the tail.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	if len(m.state.Messages) == 0 {
		return lipgloss.Place(m.viewport.Width, m.viewport.Height,
			lipgloss.Center, lipgloss.Center, emptyStyle.Render(emptyTranscript))
	}

	blocks := make([]string, 0, len(m.state.Messages))
	for _, msg := range m.state.Messages {
		blocks = append(blocks, m.renderMessage(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg conversation.Message) string {
	if msg.Sender == conversation.SenderUser {
		width := min(lipgloss.Width(msg.Text)+2, max(m.width*3/4, 10))
		bubble := userBubbleStyle.Width(width).Render(msg.Text)
		block := lipgloss.JoinVertical(lipgloss.Right, userLabelStyle.Render("You"), bubble)
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
	}

	var b strings.Builder
	b.WriteString(botLabelStyle.Render("QueryBot"))
	b.WriteString("\n")
	b.WriteString(m.renderer.Markdown(msg.Hash, msg.Text))

	if m.showDebug && msg.DebugInfo != nil && msg.DebugInfo.SQLQuery != "" {
		b.WriteString("\n")
		b.WriteString(debugStyle.Render(fmt.Sprintf("sql: %s (%d rows)", msg.DebugInfo.SQLQuery, msg.RowCount)))
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := headerStyle.Render(m.options.Title)
	endpoint := ""
	if m.options.Endpoint != "" {
		room := m.width - lipgloss.Width(title) - 1
		if room > 0 {
			endpoint = endpointStyle.Render(ansi.Truncate(m.options.Endpoint, room, "…"))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, endpoint)

	// The spinner lives outside the viewport so its ticks never touch the
	// transcript or its scroll position.
	status := ""
	switch {
	case m.state.Pending:
		status = statusStyle.Render(m.spinner.View() + pendingStyle.Render(" Thinking..."))
	case m.notice != "":
		status = noticeStyle.Render(ansi.Truncate(m.notice, max(m.width-2, 1), "…"))
	}

	box := inputStyle
	if m.state.Pending {
		box = inputBusyStyle
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		box.Render(m.input.View()),
		m.help.View(m.keys),
	)
}

// State is the snapshot the model last rendered.
func (m Model) State() conversation.State {
	return m.state
}

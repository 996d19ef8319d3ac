package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/events"
	"docqa/internal/rag"
)

// ChatPort is the TUI-facing subset of the query engine.
type ChatPort interface {
	QueryStream(ctx context.Context, question string) <-chan rag.StreamEvent
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	engine   ChatPort
	input    textinput.Model
	viewport viewport.Model

	transcript string
	pending    string // assistant answer being streamed
	streaming  bool
	status     string
	ready      bool

	stream <-chan rag.StreamEvent
	notify <-chan events.Event
}

// New creates a new chat model. notifications may be nil when no
// background indexing runs in this session.
func New(engine ChatPort, notifications <-chan events.Event) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents, or /help"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		engine:   engine,
		input:    ti,
		viewport: vp,
		status:   "Ready.",
		notify:   notifications,
	}
}

// Init starts the cursor blink and, if present, the notification pump.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.notify != nil {
		cmds = append(cmds, waitNotification(m.notify))
	}
	return tea.Batch(cmds...)
}

type streamMsg struct {
	event rag.StreamEvent
	ok    bool
}

type notifyMsg struct {
	event events.Event
	ok    bool
}

func waitStream(ch <-chan rag.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return streamMsg{event: ev, ok: ok}
	}
}

func waitNotification(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return notifyMsg{event: ev, ok: ok}
	}
}

// Update handles key, window, stream, and notification events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.streaming {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			m.input.SetValue("")
			m.transcript += userStyle.Render("you: ") + q + "\n"
			m.pending = ""
			m.streaming = true
			m.status = "Thinking..."
			m.stream = m.engine.QueryStream(context.Background(), q)
			m.refresh()
			return m, waitStream(m.stream)
		}

	case streamMsg:
		if !msg.ok {
			m.finishAnswer()
			return m, nil
		}
		switch msg.event.Type {
		case rag.EventSources:
			names := make([]string, 0, len(msg.event.Sources))
			for _, s := range msg.event.Sources {
				names = append(names, s.FileName)
			}
			m.status = "Sources: " + strings.Join(names, ", ")
		case rag.EventChunk:
			m.pending += msg.event.Text
			m.refresh()
		case rag.EventError:
			m.pending += errorStyle.Render("error: " + msg.event.Err.Error())
			m.finishAnswer()
			return m, waitStream(m.stream) // drain until close
		case rag.EventDone:
			m.finishAnswer()
		}
		return m, waitStream(m.stream)

	case notifyMsg:
		if !msg.ok {
			m.notify = nil
			return m, nil
		}
		switch msg.event.Type {
		case events.TypeIndexProgress:
			m.status = fmt.Sprintf("Indexing %d/%d...", msg.event.Current, msg.event.Total)
		case events.TypeIndexComplete:
			m.status = fmt.Sprintf("Indexing complete (%d files).", msg.event.Current)
		case events.TypeError:
			m.status = "Indexing error: " + msg.event.Message
		}
		return m, waitNotification(m.notify)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// finishAnswer commits the streamed answer to the transcript.
func (m *Model) finishAnswer() {
	if m.pending != "" {
		m.transcript += assistantStyle.Render("docqa: ") + m.pending + "\n\n"
		m.pending = ""
	}
	m.streaming = false
	if m.status == "Thinking..." {
		m.status = "Ready."
	}
	m.refresh()
}

func (m *Model) refresh() {
	content := m.transcript
	if m.pending != "" {
		content += assistantStyle.Render("docqa: ") + m.pending
	}
	if content == "" {
		content = "Ask a question about your indexed documents."
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docqa chat")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

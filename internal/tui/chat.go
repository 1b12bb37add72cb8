// Package tui is the terminal chat surface: a transcript, an input line with
// live autocomplete, and the quick-question shortcuts.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yangwenmai/storeops/internal/chat"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/suggest"
)

// Messages
type (
	// turnMsg signals that the session appended a turn.
	turnMsg struct{ turn model.ConversationTurn }

	// blurMsg closes the suggestion list once the blur grace has passed.
	// Stale ticks carry an old seq and are ignored.
	blurMsg struct{ seq int }
)

// Styles
var (
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	aiStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	typingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	suggestStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("212")).Bold(true)
	listStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62"))
)

// Model is the bubbletea model of the chat screen.
type Model struct {
	session *chat.Session
	nav     *suggest.Navigator
	input   textinput.Model
	quick   []string

	turns   []model.ConversationTurn
	blurSeq int
	err     error
	width   int
}

// New creates a chat model over session. prompts feed the autocomplete list;
// quick are the canned questions offered while the input is empty.
func New(session *chat.Session, prompts []model.SuggestionEntry, quick []string, limit int) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about inventory, sales, layout..."
	ti.CharLimit = 280
	ti.Width = 60
	ti.Focus()

	return Model{
		session: session,
		nav:     suggest.New(prompts, limit),
		input:   ti,
		quick:   quick,
		turns:   session.Transcript(),
	}
}

// Init starts the cursor blink and the turn listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenForTurn(m.session.Turns()))
}

// listenForTurn waits for the next turn appended by the session.
func listenForTurn(ch <-chan model.ConversationTurn) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		turn, ok := <-ch
		if !ok {
			return nil
		}
		return turnMsg{turn: turn}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 10 {
			m.input.Width = msg.Width - 6
		}
		return m, nil

	case turnMsg:
		m.turns = m.session.Transcript()
		return m, listenForTurn(m.session.Turns())

	case blurMsg:
		if msg.seq == m.blurSeq && !m.input.Focused() {
			m.nav.Close()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.blurSeq++
		if m.input.Focused() {
			m.input.Blur()
			seq := m.blurSeq
			return m, tea.Tick(suggest.BlurGrace, func(_ time.Time) tea.Msg { return blurMsg{seq: seq} })
		}
		return m, m.input.Focus()
	}

	if !m.input.Focused() {
		return m, nil
	}

	switch msg.String() {
	case "down":
		m.nav.Press(suggest.KeyDown)
		return m, nil
	case "up":
		m.nav.Press(suggest.KeyUp)
		return m, nil
	case "esc":
		if m.nav.State() == suggest.StateClosed {
			return m, tea.Quit
		}
		m.nav.Press(suggest.KeyEscape)
		return m, nil
	case "enter":
		out := m.nav.Press(suggest.KeyEnter)
		switch out.Action {
		case suggest.ActionCommit:
			m.input.SetValue(out.Text)
			m.input.CursorEnd()
		case suggest.ActionSubmit:
			m.submit(out.Text)
		}
		return m, nil
	case "alt+1", "alt+2", "alt+3", "alt+4", "alt+5":
		i := int(msg.Runes[0] - '1')
		if text, ok := m.nav.Select(i); ok {
			m.input.SetValue(text)
			m.input.CursorEnd()
		} else if m.input.Value() == "" && i < len(m.quick) {
			m.submit(m.quick[i])
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.nav.SetInput(v)
	}
	return m, cmd
}

func (m *Model) submit(text string) {
	m.err = nil
	if _, err := m.session.Submit(text); err != nil {
		if !errors.Is(err, chat.ErrEmptyMessage) {
			m.err = err
		}
		return
	}
	m.input.SetValue("")
	m.nav.SetInput("")
	m.turns = m.session.Transcript()
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder

	for _, t := range m.turns {
		b.WriteString(renderTurn(t))
		b.WriteString("\n\n")
	}
	if m.session.Pending() > 0 {
		b.WriteString(typingStyle.Render("Assistant is typing..."))
		b.WriteString("\n\n")
	}

	if len(m.turns) <= 1 && len(m.quick) > 0 && m.input.Value() == "" {
		b.WriteString(helpStyle.Render("Quick questions:"))
		b.WriteString("\n")
		for i, q := range m.quick {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  alt+%d  %s\n", i+1, q)
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if list := m.nav.Suggestions(); len(list) > 0 {
		var rows []string
		for i, s := range list {
			if i == m.nav.Selected() {
				rows = append(rows, selectedStyle.Render("› "+s.Text))
			} else {
				rows = append(rows, suggestStyle.Render(s.Text))
			}
		}
		b.WriteString(listStyle.Render(strings.Join(rows, "\n")))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter send • ↑/↓ suggestions • tab focus • esc close/quit"))
	return b.String()
}

func renderTurn(t model.ConversationTurn) string {
	name := aiStyle.Render("Assistant")
	if t.Sender == model.SenderUser {
		name = userStyle.Render("You")
	}
	return fmt.Sprintf("%s %s\n%s", name, timeStyle.Render(t.Timestamp), t.Text)
}

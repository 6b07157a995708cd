// Package repl implements the interactive refinery session: a bubbletea
// program wrapping a session.Session, with a viewport for the transcript
// and a single-line input for theory-script commands. Lines starting with
// a colon are REPL builtins; everything else is parsed and executed as a
// script command against the live theory.
package repl

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/session"
)

// Styles collects the lipgloss styles the transcript renders with.
type Styles struct {
	Title   lipgloss.Style
	Prompt  lipgloss.Style
	Echo    lipgloss.Style
	Output  lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Input   lipgloss.Style
}

// DefaultStyles returns the standard REPL color scheme.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")),
		Echo:    lipgloss.NewStyle().Bold(true),
		Output:  lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB454")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E5484D")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
	}
}

const prompt = "refinery> "

// entry is one executed line and what it produced.
type entry struct {
	input    string
	output   []string
	warnings []string
	err      error
	markdown string // pre-rendered builtin output (help)
}

// Model is the bubbletea model for the REPL.
type Model struct {
	sess   *session.Session
	dbPath string
	styles Styles

	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer

	history []entry
	recall  []string // submitted lines, for up/down recall
	recallI int

	width  int
	height int
	ready  bool
}

// New builds a REPL around an existing session. dbPath is only used for
// the greeting; persistence goes through the session itself.
func New(sess *session.Session, dbPath string) Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "constants f :: nat => nat   (:help for commands)"
	ti.Focus()

	return Model{
		sess:   sess,
		dbPath: dbPath,
		styles: DefaultStyles(),
		input:  ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Run starts the interactive session and blocks until the user quits.
func Run(sess *session.Session, dbPath string) error {
	p := tea.NewProgram(New(sess, dbPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) resize(w, h int) {
	m.width = w
	m.height = h

	m.input.Width = w - 6
	inputHeight := 3 // rounded border adds two rows
	headerHeight := 1
	footerHeight := 1
	vpHeight := h - inputHeight - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(w, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = vpHeight
	}

	wrap := w - 4
	if wrap < 20 {
		wrap = 20
	}
	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)

	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// push appends an entry and scrolls the transcript to it.
func (m *Model) push(e entry) {
	m.history = append(m.history, e)
	if m.ready {
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
	}
}

// safeRenderMarkdown renders markdown with panic recovery; glamour can
// panic on odd terminal widths, in which case the raw text is good enough.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

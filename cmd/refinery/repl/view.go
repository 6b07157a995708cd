package repl

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Title.Render(" refinery ") +
		m.styles.Muted.Render(fmt.Sprintf("  theory v%d  db %s", m.sess.Theory().Version(), m.dbPath))

	inputArea := m.styles.Input.Width(m.width - 2).Render(
		m.styles.Prompt.Render(prompt) + m.input.View())

	footer := m.styles.Muted.Render(" :help commands  :quit leave  pgup/pgdn scroll")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.viewport.View(),
		inputArea,
		footer,
	)
}

func (m Model) renderHistory() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Muted.Render(greeting))
	sb.WriteString("\n")

	for _, e := range m.history {
		sb.WriteString(m.styles.Prompt.Render(prompt))
		sb.WriteString(m.styles.Echo.Render(e.input))
		sb.WriteString("\n")

		if e.markdown != "" {
			sb.WriteString(m.safeRenderMarkdown(e.markdown))
		}
		for _, line := range e.output {
			sb.WriteString(m.styles.Output.Render(line))
			sb.WriteString("\n")
		}
		for _, w := range e.warnings {
			sb.WriteString(m.styles.Warning.Render("warning: " + w))
			sb.WriteString("\n")
		}
		if e.err != nil {
			sb.WriteString(m.styles.Error.Render("error: " + e.err.Error()))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

const greeting = `theory commands run as typed; :help lists everything.`

const helpText = `# refinery commands

Theory-script commands, identical to script files:

| command | effect |
|---------|--------|
| ` + "`constants NAME :: TYPE`" + ` | declare a constant |
| ` + "`axiom NAME: PROP`" + ` | assert a fact |
| ` + "`extraction_mode MODE pattern \"PAT\" schema FACT [discharge TAC]`" + ` | register an extraction rule |
| ` + "`concrete_definition NAME [for x..] uses FACT [is \"PAT\"] [extract MODE..]`" + ` | name a synthesized constant |
| ` + "`extract_equations BASE from FACT [modes M..]`" + ` | derive code equations |
| ` + "`cd_pattern add\\|del \"PAT\"`" + ` | edit default conclusion patterns |
| ` + "`intro_rule FACT`" + ` / ` + "`solve_rule FACT`" + ` | feed the goal solver |
| ` + "`tactic_plugin NAME FILE`" + ` | load a discharge-strategy plugin |
| ` + "`show QNAME`" + ` | print registered facts |

REPL builtins:

- ` + "`:modes`" + ` — registered extraction modes and their rules
- ` + "`:patterns`" + ` — installed conclusion patterns
- ` + "`:tactics`" + ` — available discharge tactics
- ` + "`:trace [GOAL]`" + ` — audit stream, or one datalog goal, e.g. ` + "`:trace defined(C, /impl, P)`" + `
- ` + "`:save`" + ` — persist the theory to the configured database
- ` + "`:quit`" + ` — leave (Esc and Ctrl+C work too)

Up/Down recall input history; PgUp/PgDn scroll the transcript.
`

package repl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/syntax"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" {
				return m, nil
			}
			m.recall = append(m.recall, text)
			m.recallI = len(m.recall)
			return m.submit(text)

		case tea.KeyUp:
			if len(m.recall) > 0 && m.recallI > 0 {
				m.recallI--
				m.input.SetValue(m.recall[m.recallI])
				m.input.CursorEnd()
			}
			return m, nil

		case tea.KeyDown:
			if m.recallI < len(m.recall)-1 {
				m.recallI++
				m.input.SetValue(m.recall[m.recallI])
				m.input.CursorEnd()
			} else {
				m.recallI = len(m.recall)
				m.input.Reset()
			}
			return m, nil

		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case tea.KeyHome:
			m.viewport.GotoTop()
			return m, nil

		case tea.KeyEnd:
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit executes one line, either a :builtin or a theory-script command.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(text, ":") {
		return m.execBuiltin(text)
	}

	e := entry{input: text}
	cmds, err := syntax.ParseScript("repl", text)
	if err != nil {
		e.err = err
		m.push(e)
		return m, nil
	}
	for _, c := range cmds {
		out, err := m.sess.Execute(context.Background(), c)
		if err != nil {
			e.err = err
			break
		}
		e.output = append(e.output, out.Output...)
		for _, w := range out.Warnings {
			e.warnings = append(e.warnings, w.String())
		}
	}
	m.push(e)
	return m, nil
}

func (m Model) execBuiltin(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.TrimPrefix(text, ":"))
	if len(fields) == 0 {
		m.push(entry{input: text, err: fmt.Errorf("empty command, try :help")})
		return m, nil
	}
	name, args := fields[0], fields[1:]
	e := entry{input: text}

	switch name {
	case "quit", "q", "exit":
		return m, tea.Quit

	case "help", "h":
		e.markdown = helpText

	case "modes":
		modes := m.sess.Theory().Modes()
		names := modes.Names()
		if len(names) == 0 {
			e.output = append(e.output, "no extraction modes registered")
			break
		}
		for _, n := range names {
			rs, _ := modes.Lookup(n)
			e.output = append(e.output, fmt.Sprintf("%s: %d rule(s)", n, rs.Len()))
			for _, line := range rs.Describe() {
				e.output = append(e.output, "  "+line)
			}
		}

	case "patterns":
		for _, p := range m.sess.Theory().Patterns().List() {
			e.output = append(e.output, term.String(p))
		}
		if len(e.output) == 0 {
			e.output = append(e.output, "no conclusion patterns installed")
		}

	case "tactics":
		e.output = append(e.output, strings.Join(m.sess.Tactics().Names(), ", "))

	case "trace":
		e = m.execTrace(e, args)

	case "save":
		if err := m.sess.Save(context.Background()); err != nil {
			e.err = err
			break
		}
		e.output = append(e.output, fmt.Sprintf("saved theory to %s", m.dbPath))

	default:
		e.err = fmt.Errorf("unknown command %q, try :help", ":"+name)
	}

	m.push(e)
	return m, nil
}

// execTrace prints the audit stream, or evaluates a datalog goal when one
// is given: ":trace defined(C, /impl, P)".
func (m Model) execTrace(e entry, args []string) entry {
	rec := m.sess.Recorder()
	if len(args) > 0 {
		rows, err := rec.Query(context.Background(), strings.Join(args, " "))
		if err != nil {
			e.err = err
			return e
		}
		for _, row := range rows {
			e.output = append(e.output, formatRow(row))
		}
		e.output = append(e.output, fmt.Sprintf("%d row(s)", len(rows)))
		return e
	}

	total := 0
	for _, pred := range rec.Predicates() {
		facts, err := rec.Facts(pred)
		if err != nil {
			e.err = err
			return e
		}
		e.output = append(e.output, facts...)
		total += len(facts)
	}
	if total == 0 {
		e.output = append(e.output, "audit trail is empty")
	}
	return e
}

func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
	}
	return strings.Join(parts, "  ")
}

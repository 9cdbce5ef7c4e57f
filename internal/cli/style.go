package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/sandbox"
)

// Styler colors console output. A disabled Styler returns text unchanged.
type Styler struct {
	enabled bool
	title   lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	err     lipgloss.Style
	system  lipgloss.Style
}

// NewStyler enables styling when w is a terminal.
func NewStyler(w io.Writer) *Styler {
	return newStyler(isTerminal(w))
}

func newStyler(enabled bool) *Styler {
	return &Styler{
		enabled: enabled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		ok:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		fail:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		system:  lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (s *Styler) render(style lipgloss.Style, text string) string {
	if s == nil || !s.enabled {
		return text
	}
	return style.Render(text)
}

// Title styles headings.
func (s *Styler) Title(text string) string { return s.render(s.title, text) }

// Dim styles secondary text.
func (s *Styler) Dim(text string) string { return s.render(s.dim, text) }

// OK styles success messages.
func (s *Styler) OK(text string) string { return s.render(s.ok, text) }

// Fail styles failure messages.
func (s *Styler) Fail(text string) string { return s.render(s.fail, text) }

// Line renders one interpreter output line as displayed in the console.
func (s *Styler) Line(l sandbox.Line) string {
	text := l.String()
	switch l.Kind {
	case sandbox.LineError:
		return s.render(s.err, text)
	case sandbox.LineSystem:
		return s.render(s.system, text)
	}
	return text
}

// Outcome styles an outcome name.
func (s *Styler) Outcome(o engine.Outcome) string {
	switch o {
	case engine.OutcomeSuccess:
		return s.OK(o.String())
	case engine.OutcomeFailure:
		return s.Fail(o.String())
	}
	return s.render(s.err, o.String())
}

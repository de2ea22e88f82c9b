// Package console renders the user-facing build and circuit reports.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 60

// Theme holds the styles used for console output.
type Theme struct {
	Rule    lipgloss.Style
	Title   lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Warning lipgloss.Style
	Faint   lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Rule:    r.NewStyle().Foreground(lipgloss.Color("63")),
		Title:   r.NewStyle().Bold(true),
		Success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		Faint:   r.NewStyle().Faint(true),
	}
}

// Console writes styled lines to w. Colors are only emitted when w is a
// terminal.
type Console struct {
	w     io.Writer
	theme Theme
}

// New creates a console writing to w.
func New(w io.Writer) *Console {
	return &Console{w: w, theme: newTheme(lipgloss.NewRenderer(w))}
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer {
	return c.w
}

// Banner prints title between two horizontal rules.
func (c *Console) Banner(title string) {
	c.banner(c.theme.Title, title)
}

// Success prints a highlighted success banner.
func (c *Console) Success(msg string) {
	c.banner(c.theme.Success, msg)
}

// Failure prints a highlighted failure banner.
func (c *Console) Failure(msg string) {
	c.banner(c.theme.Failure, msg)
}

func (c *Console) banner(style lipgloss.Style, text string) {
	rule := c.theme.Rule.Render(strings.Repeat("=", ruleWidth))
	fmt.Fprintln(c.w, rule)
	fmt.Fprintln(c.w, style.Render(text))
	fmt.Fprintln(c.w, rule)
}

// Section prints a heading followed by a short underline.
func (c *Console) Section(title string) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.theme.Title.Render(title))
	fmt.Fprintln(c.w, c.theme.Rule.Render(strings.Repeat("-", len(title))))
}

// Println prints a plain line.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.w, a...)
}

// Printf prints plain formatted text.
func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.w, format, a...)
}

// Warn prints a warning line.
func (c *Console) Warn(format string, a ...any) {
	fmt.Fprintln(c.w, c.theme.Warning.Render(fmt.Sprintf(format, a...)))
}

// Error prints an error line.
func (c *Console) Error(format string, a ...any) {
	fmt.Fprintln(c.w, c.theme.Failure.Render(fmt.Sprintf(format, a...)))
}

// Note prints a de-emphasised line.
func (c *Console) Note(format string, a ...any) {
	fmt.Fprintln(c.w, c.theme.Faint.Render(fmt.Sprintf(format, a...)))
}

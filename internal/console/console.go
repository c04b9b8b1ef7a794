// Package console prints the human-facing status lines of a vectorctl run.
package console

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

const banner = "Vector index management tool"

// Reporter writes styled status lines. Styling is dropped automatically when
// the writer is not a terminal.
type Reporter struct {
	w io.Writer

	bannerStyle lipgloss.Style
	stepStyle   lipgloss.Style
	labelStyle  lipgloss.Style
	valueStyle  lipgloss.Style
	dimStyle    lipgloss.Style
	endStyle    lipgloss.Style
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	r := lipgloss.NewRenderer(w)
	return &Reporter{
		w:           w,
		bannerStyle: r.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
		stepStyle:   r.NewStyle().Foreground(lipgloss.Color("45")),
		labelStyle:  r.NewStyle().Foreground(lipgloss.Color("45")),
		valueStyle:  r.NewStyle().Foreground(lipgloss.Color("231")).Bold(true),
		dimStyle:    r.NewStyle().Foreground(lipgloss.Color("245")),
		endStyle:    r.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
	}
}

// Discard returns a Reporter that prints nothing.
func Discard() *Reporter {
	return New(io.Discard)
}

// Banner prints the tool banner.
func (r *Reporter) Banner() {
	r.line(r.bannerStyle.Render(banner))
}

// Step prints one "- " prefixed progress line.
func (r *Reporter) Step(format string, args ...any) {
	r.line(r.stepStyle.Render("- " + fmt.Sprintf(format, args...)))
}

// Field prints an indented "label: value" pair.
func (r *Reporter) Field(label string, value any) {
	r.line("  " + r.labelStyle.Render(label+":") + " " + r.valueStyle.Render(fmt.Sprint(value)))
}

// Result prints one ranked search hit followed by an excerpt of its text.
func (r *Reporter) Result(rank int, score float32, source, text string) {
	head := r.valueStyle.Render(strconv.Itoa(rank)+".") + " " +
		r.labelStyle.Render(FormatScore(score))
	if source != "" {
		head += " " + r.dimStyle.Render(source)
	}
	r.line("  " + head)
	r.line("     " + Excerpt(text, excerptWidth))
}

// End prints the closing line.
func (r *Reporter) End() {
	r.line(r.endStyle.Render("End"))
}

func (r *Reporter) line(s string) {
	fmt.Fprintln(r.w, s)
}

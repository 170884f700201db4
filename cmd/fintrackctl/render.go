package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorRed    = lipgloss.Color("#D14D41")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	dimStyle    = lipgloss.NewStyle().Foreground(colorBorder)
	overStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// table is a bordered text table. The first column is left aligned, the
// rest right aligned. A row holding only "---" renders as a separator.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func renderTitle(title string) string {
	return titleStyle.Render(title)
}

func (t table) render() string {
	numCols := len(t.headers)
	widths := make([]int, numCols)
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i := 0; i < numCols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, numCols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}
	line := func(cells []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			b.WriteString(dimStyle.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.title != "" {
		b.WriteString(headerStyle.Render(t.title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	b.WriteString(line(t.headers, headerStyle))
	b.WriteString(rule("├", "┼", "┤"))
	for _, row := range t.rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}
		b.WriteString(line(row, valueStyle))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

// emptyNotice is printed instead of a table with no rows.
func emptyNotice(what string) string {
	return fmt.Sprintf("  No %s found.\n", what)
}

package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTerminalWidth is used when the writer is not a terminal.
const DefaultTerminalWidth = 120

// columnGap separates adjacent columns.
const columnGap = "  "

// Table renders aligned columns. Headers are title cased and the widest
// column is truncated when the table would overflow the terminal.
type Table struct {
	w       io.Writer
	styles  *TableStyles
	headers []string
	width   int
}

// NewTable creates a table writing to w.
func NewTable(w io.Writer, headers []string) *Table {
	return &Table{
		w:       w,
		styles:  NewTableStyles(),
		headers: headers,
		width:   TerminalWidth(w),
	}
}

// WithWidth overrides the detected terminal width.
func (t *Table) WithWidth(width int) *Table {
	t.width = width
	return t
}

// TerminalWidth returns the width of w when it is a terminal and
// DefaultTerminalWidth otherwise.
func TerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 { //nolint:gosec // fd fits in int
			return width
		}
	}
	return DefaultTerminalWidth
}

// Render writes the header row followed by rows. Missing cells are blank.
func (t *Table) Render(rows [][]string) {
	if len(t.headers) == 0 {
		return
	}

	caser := cases.Title(language.English)
	titles := make([]string, len(t.headers))
	for i, h := range t.headers {
		titles[i] = caser.String(strings.ReplaceAll(h, "_", " "))
	}

	widths := t.columnWidths(titles, rows)

	parts := make([]string, len(titles))
	for i, h := range titles {
		parts[i] = t.styles.Header.Render(padRight(truncate(h, widths[i]), widths[i]))
	}
	_, _ = fmt.Fprintln(t.w, strings.TrimRight(strings.Join(parts, columnGap), " "))

	for _, row := range rows {
		for i := range titles {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			parts[i] = t.styles.Cell.Render(padRight(truncate(cell, widths[i]), widths[i]))
		}
		_, _ = fmt.Fprintln(t.w, strings.TrimRight(strings.Join(parts, columnGap), " "))
	}
}

// columnWidths sizes every column to its widest cell, then shrinks the
// widest column until the row fits t.width.
func (t *Table) columnWidths(titles []string, rows [][]string) []int {
	widths := make([]int, len(titles))
	for i, h := range titles {
		widths[i] = len([]rune(h))
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len([]rune(row[i])))
		}
	}

	total := len(columnGap) * (len(widths) - 1)
	widest := 0
	for i, w := range widths {
		total += w
		if w > widths[widest] {
			widest = i
		}
	}
	if t.width > 0 && total > t.width {
		widths[widest] = max(widths[widest]-(total-t.width), minColumnWidth)
	}
	return widths
}

// minColumnWidth is the narrowest a truncated column gets.
const minColumnWidth = 8

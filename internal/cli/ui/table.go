package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned columns under a coloured header row
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given column headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{w: w, headers: headers, noColor: noColor}
}

// AddRow appends a row; missing cells render empty
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
	}

	last := len(widths) - 1
	for i, h := range t.headers {
		bold.Fprint(t.w, cell(h, widths[i], i == last))
	}
	fmt.Fprintln(t.w)

	for i, width := range widths {
		gray.Fprint(t.w, cell(strings.Repeat("─", width), 0, i == last))
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		for i := range widths {
			var v string
			if i < len(row) {
				v = row[i]
			}
			fmt.Fprint(t.w, cell(v, widths[i], i == last))
		}
		fmt.Fprintln(t.w)
	}
}

// cell pads s to width and adds the column gutter. The last column is not
// padded so lines carry no trailing spaces.
func cell(s string, width int, last bool) string {
	if last {
		return s
	}
	if pad := width - len(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s + "  "
}

// Header writes a bold title underlined to its own width
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}
	bold.Fprintln(w, title)
	gray.Fprintln(w, strings.Repeat("─", len(title)))
}

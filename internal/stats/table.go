package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type column struct {
	title string
	right bool
}

var resultColumns = []column{
	{title: "Ended"},
	{title: "Found", right: true},
	{title: "Wrong", right: true},
	{title: "Left", right: true},
	{title: "Cause"},
	{title: "Score"},
	{title: "Delivery"},
}

var causeColumns = []column{
	{title: "Cause"},
	{title: "Sessions", right: true},
	{title: "Share", right: true},
}

// ResultHeaders are the column titles matching ResultRows.
var ResultHeaders = columnTitles(resultColumns)

func columnTitles(cols []column) []string {
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}
	return titles
}

// alignRows lays out the header and rows with every cell padded to its
// column's widest entry, measured in terminal cells.
func alignRows(cols []column, rows [][]string) []string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range rows {
		for i := 0; i < len(cols) && i < len(row); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, alignRow(cols, widths, columnTitles(cols)))
	for _, row := range rows {
		lines = append(lines, alignRow(cols, widths, row))
	}
	return lines
}

func alignRow(cols []column, widths []int, cells []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if c.right {
			parts[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.Join(parts, " ")
}

// writeTable prints title, the aligned table and a blank separator line.
func writeTable(w io.Writer, title string, cols []column, rows [][]string) error {
	var b strings.Builder
	b.WriteString(title + "\n")
	for _, line := range alignRows(cols, rows) {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	_, err := fmt.Fprint(w, b.String())
	return err
}

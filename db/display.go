package db

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// SimpleTable renders rows as an ASCII grid.
type SimpleTable struct {
	writer  io.Writer
	headers []string
	rows    [][]string
}

func NewSimpleTable(w io.Writer) *SimpleTable {
	return &SimpleTable{writer: w}
}

func (st *SimpleTable) Header(headers []string) {
	st.headers = headers
}

func (st *SimpleTable) Row(row []string) {
	st.rows = append(st.rows, row)
}

func (st *SimpleTable) Bulk(rows [][]string) {
	st.rows = append(st.rows, rows...)
}

// Render writes the grid. Nothing is written for an empty table without
// headers.
func (st *SimpleTable) Render() error {
	if len(st.headers) == 0 && len(st.rows) == 0 {
		return nil
	}

	widths := st.widths()
	separator := separatorLine(widths)

	lines := []string{separator}
	if len(st.headers) > 0 {
		lines = append(lines, formatRow(st.headers, widths), separator)
	}
	for _, row := range st.rows {
		lines = append(lines, formatRow(row, widths))
	}
	lines = append(lines, separator)

	_, err := fmt.Fprintln(st.writer, strings.Join(lines, "\n"))
	return err
}

func (st *SimpleTable) widths() []int {
	n := len(st.headers)
	for _, row := range st.rows {
		n = max(n, len(row))
	}

	widths := make([]int, n)
	measure := func(cells []string) {
		for i, cell := range cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	measure(st.headers)
	for _, row := range st.rows {
		measure(row)
	}

	for i := range widths {
		widths[i] = max(widths[i], 1)
	}
	return widths
}

func separatorLine(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

func formatRow(row []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		parts[i] = " " + cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell)+1)
	}
	return "|" + strings.Join(parts, "|") + "|"
}

// Display renders the table with one header per column, primary keys
// marked with an asterisk, followed by a row count.
func (t *Table) Display(w io.Writer) error {
	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.Name
		if c.PrimaryKey {
			headers[i] += "*"
		}
	}

	st := NewSimpleTable(w)
	st.Header(headers)
	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, c := range t.columns {
			cells[i] = row[c.Name].String()
		}
		st.Row(cells)
	}

	if err := st.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d row(s)\n", len(t.rows))
	return err
}

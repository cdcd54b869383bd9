package util

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table renders rows as space-padded columns.
type Table struct {
	sb     strings.Builder
	writer *tabwriter.Writer
}

func NewTable(header ...string) *Table {
	t := &Table{}
	t.writer = tabwriter.NewWriter(&t.sb, 1, 1, 2, ' ', 0)
	if len(header) > 0 {
		t.writeRow(stringsToCells(header))
	}
	return t
}

// AddRow appends one row. Cells are printed with their default format.
func (t *Table) AddRow(cells ...interface{}) {
	t.writeRow(cells)
}

// String flushes pending rows and returns everything written so far.
func (t *Table) String() string {
	// Writes go to a strings.Builder, so Flush cannot fail.
	_ = t.writer.Flush()
	return t.sb.String()
}

func (t *Table) writeRow(cells []interface{}) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprint(cell)
	}
	_, _ = fmt.Fprintln(t.writer, strings.Join(parts, "\t"))
}

func stringsToCells(s []string) []interface{} {
	cells := make([]interface{}, len(s))
	for i, v := range s {
		cells[i] = v
	}
	return cells
}

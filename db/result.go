package db

import (
	"fmt"
	"io"
	"time"

	"github.com/nickyhof/SequelDB/ps"
)

// QueryResult is a derived table and how long it took to produce.
type QueryResult struct {
	Table            *Table
	ExecutionTimeSec float64
}

// MutationResult reports a change to a table and, once committed, the
// transaction that stored it.
type MutationResult struct {
	Table            string
	Action           string // "inserted", "updated", "deleted", ...
	RowsAffected     uint32
	Transaction      ps.Transaction
	ExecutionTimeSec float64
}

func since(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	}

	mins := int(secs / 60)
	if rem := int(secs) % 60; rem != 0 {
		return fmt.Sprintf("%dm%ds", mins, rem)
	}
	return fmt.Sprintf("%dm", mins)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result MutationResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display(w io.Writer) error {
	if err := result.Table.Display(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%s)\n", result.ExecutionTime())
	return err
}

func (result MutationResult) Display(w io.Writer) error {
	line := fmt.Sprintf("%d row(s) %s in %s (%s)", result.RowsAffected, result.Action, result.Table, result.ExecutionTime())
	if result.Transaction.Id != "" {
		line += " [" + result.Transaction.Id[:min(len(result.Transaction.Id), 8)] + "]"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// Timed runs f and wraps its table in a QueryResult.
func Timed(f func() (*Table, error)) (QueryResult, error) {
	start := time.Now()
	t, err := f()
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Table: t, ExecutionTimeSec: since(start)}, nil
}

package db

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/ps"
)

func TestSimpleTableRender(t *testing.T) {
	var buf bytes.Buffer
	st := NewSimpleTable(&buf)
	st.Header([]string{"id", "name"})
	st.Bulk([][]string{{"1", "Zoë"}, {"22", "Bob"}})

	if err := st.Render(); err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	want := strings.Join([]string{
		"+----+------+",
		"| id | name |",
		"+----+------+",
		"| 1  | Zoë  |",
		"| 22 | Bob  |",
		"+----+------+",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestSimpleTableRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewSimpleTable(&buf).Render(); err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %q", buf.String())
	}
}

func TestTableDisplay(t *testing.T) {
	users := setupUsers(t)

	var buf bytes.Buffer
	if err := users.Display(&buf); err != nil {
		t.Fatalf("Failed to display: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "| id* |") {
		t.Errorf("Expected primary key marker in header, got:\n%s", out)
	}
	if !strings.Contains(out, "Null") {
		t.Errorf("Expected Null cells to be rendered, got:\n%s", out)
	}
	if !strings.HasSuffix(out, "4 row(s)\n") {
		t.Errorf("Expected row count footer, got:\n%s", out)
	}
}

func TestMutationResultDisplay(t *testing.T) {
	var buf bytes.Buffer
	result := MutationResult{
		Table:        "Users",
		Action:       "deleted",
		RowsAffected: 2,
		Transaction:  ps.Transaction{Id: "0123456789abcdef"},
	}
	if err := result.Display(&buf); err != nil {
		t.Fatalf("Failed to display: %v", err)
	}
	if got := buf.String(); got != "2 row(s) deleted in Users (<1ms) [01234567]\n" {
		t.Errorf("Unexpected output %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{0.0004, "<1ms"},
		{0.25, "250ms"},
		{2.5, "2.5s"},
		{42, "42s"},
		{120, "2m"},
		{125, "2m5s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.secs); got != tt.want {
			t.Errorf("formatDuration(%v): expected %s, got %s", tt.secs, tt.want, got)
		}
	}
}

func TestTimed(t *testing.T) {
	users := setupUsers(t)

	result, err := Timed(func() (*Table, error) {
		return users.SelectRows("age", core.NotNull())
	})
	if err != nil {
		t.Fatalf("Failed to run query: %v", err)
	}
	if result.Table.Len() != 3 {
		t.Errorf("Expected 3 rows, got %d", result.Table.Len())
	}
	if result.ExecutionTimeSec < 0 {
		t.Errorf("Expected non-negative execution time, got %v", result.ExecutionTimeSec)
	}
}

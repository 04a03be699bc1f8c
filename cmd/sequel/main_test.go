package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/db"
	"github.com/nickyhof/SequelDB/op"
	"github.com/nickyhof/SequelDB/ps"
)

func setupTestRepo(t *testing.T) *ps.Persistence {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	return persistence
}

func runCLI(t *testing.T, persistence *ps.Persistence, args ...string) (string, error) {
	t.Helper()

	var cli CLI
	var out bytes.Buffer
	parser, err := newParser(&cli, &out, &out)
	if err != nil {
		t.Fatalf("Failed to build parser: %v", err)
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return out.String(), err
	}
	cli.persistence = persistence
	err = ctx.Run(&cli.Globals)
	return out.String(), err
}

func mustRun(t *testing.T, persistence *ps.Persistence, args ...string) string {
	t.Helper()

	out, err := runCLI(t, persistence, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func setupUsers(t *testing.T) *ps.Persistence {
	persistence := setupTestRepo(t)

	mustRun(t, persistence, "create", "users", "id:number:pk", "name:string", "age:number")
	mustRun(t, persistence, "insert", "users", "id=1", "name=Alice", "age=30")
	mustRun(t, persistence, "insert", "users", "id=2", "name=Bob", "age=25")
	mustRun(t, persistence, "insert", "users", "id=3", "name=Charlie", "age=null")
	return persistence
}

func TestCLICreateAndTables(t *testing.T) {
	persistence := setupUsers(t)

	out := mustRun(t, persistence, "tables")
	if !strings.Contains(out, "USERS") {
		t.Errorf("Expected USERS in table list, got:\n%s", out)
	}

	if _, err := runCLI(t, persistence, "create", "users", "id:number:pk"); !errors.Is(err, op.ErrTableExists) {
		t.Errorf("Expected ErrTableExists, got %v", err)
	}
}

func TestCLIInsertCommits(t *testing.T) {
	persistence := setupTestRepo(t)
	mustRun(t, persistence, "create", "users", "id:number:pk", "name:string")

	out := mustRun(t, persistence, "insert", "users", "id=1", "name=Alice")
	if !strings.HasPrefix(out, "1 row(s) inserted in users") {
		t.Errorf("Unexpected output %q", out)
	}

	latest := persistence.LatestTransaction()
	if !strings.Contains(out, latest.Id[:8]) {
		t.Errorf("Expected transaction %s in output %q", latest.Id[:8], out)
	}

	if _, err := runCLI(t, persistence, "insert", "users", "id=1", "name=Again"); !errors.Is(err, core.ErrDuplicatePrimaryKey) {
		t.Errorf("Expected ErrDuplicatePrimaryKey, got %v", err)
	}
	if _, err := runCLI(t, persistence, "insert", "users", "id=abc"); !errors.Is(err, core.ErrMismatchDataType) {
		t.Errorf("Expected ErrMismatchDataType, got %v", err)
	}
	if _, err := runCLI(t, persistence, "insert", "users", "salary=1"); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}
}

func TestCLIShow(t *testing.T) {
	persistence := setupUsers(t)

	out := mustRun(t, persistence, "show", "users", "--where", "age > 26")
	if !strings.Contains(out, "Alice") || strings.Contains(out, "Bob") {
		t.Errorf("Expected only Alice, got:\n%s", out)
	}
	if !strings.Contains(out, "1 row(s)") {
		t.Errorf("Expected row count, got:\n%s", out)
	}

	out = mustRun(t, persistence, "show", "users", "--sort-by", "name", "--order", "alpha_descending", "--columns", "name")
	charlie := strings.Index(out, "Charlie")
	alice := strings.Index(out, "Alice")
	if charlie < 0 || alice < 0 || charlie > alice {
		t.Errorf("Expected Charlie before Alice, got:\n%s", out)
	}
	if strings.Contains(out, "age") {
		t.Errorf("Expected only the name column, got:\n%s", out)
	}

	if _, err := runCLI(t, persistence, "show", "users", "--where", "age"); err == nil {
		t.Error("Expected error for filter without condition")
	}
	if _, err := runCLI(t, persistence, "show", "orders"); !errors.Is(err, op.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestCLIUpdateAndDelete(t *testing.T) {
	persistence := setupUsers(t)

	out := mustRun(t, persistence, "update", "users", "--where", "name = Bob", "--set", "age=26")
	if !strings.HasPrefix(out, "1 row(s) updated") {
		t.Errorf("Unexpected output %q", out)
	}

	out = mustRun(t, persistence, "delete", "users", "--where", "age null")
	if !strings.HasPrefix(out, "1 row(s) deleted") {
		t.Errorf("Unexpected output %q", out)
	}

	out = mustRun(t, persistence, "show", "users")
	if strings.Contains(out, "Charlie") {
		t.Errorf("Expected Charlie to be deleted, got:\n%s", out)
	}
	if !strings.Contains(out, "26") {
		t.Errorf("Expected Bob's updated age, got:\n%s", out)
	}
}

func TestCLIIndexDescribeVerify(t *testing.T) {
	persistence := setupUsers(t)

	mustRun(t, persistence, "index", "users", "age")

	out := mustRun(t, persistence, "describe", "users")
	if !strings.Contains(out, "| age ") || !strings.Contains(out, "yes") {
		t.Errorf("Expected age to be listed as indexed, got:\n%s", out)
	}
	if !strings.Contains(out, "PRIMARY") {
		t.Errorf("Expected primary key marker, got:\n%s", out)
	}

	out = mustRun(t, persistence, "verify", "users")
	if !strings.Contains(out, "2 index(es) consistent") {
		t.Errorf("Unexpected verify output %q", out)
	}

	mustRun(t, persistence, "reindex", "users")
	if _, err := runCLI(t, persistence, "index", "users", "salary"); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}
}

func TestCLISnapshotAndHistory(t *testing.T) {
	persistence := setupUsers(t)

	mustRun(t, persistence, "snapshot", "v1")
	snapshots, err := persistence.Snapshots()
	if err != nil || len(snapshots) != 1 {
		t.Errorf("Expected one snapshot, got %v (%v)", snapshots, err)
	}

	out := mustRun(t, persistence, "history", "-n", "2")
	lines := strings.Count(out, "\n")
	// separator, header, separator, 2 rows, separator
	if lines != 6 {
		t.Errorf("Expected 2 commits in history, got:\n%s", out)
	}
}

func TestCLIBranches(t *testing.T) {
	persistence := setupUsers(t)
	main, err := persistence.CurrentBranch()
	if err != nil {
		t.Fatalf("Failed to get current branch: %v", err)
	}

	mustRun(t, persistence, "branch", "create", "feature")
	mustRun(t, persistence, "branch", "switch", "feature")
	mustRun(t, persistence, "insert", "users", "id=4", "name=Dana", "age=41")

	out := mustRun(t, persistence, "branch", "list")
	if !strings.Contains(out, "* feature") {
		t.Errorf("Expected feature to be current, got:\n%s", out)
	}

	mustRun(t, persistence, "branch", "switch", main)
	if out := mustRun(t, persistence, "show", "users"); strings.Contains(out, "Dana") {
		t.Errorf("Expected Dana to be absent on %s, got:\n%s", main, out)
	}

	out = mustRun(t, persistence, "branch", "merge", "feature")
	if !strings.HasPrefix(out, "Merged feature") {
		t.Errorf("Unexpected output %q", out)
	}
	if out := mustRun(t, persistence, "show", "users"); !strings.Contains(out, "Dana") {
		t.Errorf("Expected Dana after merge, got:\n%s", out)
	}

	mustRun(t, persistence, "branch", "delete", "feature")
	if _, err := runCLI(t, persistence, "branch", "delete", main); err == nil {
		t.Error("Expected error deleting the current branch")
	}
}

func TestCLIExportToDirectory(t *testing.T) {
	persistence := setupUsers(t)
	dir := t.TempDir()

	out := mustRun(t, persistence, "export", "users", dir)
	if !strings.Contains(out, "Exported users (3 rows)") {
		t.Errorf("Unexpected output %q", out)
	}

	store, err := ps.NewDirStore(dir)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	table, err := db.Load(store, ps.TablePath("main", "users"))
	if err != nil {
		t.Fatalf("Failed to load export: %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("Expected 3 rows, got %d", table.Len())
	}
}

func TestCLIDrop(t *testing.T) {
	persistence := setupUsers(t)

	mustRun(t, persistence, "drop", "users")
	if out := mustRun(t, persistence, "tables"); strings.Contains(out, "USERS") {
		t.Errorf("Expected users to be dropped, got:\n%s", out)
	}
}

func TestCLIVersion(t *testing.T) {
	out := mustRun(t, setupTestRepo(t), "version")
	if out != "sequel dev\n" {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestParseColumns(t *testing.T) {
	cols, err := parseColumns([]string{"id:int:pk", "name:text", "seen:date"})
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if !cols[0].PrimaryKey || cols[0].Type != core.NumberType {
		t.Errorf("Unexpected first column %+v", cols[0])
	}
	if cols[2].Type != core.DateType {
		t.Errorf("Expected Date type, got %s", cols[2].Type)
	}

	for _, bad := range []string{"id", ":number", "id:number:unique", "a:b:c:d"} {
		if _, err := parseColumns([]string{bad}); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestParseWhere(t *testing.T) {
	column, cond, err := parseWhere("seen between dates 2024-01-01 2024-06-30")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if column != "seen" || cond.Op != core.OpDateBetween {
		t.Errorf("Unexpected result %s %s", column, cond)
	}

	if column, _, err := parseWhere("  "); err != nil || column != "" {
		t.Errorf("Expected empty filter, got %q, %v", column, err)
	}
}

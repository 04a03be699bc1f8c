package db

import (
	"errors"
	"slices"
	"testing"

	"github.com/nickyhof/SequelDB/core"
)

func setupJoinTables(t *testing.T) (*Table, *Table) {
	t.Helper()

	users, err := New("Users", []core.Column{
		{Name: "id", Type: core.NumberType, PrimaryKey: true},
		{Name: "deptId", Type: core.NumberType},
	})
	if err != nil {
		t.Fatalf("Failed to create Users: %v", err)
	}
	depts, err := New("Depts", []core.Column{
		{Name: "deptId", Type: core.NumberType, PrimaryKey: true},
		{Name: "name", Type: core.StringType},
	})
	if err != nil {
		t.Fatalf("Failed to create Depts: %v", err)
	}

	for _, r := range []Row{
		{"id": core.Number(1), "deptId": core.Number(10)},
		{"id": core.Number(2), "deptId": core.Number(20)},
	} {
		if err := users.InsertRow(r); err != nil {
			t.Fatalf("Failed to insert user: %v", err)
		}
	}
	for _, r := range []Row{
		{"deptId": core.Number(10), "name": core.String("Eng")},
		{"deptId": core.Number(30), "name": core.String("Sales")},
	} {
		if err := depts.InsertRow(r); err != nil {
			t.Fatalf("Failed to insert dept: %v", err)
		}
	}
	return users, depts
}

func assertRow(t *testing.T, got Row, want Row) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("Expected %d columns, got %d: %v", len(want), len(got), got)
	}
	for col, v := range want {
		if !got[col].Equal(v) {
			t.Errorf("Column %s: expected %v, got %v", col, v, got[col])
		}
	}
}

func TestInnerJoin(t *testing.T) {
	users, depts := setupJoinTables(t)

	result, err := users.InnerJoin(depts, "deptId")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}

	if !slices.Equal(result.ColumnNames(), []string{"id", "deptId", "name"}) {
		t.Errorf("Expected columns [id deptId name], got %v", result.ColumnNames())
	}
	if result.Len() != 1 {
		t.Fatalf("Expected 1 row, got %d", result.Len())
	}
	row, _ := result.Row(0)
	assertRow(t, row, Row{"id": core.Number(1), "deptId": core.Number(10), "name": core.String("Eng")})

	if result.Name() != "Join Result of Tables Users and Depts on column deptId" {
		t.Errorf("Unexpected result name %q", result.Name())
	}
}

func TestOuterJoin(t *testing.T) {
	users, depts := setupJoinTables(t)

	result, err := users.OuterJoin(depts, "deptId")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}

	if result.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", result.Len())
	}
	if err := result.SortRows(core.NumericAscending, "id"); err != nil {
		t.Fatalf("Failed to sort result: %v", err)
	}

	first, _ := result.Row(0)
	assertRow(t, first, Row{"id": core.Number(1), "deptId": core.Number(10), "name": core.String("Eng")})
	second, _ := result.Row(1)
	assertRow(t, second, Row{"id": core.Number(2), "deptId": core.Number(20), "name": core.Null()})
}

func TestOuterJoinEmptyRight(t *testing.T) {
	users, _ := setupJoinTables(t)
	empty, err := New("Empty", []core.Column{
		{Name: "deptId", Type: core.NumberType, PrimaryKey: true},
		{Name: "name", Type: core.StringType},
	})
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	result, err := users.OuterJoin(empty, "deptId")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	if result.Len() != users.Len() {
		t.Errorf("Expected every left row once, got %d rows", result.Len())
	}
}

func TestJoinDuplicateKeys(t *testing.T) {
	left := newDerived("L", []core.Column{{Name: "k", Type: core.StringType}, {Name: "l", Type: core.NumberType}})
	right := newDerived("R", []core.Column{{Name: "k", Type: core.StringType}, {Name: "r", Type: core.NumberType}})

	for i, k := range []string{"b", "a", "b", "c"} {
		_ = left.InsertRow(Row{"k": core.String(k), "l": core.Number(float64(i))})
	}
	for i, k := range []string{"b", "b", "a", "d"} {
		_ = right.InsertRow(Row{"k": core.String(k), "r": core.Number(float64(i))})
	}

	inner, err := left.InnerJoin(right, "k")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	// a:1x1 + b:2x2
	if inner.Len() != 5 {
		t.Errorf("Expected 5 rows, got %d", inner.Len())
	}

	outer, err := left.OuterJoin(right, "k")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	// inner matches plus the unmatched c
	if outer.Len() != 6 {
		t.Errorf("Expected 6 rows, got %d", outer.Len())
	}
}

func TestJoinNullKeysNeverMatch(t *testing.T) {
	left := newDerived("L", []core.Column{{Name: "k", Type: core.NumberType}})
	right := newDerived("R", []core.Column{{Name: "k", Type: core.NumberType}, {Name: "v", Type: core.StringType}})

	_ = left.InsertRow(Row{"k": core.Null()})
	_ = left.InsertRow(Row{"k": core.Number(1)})
	_ = right.InsertRow(Row{"k": core.Null(), "v": core.String("null side")})
	_ = right.InsertRow(Row{"k": core.Number(1), "v": core.String("one")})

	inner, err := left.InnerJoin(right, "k")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	if inner.Len() != 1 {
		t.Errorf("Expected only the non-null key to match, got %d rows", inner.Len())
	}

	outer, err := left.OuterJoin(right, "k")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	if outer.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", outer.Len())
	}
	for _, row := range outer.Rows() {
		if row["k"].IsNull() && !row["v"].IsNull() {
			t.Errorf("Expected Null left key to stay unmatched, got %v", row)
		}
	}
}

func TestJoinColumnCollision(t *testing.T) {
	users, err := New("Users", []core.Column{
		{Name: "id", Type: core.NumberType, PrimaryKey: true},
		{Name: "name", Type: core.StringType},
		{Name: "deptId", Type: core.NumberType},
	})
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	_, depts := setupJoinTables(t)

	_ = users.InsertRow(Row{"id": core.Number(1), "name": core.String("Alice"), "deptId": core.Number(10)})

	result, err := users.InnerJoin(depts, "deptId")
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	if !slices.Equal(result.ColumnNames(), []string{"id", "name", "deptId", "Depts.name"}) {
		t.Errorf("Expected qualified right column, got %v", result.ColumnNames())
	}
	row, _ := result.Row(0)
	if dept, _ := row["Depts.name"].Text(); dept != "Eng" {
		t.Errorf("Expected Eng, got %v", row["Depts.name"])
	}
}

func TestJoinErrors(t *testing.T) {
	users, depts := setupJoinTables(t)

	if _, err := users.InnerJoin(depts, "name"); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}
	if _, err := users.OuterJoin(depts, "id"); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}

	labels := newDerived("Labels", []core.Column{{Name: "deptId", Type: core.StringType}})
	if _, err := users.InnerJoin(labels, "deptId"); !errors.Is(err, core.ErrMismatchDataType) {
		t.Errorf("Expected ErrMismatchDataType, got %v", err)
	}
}

func TestJoinLeavesInputsUntouched(t *testing.T) {
	users, depts := setupJoinTables(t)
	_ = users.InsertRow(Row{"id": core.Number(0), "deptId": core.Number(30)})

	before := rowKeys(users)
	if _, err := users.InnerJoin(depts, "deptId"); err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	first, _ := users.Row(0)
	if id, _ := first["id"].Number(); id != 1 {
		t.Errorf("Expected input row order unchanged, got id %v first", id)
	}
	if !slices.Equal(before, rowKeys(users)) {
		t.Error("Expected join not to modify its input")
	}
}

func TestCartesianJoin(t *testing.T) {
	users, depts := setupJoinTables(t)

	result, err := users.CartesianJoin(depts)
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	if result.Len() != users.Len()*depts.Len() {
		t.Errorf("Expected %d rows, got %d", users.Len()*depts.Len(), result.Len())
	}
	if !slices.Equal(result.ColumnNames(), []string{"id", "deptId", "Depts.deptId", "name"}) {
		t.Errorf("Unexpected columns %v", result.ColumnNames())
	}
}

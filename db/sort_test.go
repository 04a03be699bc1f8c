package db

import (
	"errors"
	"testing"

	"github.com/nickyhof/SequelDB/core"
)

func TestSortRowsAscending(t *testing.T) {
	users := setupUsers(t)

	if err := users.SortRows(core.NumericAscending, "age"); err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}

	ages, _ := users.Values("age")
	if !ages[0].IsNull() {
		t.Errorf("Expected Null age first, got %v", ages[0])
	}
	for i := 1; i+1 < len(ages); i++ {
		if c, _ := ages[i].Compare(ages[i+1]); c > 0 {
			t.Errorf("Rows %d and %d out of order: %v > %v", i, i+1, ages[i], ages[i+1])
		}
	}
	if users.Len() != 4 {
		t.Errorf("Expected 4 rows after sort, got %d", users.Len())
	}
}

func TestSortRowsDescending(t *testing.T) {
	users := setupUsers(t)

	if err := users.SortRows(core.AlphaDescending, "name"); err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}

	names, _ := users.Values("name")
	want := []string{"Dana", "Charlie", "Bob", "Alice"}
	for i, w := range want {
		if got, _ := names[i].Text(); got != w {
			t.Errorf("Position %d: expected %s, got %s", i, w, got)
		}
	}

	if err := users.SortRows(core.NumericDescending, "age"); err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}
	ages, _ := users.Values("age")
	if !ages[len(ages)-1].IsNull() {
		t.Errorf("Expected Null age last in descending order, got %v", ages[len(ages)-1])
	}
}

func TestSortRowsIsStable(t *testing.T) {
	users := setupUsers(t)

	// Alice and Charlie share deptId 10 and keep their relative order
	if err := users.SortRows(core.NumericAscending, "deptId"); err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}

	var names []string
	for _, row := range users.Rows() {
		name, _ := row["name"].Text()
		names = append(names, name)
	}
	want := []string{"Dana", "Alice", "Charlie", "Bob"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, names)
		}
	}
}

func TestSortRowsRenumbersIndexes(t *testing.T) {
	users := setupUsers(t)
	if err := users.IndexColumn("name"); err != nil {
		t.Fatalf("Failed to index: %v", err)
	}

	if err := users.SortRows(core.NumericDescending, "id"); err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}
	if err := users.VerifyIndexes(); err != nil {
		t.Errorf("Indexes inconsistent after sort: %v", err)
	}

	row, found, err := users.SelectByPrimaryKey(core.Number(1))
	if err != nil || !found {
		t.Fatalf("Failed to find id 1 after sort: %v", err)
	}
	if name, _ := row["name"].Text(); name != "Alice" {
		t.Errorf("Expected Alice, got %v", row["name"])
	}
}

func TestSortRowsErrors(t *testing.T) {
	users := setupUsers(t)
	if err := users.SortRows(core.AlphaAscending, "salary"); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}

	// a column holding mixed kinds cannot be ordered; the table is untouched
	mixed := newDerived("Mixed", []core.Column{{Name: "v", Type: core.NumberType}})
	mixed.rows = []Row{
		{"v": core.Number(2)},
		{"v": core.String("x")},
		{"v": core.Number(1)},
	}

	if err := mixed.SortRows(core.NumericAscending, "v"); !errors.Is(err, core.ErrMismatchDataType) {
		t.Fatalf("Expected ErrMismatchDataType, got %v", err)
	}
	if n, _ := mixed.rows[0]["v"].Number(); n != 2 {
		t.Errorf("Expected table unchanged after failed sort, got first value %v", mixed.rows[0]["v"])
	}
	if mixed.Generation() != 0 {
		t.Errorf("Expected generation 0 after failed sort, got %d", mixed.Generation())
	}
}

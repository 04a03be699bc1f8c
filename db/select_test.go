package db

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nickyhof/SequelDB/core"
)

func setupMixed(t *testing.T) *Table {
	t.Helper()

	mixed, err := New("Mixed", []core.Column{
		{Name: "id", Type: core.NumberType, PrimaryKey: true},
		{Name: "score", Type: core.NumberType},
		{Name: "label", Type: core.StringType},
		{Name: "seen", Type: core.DateType},
		{Name: "active", Type: core.BooleanType},
		{Name: "home", Type: core.URLType},
	})
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	labels := []string{"alpha", "beta", "gamma", "beta", "delta"}
	for i := range 40 {
		row := Row{"id": core.Number(float64(i))}
		if i%7 != 0 {
			row["score"] = core.Number(float64(i%9) - 2.5)
		}
		if i%5 != 3 {
			row["label"] = core.String(labels[i%len(labels)])
		}
		if i%6 != 1 {
			row["seen"] = core.Date(base.AddDate(0, 0, i%11))
		}
		if i%4 != 2 {
			row["active"] = core.Boolean(i%3 == 0)
		}
		row["home"] = core.URL(fmt.Sprintf("https://example.com/%d", i%4))

		if err := mixed.InsertRow(row); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}

	for _, col := range []string{"score", "label", "seen", "active", "home"} {
		if err := mixed.IndexColumn(col); err != nil {
			t.Fatalf("Failed to index %s: %v", col, err)
		}
	}
	return mixed
}

func rowKeys(t *Table) []string {
	keys := make([]string, 0, t.Len())
	for _, row := range t.Rows() {
		parts := make([]string, 0, len(t.columns))
		for _, name := range t.ColumnNames() {
			parts = append(parts, row[name].Kind().String()+":"+row[name].String())
		}
		keys = append(keys, strings.Join(parts, "|"))
	}
	slices.Sort(keys)
	return keys
}

func TestIndexScanEquivalence(t *testing.T) {
	mixed := setupMixed(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		column string
		cond   core.FilterCondition
	}{
		{"score", core.Equal(core.Number(1.5))},
		{"score", core.LessThan(core.Number(0.5))},
		{"score", core.LessThanOrEqualTo(core.Number(0.5))},
		{"score", core.GreaterThan(core.Number(1.5))},
		{"score", core.GreaterThanOrEqualTo(core.Number(1.5))},
		{"score", core.NumberBetween(-1, 3)},
		{"score", core.NumberBetween(3, -1)},
		{"score", core.IsNull()},
		{"score", core.NotNull()},
		{"score", core.NotEqual(core.Number(1.5))},
		{"score", core.LessThan(core.Number(-100))},
		{"label", core.Equal(core.String("beta"))},
		{"label", core.LessThan(core.String("c"))},
		{"label", core.GreaterThanOrEqualTo(core.String("delta"))},
		{"label", core.GreaterThan(core.String("delta"))},
		{"label", core.IsNull()},
		{"seen", core.DateBetween(base.AddDate(0, 0, 2), base.AddDate(0, 0, 5))},
		{"seen", core.LessThan(core.Date(base.AddDate(0, 0, 3)))},
		{"seen", core.GreaterThan(core.Date(base.AddDate(0, 0, 9)))},
		{"seen", core.IsNull()},
		{"active", core.IsTrue()},
		{"active", core.IsFalse()},
		{"active", core.IsNull()},
		{"active", core.Equal(core.Boolean(false))},
		{"home", core.Equal(core.URL("https://example.com/2"))},
		{"home", core.GreaterThanOrEqualTo(core.URL("https://example.com/1"))},
		{"id", core.LessThanOrEqualTo(core.Number(5))},
		{"id", core.Equal(core.Number(39))},
	}

	for _, tt := range tests {
		t.Run(tt.column+" "+tt.cond.String(), func(t *testing.T) {
			viaIndex, err := mixed.selectRows(tt.column, tt.cond, true)
			if err != nil {
				t.Fatalf("Failed to select via index: %v", err)
			}
			viaScan, err := mixed.selectRows(tt.column, tt.cond, false)
			if err != nil {
				t.Fatalf("Failed to select via scan: %v", err)
			}

			if !slices.Equal(rowKeys(viaIndex), rowKeys(viaScan)) {
				t.Errorf("Index returned %d rows, scan returned %d", viaIndex.Len(), viaScan.Len())
			}
		})
	}
}

func TestSelectRowsPreservesOrder(t *testing.T) {
	users := setupUsers(t)
	if err := users.IndexColumn("age"); err != nil {
		t.Fatalf("Failed to index: %v", err)
	}

	result, err := users.SelectRows("age", core.GreaterThan(core.Number(20)))
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}

	var ids []float64
	for _, row := range result.Rows() {
		id, _ := row["id"].Number()
		ids = append(ids, id)
	}
	if !slices.Equal(ids, []float64{1, 2, 3}) {
		t.Errorf("Expected rows in insertion order [1 2 3], got %v", ids)
	}
}

func TestSelectRowsErrors(t *testing.T) {
	users := setupUsers(t)

	if _, err := users.SelectRows("salary", core.IsNull()); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}
	if _, err := users.SelectRows("name", core.LessThan(core.Number(3))); !errors.Is(err, core.ErrMismatchedConditionType) {
		t.Errorf("Expected ErrMismatchedConditionType, got %v", err)
	}
	if _, err := users.SelectRows("age", core.IsTrue()); !errors.Is(err, core.ErrMismatchedConditionType) {
		t.Errorf("Expected ErrMismatchedConditionType, got %v", err)
	}
}

func TestSelectResultIsIndependent(t *testing.T) {
	users := setupUsers(t)

	result, err := users.SelectRows("id", core.Equal(core.Number(1)))
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	if len(result.PrimaryKeys()) != 0 {
		t.Errorf("Expected derived table without keys, got %v", result.PrimaryKeys())
	}

	// a derived table accepts rows its source would reject
	if err := result.InsertRow(Row{"id": core.Number(1)}); err != nil {
		t.Fatalf("Failed to insert into result: %v", err)
	}
	if users.Len() != 4 {
		t.Errorf("Expected source to keep 4 rows, got %d", users.Len())
	}
}

func TestSelectColumns(t *testing.T) {
	users := setupUsers(t)

	result, err := users.SelectColumns([]string{"name", "id"})
	if err != nil {
		t.Fatalf("Failed to project: %v", err)
	}
	if !slices.Equal(result.ColumnNames(), []string{"name", "id"}) {
		t.Errorf("Expected columns [name id], got %v", result.ColumnNames())
	}
	if result.Len() != users.Len() {
		t.Errorf("Expected %d rows, got %d", users.Len(), result.Len())
	}
	row, _ := result.Row(1)
	if len(row) != 2 {
		t.Errorf("Expected 2 values per row, got %v", row)
	}

	if _, err := users.SelectColumns([]string{"name", "salary"}); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn, got %v", err)
	}
	if _, err := users.SelectColumns([]string{"name", "name"}); !errors.Is(err, core.ErrInvalidColumn) {
		t.Errorf("Expected ErrInvalidColumn for repeated column, got %v", err)
	}
}

func TestSelectByPrimaryKey(t *testing.T) {
	users := setupUsers(t)

	row, found, err := users.SelectByPrimaryKey(core.Number(3))
	if err != nil {
		t.Fatalf("Failed to look up: %v", err)
	}
	if !found {
		t.Fatal("Expected row 3 to be found")
	}
	if name, _ := row["name"].Text(); name != "Charlie" {
		t.Errorf("Expected Charlie, got %v", row["name"])
	}

	if _, found, _ := users.SelectByPrimaryKey(core.Number(99)); found {
		t.Error("Expected missing key not to be found")
	}
	if _, _, err := users.SelectByPrimaryKey(core.String("3")); !errors.Is(err, core.ErrMismatchDataType) {
		t.Errorf("Expected ErrMismatchDataType, got %v", err)
	}

	derived, _ := users.SelectColumns([]string{"name"})
	if _, _, err := derived.SelectByPrimaryKey(core.String("Alice")); !errors.Is(err, core.ErrPrimaryKeyRequired) {
		t.Errorf("Expected ErrPrimaryKeyRequired, got %v", err)
	}
}

package db

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/index"
)

// TupleID is the synthetic primary key added to tables declared without
// one.
const TupleID = "tuple_id"

// Row maps column names to cell values.
type Row map[string]core.Value

// Table is an in-memory relation with typed columns, primary key
// enforcement and secondary indexes. A Table is not safe for concurrent
// use.
type Table struct {
	name    string
	columns []core.Column
	rows    []Row
	indexes map[string]*index.Index

	// derived tables (selection, projection and join results) carry no
	// primary keys and skip uniqueness checks
	derived      bool
	syntheticKey string
	nextTupleID  uint64
	generation   uint64

	sink *indexSink
}

// Option configures a Table at construction.
type Option func(*Table)

// New creates an empty table. If no column is a primary key a Number
// column named tuple_id is appended and filled automatically on insert.
// Every primary key column is indexed.
func New(name string, columns []core.Column, opts ...Option) (*Table, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}

	t := &Table{
		name:    name,
		columns: slices.Clone(columns),
		indexes: make(map[string]*index.Index),
	}

	if !slices.ContainsFunc(t.columns, func(c core.Column) bool { return c.PrimaryKey }) {
		if t.hasColumn(TupleID) {
			return nil, fmt.Errorf("%w: '%s' is reserved for tables without a primary key", core.ErrInvalidColumn, TupleID)
		}
		t.columns = append(t.columns, core.Column{Name: TupleID, Type: core.NumberType, PrimaryKey: true})
		t.syntheticKey = TupleID
	}

	for _, key := range t.PrimaryKeys() {
		t.indexes[key] = index.New(name, key)
	}

	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// newDerived creates a result table: same column types, no keys, no
// indexes, no persistence.
func newDerived(name string, columns []core.Column) *Table {
	cols := make([]core.Column, len(columns))
	for i, c := range columns {
		cols[i] = core.Column{Name: c.Name, Type: c.Type}
	}

	return &Table{
		name:    name,
		columns: cols,
		indexes: make(map[string]*index.Index),
		derived: true,
	}
}

func validateColumns(columns []core.Column) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return fmt.Errorf("%w: column names cannot be empty", core.ErrInvalidColumn)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate column '%s'", core.ErrInvalidColumn, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

func (t *Table) Name() string { return t.name }

// Columns returns a copy of the schema in declaration order.
func (t *Table) Columns() []core.Column { return slices.Clone(t.columns) }

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (core.Column, bool) {
	i := t.columnIndex(name)
	if i < 0 {
		return core.Column{}, false
	}
	return t.columns[i], true
}

func (t *Table) PrimaryKeys() []string {
	var keys []string
	for _, c := range t.columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns a copy of the row at position i.
func (t *Table) Row(i int) (Row, bool) {
	if i < 0 || i >= len(t.rows) {
		return nil, false
	}
	return maps.Clone(t.rows[i]), true
}

// Rows returns copies of every row in position order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = maps.Clone(r)
	}
	return out
}

// Values returns the column's values in position order.
func (t *Table) Values(column string) ([]core.Value, error) {
	if !t.hasColumn(column) {
		return nil, core.InvalidColumn(column)
	}

	values := make([]core.Value, len(t.rows))
	for i, r := range t.rows {
		values[i] = r[column]
	}
	return values, nil
}

func (t *Table) IndexedColumns() []string {
	cols := slices.Collect(maps.Keys(t.indexes))
	slices.Sort(cols)
	return cols
}

func (t *Table) HasIndex(column string) bool {
	_, ok := t.indexes[column]
	return ok
}

// Index returns the live index on column, if any.
func (t *Table) Index(column string) (*index.Index, bool) {
	idx, ok := t.indexes[column]
	return idx, ok
}

// Generation counts successful mutations; persisted indexes record the
// generation they were written at.
func (t *Table) Generation() uint64 { return t.generation }

func (t *Table) columnIndex(name string) int {
	return slices.IndexFunc(t.columns, func(c core.Column) bool { return c.Name == name })
}

func (t *Table) hasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) isPrimaryKey(name string) bool {
	c, ok := t.Column(name)
	return ok && c.PrimaryKey
}

// touch records a successful mutation.
func (t *Table) touch() {
	t.generation++
}

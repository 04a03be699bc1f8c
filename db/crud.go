package db

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/index"
	"github.com/nickyhof/SequelDB/internal/logging"
)

// InsertRow validates row against the schema and appends it. Absent
// non-key columns are stored as Null and the synthetic tuple_id, if any,
// is assigned. A failed insert leaves the table unchanged.
func (t *Table) InsertRow(row Row) error {
	stored := make(Row, len(t.columns))

	var missing []string
	for _, c := range t.columns {
		v, ok := row[c.Name]
		if ok && !v.IsNull() {
			stored[c.Name] = v
			continue
		}

		switch {
		case c.Name == t.syntheticKey:
			stored[c.Name] = t.nextTupleKey()
		case c.PrimaryKey && !t.derived:
			missing = append(missing, c.Name)
		default:
			stored[c.Name] = core.Null()
		}
	}
	if len(missing) > 0 {
		return core.MissingPrimaryKeys(missing)
	}

	for name := range row {
		if !t.hasColumn(name) {
			return core.InvalidColumn(name)
		}
	}

	for _, c := range t.columns {
		if v := stored[c.Name]; !v.IsNull() && v.Kind() != c.Type.Kind() {
			return core.MismatchDataType(c.Type, v.Kind())
		}
	}

	if !t.derived {
		for _, key := range t.PrimaryKeys() {
			if idx, ok := t.indexes[key]; ok && idx.Contains(stored[key]) {
				return core.DuplicatePrimaryKey(key)
			}
		}
	}

	pos := len(t.rows)
	t.rows = append(t.rows, stored)
	for col, idx := range t.indexes {
		idx.Insert(stored[col], pos)
	}
	if t.syntheticKey != "" {
		t.nextTupleID++
	}
	t.touch()

	return t.persistIndexes()
}

// nextTupleKey returns the next unused synthetic key without consuming it.
func (t *Table) nextTupleKey() core.Value {
	idx := t.indexes[t.syntheticKey]
	for idx != nil && idx.Contains(core.Number(float64(t.nextTupleID))) {
		t.nextTupleID++
	}
	return core.Number(float64(t.nextTupleID))
}

// EditRows sets editColumn to newValue on every row whose filterColumn
// satisfies cond, returning the number of rows changed.
func (t *Table) EditRows(filterColumn, editColumn string, cond core.FilterCondition, newValue core.Value) (uint32, error) {
	positions, err := t.matchPositions(filterColumn, cond, true)
	if err != nil {
		return 0, err
	}

	col, ok := t.Column(editColumn)
	if !ok {
		return 0, core.InvalidColumn(editColumn)
	}
	if !newValue.IsNull() && newValue.Kind() != col.Type.Kind() {
		return 0, core.MismatchDataType(col.Type, newValue.Kind())
	}
	if len(positions) == 0 {
		return 0, nil
	}

	idx := t.indexes[editColumn]
	if col.PrimaryKey && !t.derived {
		if newValue.IsNull() {
			return 0, core.MissingPrimaryKeys([]string{editColumn})
		}
		if len(positions) > 1 {
			return 0, core.DuplicatePrimaryKey(editColumn)
		}
		if holders := idx.Get(newValue); len(holders) > 0 && holders[0] != positions[0] {
			return 0, core.DuplicatePrimaryKey(editColumn)
		}
	}

	if idx != nil {
		idx.Refile(positions, func(pos int) core.Value { return t.rows[pos][editColumn] }, newValue)
	}
	for _, pos := range positions {
		t.rows[pos][editColumn] = newValue
	}
	t.touch()

	return uint32(len(positions)), t.persistIndexes()
}

// DeleteRows removes every row whose column satisfies cond and renumbers
// the survivors in every index. It returns the number of rows removed.
func (t *Table) DeleteRows(column string, cond core.FilterCondition) (uint32, error) {
	positions, err := t.matchPositions(column, cond, true)
	if err != nil {
		return 0, err
	}
	if len(positions) == 0 {
		return 0, nil
	}

	doomed := make(map[int]bool, len(positions))
	for _, pos := range positions {
		doomed[pos] = true
	}

	renumber := make([]int, len(t.rows))
	kept := t.rows[:0]
	for pos, row := range t.rows {
		if doomed[pos] {
			renumber[pos] = -1
			continue
		}
		renumber[pos] = len(kept)
		kept = append(kept, row)
	}
	clear(t.rows[len(kept):])
	t.rows = kept

	t.remapIndexes(func(old int) (int, bool) {
		next := renumber[old]
		return next, next >= 0
	})
	t.touch()

	return uint32(len(positions)), t.persistIndexes()
}

func (t *Table) remapIndexes(fn func(old int) (int, bool)) {
	for _, idx := range t.indexes {
		idx.Remap(fn)
	}
}

// DeleteColumn drops a non-key column, its values and any index on it.
func (t *Table) DeleteColumn(name string) error {
	i := t.columnIndex(name)
	if i < 0 {
		return core.InvalidColumn(name)
	}
	if t.columns[i].PrimaryKey {
		return core.MandatoryColumn(name)
	}

	t.columns = slices.Delete(t.columns, i, i+1)
	for _, row := range t.rows {
		delete(row, name)
	}

	_, indexed := t.indexes[name]
	delete(t.indexes, name)
	t.touch()

	if indexed {
		logging.IndexEvent("drop", t.name, name)
		return t.deleteIndexBlob(name)
	}
	return nil
}

// RenameColumn renames a column, carrying its values and index along.
func (t *Table) RenameColumn(oldName, newName string) error {
	i := t.columnIndex(oldName)
	if i < 0 {
		return core.InvalidColumn(oldName)
	}
	if oldName == newName {
		return nil
	}
	if newName == "" || t.hasColumn(newName) {
		return fmt.Errorf("%w: cannot rename '%s' to '%s'", core.ErrInvalidColumn, oldName, newName)
	}

	t.columns[i].Name = newName
	for _, row := range t.rows {
		row[newName] = row[oldName]
		delete(row, oldName)
	}
	if t.syntheticKey == oldName {
		t.syntheticKey = newName
	}
	t.touch()

	idx, ok := t.indexes[oldName]
	if !ok {
		return nil
	}
	delete(t.indexes, oldName)
	idx.Column = newName
	t.indexes[newName] = idx

	if err := t.deleteIndexBlob(oldName); err != nil {
		return err
	}
	return t.persistIndexes(newName)
}

// IndexColumn builds (or rebuilds) the secondary index on column from the
// current rows.
func (t *Table) IndexColumn(column string) error {
	values, err := t.Values(column)
	if err != nil {
		return err
	}

	idx := index.Build(t.name, column, values)
	t.indexes[column] = idx
	logging.IndexEvent("build", t.name, column, "rows", len(values), "keys", idx.Len())

	return t.persistIndexes(column)
}

// Reindex rebuilds every index from the rows.
func (t *Table) Reindex() error {
	for col := range maps.Clone(t.indexes) {
		values, _ := t.Values(col)
		t.indexes[col] = index.Build(t.name, col, values)
	}
	logging.IndexEvent("reindex", t.name, "*", "indexes", len(t.indexes))
	return t.persistIndexes()
}

package db

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/internal/logging"
)

// matchPositions returns, in ascending order, the positions of the rows
// whose column satisfies cond. The index is used when one exists and can
// answer cond; otherwise every row is scanned.
func (t *Table) matchPositions(column string, cond core.FilterCondition, useIndex bool) ([]int, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, core.InvalidColumn(column)
	}
	if err := cond.CheckColumn(col.Type); err != nil {
		return nil, err
	}

	if idx, ok := t.indexes[column]; ok && useIndex {
		positions, err := idx.Lookup(cond)
		switch {
		case err == nil:
			slices.Sort(positions)
			return positions, nil
		case errors.Is(err, core.ErrActionNotImplemented):
			logging.IndexEvent("scan_fallback", t.name, column, "condition", cond.String())
		default:
			return nil, err
		}
	}

	return t.scan(column, cond)
}

func (t *Table) scan(column string, cond core.FilterCondition) ([]int, error) {
	var positions []int
	for pos, row := range t.rows {
		ok, err := cond.Matches(row[column])
		if err != nil {
			return nil, err
		}
		if ok {
			positions = append(positions, pos)
		}
	}
	return positions, nil
}

// SelectRows returns a new table holding copies of the rows whose column
// satisfies cond, in their original order.
func (t *Table) SelectRows(column string, cond core.FilterCondition) (*Table, error) {
	return t.selectRows(column, cond, true)
}

func (t *Table) selectRows(column string, cond core.FilterCondition, useIndex bool) (*Table, error) {
	positions, err := t.matchPositions(column, cond, useIndex)
	if err != nil {
		return nil, err
	}

	result := newDerived(fmt.Sprintf("%s where %s %s", t.name, column, cond), t.columns)
	result.rows = make([]Row, len(positions))
	for i, pos := range positions {
		result.rows[i] = maps.Clone(t.rows[pos])
	}
	return result, nil
}

// SelectColumns projects the table onto names, in the order given.
func (t *Table) SelectColumns(names []string) (*Table, error) {
	cols := make([]core.Column, len(names))
	for i, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, core.InvalidColumn(name)
		}
		cols[i] = c
	}
	if err := validateColumns(cols); err != nil {
		return nil, err
	}

	result := newDerived(t.name, cols)
	result.rows = make([]Row, len(t.rows))
	for i, row := range t.rows {
		projected := make(Row, len(names))
		for _, name := range names {
			projected[name] = row[name]
		}
		result.rows[i] = projected
	}
	return result, nil
}

// SelectByPrimaryKey returns the row holding key in the table's single
// primary key column.
func (t *Table) SelectByPrimaryKey(key core.Value) (Row, bool, error) {
	keys := t.PrimaryKeys()
	if len(keys) == 0 {
		return nil, false, core.ErrPrimaryKeyRequired
	}
	if len(keys) > 1 {
		return nil, false, fmt.Errorf("%w: table %s has a composite key %v", core.ErrPrimaryKeyRequired, t.name, keys)
	}

	col, _ := t.Column(keys[0])
	if key.Kind() != col.Type.Kind() {
		return nil, false, core.MismatchDataType(col.Type, key.Kind())
	}

	idx, ok := t.indexes[keys[0]]
	if !ok {
		return nil, false, fmt.Errorf("%w: no index on %s", core.ErrPrimaryKeyRequired, keys[0])
	}
	positions := idx.Get(key)
	if len(positions) == 0 {
		return nil, false, nil
	}
	return maps.Clone(t.rows[positions[0]]), true, nil
}

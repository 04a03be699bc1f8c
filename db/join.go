package db

import (
	"fmt"
	"slices"

	"github.com/nickyhof/SequelDB/core"
)

// joinColumn maps a column of a join result back to its source.
type joinColumn struct {
	out    core.Column
	source string
	right  bool
}

// joinSchema lays out left columns then right columns, qualifying right
// names that collide as "<right table>.<column>".
func joinSchema(left, right *Table, skipLeft, skipRight string) []joinColumn {
	var cols []joinColumn
	taken := make(map[string]bool)

	for _, c := range left.columns {
		if c.Name == skipLeft {
			continue
		}
		cols = append(cols, joinColumn{out: core.Column{Name: c.Name, Type: c.Type}, source: c.Name})
		taken[c.Name] = true
	}

	for _, c := range right.columns {
		if c.Name == skipRight {
			continue
		}
		name := c.Name
		if taken[name] {
			name = right.name + "." + c.Name
		}
		cols = append(cols, joinColumn{out: core.Column{Name: name, Type: c.Type}, source: c.Name, right: true})
		taken[name] = true
	}
	return cols
}

func newJoinResult(name string, schema []joinColumn) *Table {
	cols := make([]core.Column, len(schema))
	for i, jc := range schema {
		cols[i] = jc.out
	}
	return newDerived(name, cols)
}

// combine builds a result row; a nil right row yields Nulls.
func combine(schema []joinColumn, l, r Row) Row {
	row := make(Row, len(schema))
	for _, jc := range schema {
		switch {
		case !jc.right:
			row[jc.out.Name] = l[jc.source]
		case r != nil:
			row[jc.out.Name] = r[jc.source]
		default:
			row[jc.out.Name] = core.Null()
		}
	}
	return row
}

func checkJoinColumn(left, right *Table, column string) error {
	lc, ok := left.Column(column)
	if !ok {
		return core.InvalidColumn(column)
	}
	rc, ok := right.Column(column)
	if !ok {
		return core.InvalidColumn(column)
	}
	if lc.Type != rc.Type {
		return core.MismatchDataType(lc.Type, rc.Type.Kind())
	}
	return nil
}

// sortedByKey returns row positions ordered by the column value, with
// Null keys split off.
func sortedByKey(t *Table, column string) (keyed, nulls []int, err error) {
	for pos, row := range t.rows {
		if row[column].IsNull() {
			nulls = append(nulls, pos)
		} else {
			keyed = append(keyed, pos)
		}
	}

	slices.SortStableFunc(keyed, func(a, b int) int {
		c, cerr := t.rows[a][column].Compare(t.rows[b][column])
		if cerr != nil && err == nil {
			err = cerr
		}
		return c
	})
	return keyed, nulls, err
}

// mergeJoin walks both sides in key order. For every left row, emit is
// called once per matching right row, or once with a nil right row when
// there is no match. The right side resumes from the start of the last
// matched run, so consecutive equal left keys see the same run.
func mergeJoin(left, right *Table, column string, emit func(l, r Row)) error {
	ls, lnulls, err := sortedByKey(left, column)
	if err != nil {
		return err
	}
	rs, _, err := sortedByKey(right, column)
	if err != nil {
		return err
	}

	mark := 0
	for _, lp := range ls {
		lrow := left.rows[lp]
		key := lrow[column]

		for mark < len(rs) {
			c, err := right.rows[rs[mark]][column].Compare(key)
			if err != nil {
				return err
			}
			if c >= 0 {
				break
			}
			mark++
		}

		matched := false
		for j := mark; j < len(rs); j++ {
			rrow := right.rows[rs[j]]
			if !rrow[column].Equal(key) {
				break
			}
			emit(lrow, rrow)
			matched = true
		}
		if !matched {
			emit(lrow, nil)
		}
	}

	for _, lp := range lnulls {
		emit(left.rows[lp], nil)
	}
	return nil
}

// InnerJoin pairs every row of t with every row of other holding an equal
// value in column. Null keys never match. The result has t's columns
// followed by other's columns except column.
func (t *Table) InnerJoin(other *Table, column string) (*Table, error) {
	if err := checkJoinColumn(t, other, column); err != nil {
		return nil, err
	}

	schema := joinSchema(t, other, "", column)
	result := newJoinResult(fmt.Sprintf("Join Result of Tables %s and %s on column %s", t.name, other.name, column), schema)

	err := mergeJoin(t, other, column, func(l, r Row) {
		if r != nil {
			result.rows = append(result.rows, combine(schema, l, r))
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// OuterJoin is a left outer join: every row of t appears at least once.
// The result has t's columns except column followed by all of other's
// columns. Unmatched rows carry their own key in column and Null in every
// other column from other.
func (t *Table) OuterJoin(other *Table, column string) (*Table, error) {
	if err := checkJoinColumn(t, other, column); err != nil {
		return nil, err
	}

	schema := joinSchema(t, other, column, "")
	result := newJoinResult(fmt.Sprintf("Outer Join Result of Tables %s and %s on column %s", t.name, other.name, column), schema)

	err := mergeJoin(t, other, column, func(l, r Row) {
		row := combine(schema, l, r)
		if r == nil {
			row[column] = l[column]
		}
		result.rows = append(result.rows, row)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CartesianJoin pairs every row of t with every row of other.
func (t *Table) CartesianJoin(other *Table) (*Table, error) {
	schema := joinSchema(t, other, "", "")
	result := newJoinResult(fmt.Sprintf("Cartesian Join Result of Tables %s and %s", t.name, other.name), schema)

	result.rows = make([]Row, 0, len(t.rows)*len(other.rows))
	for _, l := range t.rows {
		for _, r := range other.rows {
			result.rows = append(result.rows, combine(schema, l, r))
		}
	}
	return result, nil
}

package db

import (
	"slices"

	"github.com/nickyhof/SequelDB/core"
)

// SortRows stably reorders the rows by column. Nulls come first in
// ascending order and last in descending order. If two values cannot be
// compared the error is returned and the table is left as it was.
// Indexes are renumbered to the new positions.
func (t *Table) SortRows(kind core.SortCondition, column string) error {
	if !t.hasColumn(column) {
		return core.InvalidColumn(column)
	}

	order := make([]int, len(t.rows))
	for i := range order {
		order[i] = i
	}

	var sortErr error
	slices.SortStableFunc(order, func(a, b int) int {
		c, err := t.rows[a][column].CompareNullsFirst(t.rows[b][column])
		if err != nil {
			if sortErr == nil {
				sortErr = err
			}
			return 0
		}
		if kind.Descending() {
			return -c
		}
		return c
	})
	if sortErr != nil {
		return sortErr
	}

	renumber := make([]int, len(order))
	sorted := make([]Row, len(order))
	for next, old := range order {
		sorted[next] = t.rows[old]
		renumber[old] = next
	}
	t.rows = sorted

	t.remapIndexes(func(old int) (int, bool) {
		return renumber[old], true
	})
	t.touch()

	return t.persistIndexes()
}

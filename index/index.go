// Package index implements the secondary index used by SequelDB tables: an
// ordered map from a column value to the row positions holding it.
package index

import (
	"fmt"
	"slices"

	"github.com/google/btree"
	json "github.com/goccy/go-json"

	"github.com/nickyhof/SequelDB/core"
)

const degree = 16

type entry struct {
	key   core.Value
	rows  []int
	floor bool // sorts before every key of its kind; only used as a pivot
}

// less orders keys by kind first, so a range scan never crosses into a
// different kind (Null keys sit before everything else).
func less(a, b *entry) bool {
	if a.key.Kind() != b.key.Kind() {
		return a.key.Kind() < b.key.Kind()
	}
	if a.floor != b.floor {
		return a.floor
	}
	c, _ := a.key.Compare(b.key)
	return c < 0
}

// Index maps the values of one column to row positions.
type Index struct {
	Table  string
	Column string
	// Generation is the table generation this index was last synchronised
	// with. Set by the owning table before the index is persisted.
	Generation uint64

	tree *btree.BTreeG[*entry]
}

func New(table, column string) *Index {
	return &Index{
		Table:  table,
		Column: column,
		tree:   btree.NewG(degree, less),
	}
}

// Build creates an index from the column values in row order.
func Build(table, column string, values []core.Value) *Index {
	idx := New(table, column)
	for pos, v := range values {
		idx.Insert(v, pos)
	}
	return idx
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int {
	return idx.tree.Len()
}

// Insert adds a row position under v. Positions under a key are kept in
// ascending order, so appending the next row is constant time.
func (idx *Index) Insert(v core.Value, pos int) {
	e, ok := idx.tree.Get(&entry{key: v})
	if !ok {
		idx.tree.ReplaceOrInsert(&entry{key: v, rows: []int{pos}})
		return
	}
	if n := len(e.rows); n == 0 || e.rows[n-1] < pos {
		e.rows = append(e.rows, pos)
		return
	}
	if i, found := slices.BinarySearch(e.rows, pos); !found {
		e.rows = slices.Insert(e.rows, i, pos)
	}
}

// Remove deletes a row position from under v, dropping the key once it has
// no positions left. It reports whether the position was present.
func (idx *Index) Remove(v core.Value, pos int) bool {
	e, ok := idx.tree.Get(&entry{key: v})
	if !ok {
		return false
	}
	i, found := slices.BinarySearch(e.rows, pos)
	if !found {
		return false
	}
	e.rows = slices.Delete(e.rows, i, i+1)
	if len(e.rows) == 0 {
		idx.tree.Delete(e)
	}
	return true
}

// Move re-files a row position from one value to another.
func (idx *Index) Move(from, to core.Value, pos int) {
	idx.Remove(from, pos)
	idx.Insert(to, pos)
}

// Refile moves every position in positions (ascending) to the key to. from
// gives each position's current key. Each key touched is rewritten once, so
// moving many rows that share a key stays linear.
func (idx *Index) Refile(positions []int, from func(pos int) core.Value, to core.Value) {
	if len(positions) == 0 {
		return
	}

	moving := make(map[int]bool, len(positions))
	sources := btree.NewG(degree, less)
	for _, pos := range positions {
		moving[pos] = true
		sources.ReplaceOrInsert(&entry{key: from(pos)})
	}
	sources.Ascend(func(k *entry) bool {
		if e, ok := idx.tree.Get(k); ok {
			e.rows = slices.DeleteFunc(e.rows, func(pos int) bool { return moving[pos] })
			if len(e.rows) == 0 {
				idx.tree.Delete(e)
			}
		}
		return true
	})

	if e, ok := idx.tree.Get(&entry{key: to}); ok {
		e.rows = mergeSorted(e.rows, positions)
		return
	}
	idx.tree.ReplaceOrInsert(&entry{key: to, rows: slices.Clone(positions)})
}

// mergeSorted merges two ascending slices, dropping duplicates.
func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var next int
		switch {
		case j == len(b) || (i < len(a) && a[i] < b[j]):
			next, i = a[i], i+1
		case i == len(a) || b[j] < a[i]:
			next, j = b[j], j+1
		default:
			next, i, j = a[i], i+1, j+1
		}
		if n := len(out); n == 0 || out[n-1] != next {
			out = append(out, next)
		}
	}
	return out
}

// CheckPositions fails if any stored position falls outside [0, n).
func (idx *Index) CheckPositions(n int) error {
	var err error
	idx.tree.Ascend(func(e *entry) bool {
		if len(e.rows) == 0 {
			return true
		}
		if lo, hi := e.rows[0], e.rows[len(e.rows)-1]; lo < 0 || hi >= n {
			err = fmt.Errorf("index %s.%s: position out of range for %d rows under key %v", idx.Table, idx.Column, n, e.key)
			return false
		}
		return true
	})
	return err
}

// Contains reports whether any row holds v.
func (idx *Index) Contains(v core.Value) bool {
	return idx.tree.Has(&entry{key: v})
}

// Get returns the positions stored under v.
func (idx *Index) Get(v core.Value) []int {
	if e, ok := idx.tree.Get(&entry{key: v}); ok {
		return slices.Clone(e.rows)
	}
	return nil
}

// Remap rewrites every position through fn. Positions for which fn returns
// false are dropped.
func (idx *Index) Remap(fn func(old int) (int, bool)) {
	var empty []*entry
	idx.tree.Ascend(func(e *entry) bool {
		kept := e.rows[:0]
		for _, pos := range e.rows {
			if next, ok := fn(pos); ok {
				kept = append(kept, next)
			}
		}
		if !slices.IsSorted(kept) {
			slices.Sort(kept)
		}
		e.rows = kept
		if len(kept) == 0 {
			empty = append(empty, e)
		}
		return true
	})
	for _, e := range empty {
		idx.tree.Delete(e)
	}
}

// Ascend calls fn for every key in order until fn returns false.
func (idx *Index) Ascend(fn func(key core.Value, rows []int) bool) {
	idx.tree.Ascend(func(e *entry) bool {
		return fn(e.key, e.rows)
	})
}

// Lookup returns the positions whose key satisfies cond, in key order.
// NotEqual and NotNull cannot be answered from the index.
func (idx *Index) Lookup(cond core.FilterCondition) ([]int, error) {
	var rows []int
	collect := func(e *entry) {
		rows = append(rows, e.rows...)
	}

	switch cond.Op {
	case core.OpEqual:
		return idx.Get(cond.Value), nil
	case core.OpTrue:
		return idx.Get(core.Boolean(true)), nil
	case core.OpFalse:
		return idx.Get(core.Boolean(false)), nil
	case core.OpNull:
		return idx.Get(core.Null()), nil
	case core.OpNotEqual:
		return nil, core.ActionNotImplemented("index lookup on inequality")
	case core.OpNotNull:
		return nil, core.ActionNotImplemented("index lookup on non-null values")
	}

	if cond.Value.IsNull() {
		return nil, core.MismatchedConditionType("non-null operand", cond)
	}
	kind := cond.Value.Kind()

	switch cond.Op {
	case core.OpLessThan, core.OpLessThanOrEqualTo:
		inclusive := cond.Op == core.OpLessThanOrEqualTo
		idx.tree.AscendGreaterOrEqual(&entry{key: cond.Value, floor: true}, func(e *entry) bool {
			if e.key.Kind() != kind {
				return false
			}
			c, _ := e.key.Compare(cond.Value)
			if c > 0 || (c == 0 && !inclusive) {
				return false
			}
			collect(e)
			return true
		})
	case core.OpGreaterThan, core.OpGreaterThanOrEqualTo:
		inclusive := cond.Op == core.OpGreaterThanOrEqualTo
		idx.tree.AscendGreaterOrEqual(&entry{key: cond.Value}, func(e *entry) bool {
			if e.key.Kind() != kind {
				return false
			}
			if !inclusive && e.key.Equal(cond.Value) {
				return true
			}
			collect(e)
			return true
		})
	case core.OpNumberBetween, core.OpDateBetween:
		if cond.Upper.Kind() != kind {
			return nil, core.MismatchedConditionType(kind.String()+" range", cond)
		}
		idx.tree.AscendGreaterOrEqual(&entry{key: cond.Value}, func(e *entry) bool {
			if e.key.Kind() != kind {
				return false
			}
			if c, _ := e.key.Compare(cond.Upper); c > 0 {
				return false
			}
			collect(e)
			return true
		})
	default:
		return nil, core.ActionNotImplemented(fmt.Sprintf("index lookup for %s", cond))
	}

	return rows, nil
}

type encodedEntry struct {
	Key  core.Value `json:"key"`
	Rows []int      `json:"rows"`
}

type encodedIndex struct {
	Table      string         `json:"table"`
	Column     string         `json:"column"`
	Generation uint64         `json:"generation"`
	Entries    []encodedEntry `json:"entries"`
}

func (idx *Index) MarshalJSON() ([]byte, error) {
	enc := encodedIndex{
		Table:      idx.Table,
		Column:     idx.Column,
		Generation: idx.Generation,
		Entries:    make([]encodedEntry, 0, idx.tree.Len()),
	}
	idx.tree.Ascend(func(e *entry) bool {
		enc.Entries = append(enc.Entries, encodedEntry{Key: e.key, Rows: e.rows})
		return true
	})
	return json.Marshal(enc)
}

func (idx *Index) UnmarshalJSON(data []byte) error {
	var enc encodedIndex
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}

	idx.Table = enc.Table
	idx.Column = enc.Column
	idx.Generation = enc.Generation
	idx.tree = btree.NewG(degree, less)
	for _, e := range enc.Entries {
		for _, pos := range e.Rows {
			idx.Insert(e.Key, pos)
		}
	}
	return nil
}

package db

import (
	"errors"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/index"
	"github.com/nickyhof/SequelDB/internal/logging"
	"github.com/nickyhof/SequelDB/ps"
)

// indexSink writes indexes through to a blob store as they change.
type indexSink struct {
	store ps.BlobStore
	dir   string
}

// WithIndexStore persists every index change to store under dir.
func WithIndexStore(store ps.BlobStore, dir string) Option {
	return func(t *Table) {
		t.AttachIndexStore(store, dir)
	}
}

// AttachIndexStore enables write-through index persistence. A nil store
// disables it.
func (t *Table) AttachIndexStore(store ps.BlobStore, dir string) {
	if store == nil {
		t.sink = nil
		return
	}
	t.sink = &indexSink{store: store, dir: dir}
}

func encodeIndex(idx *index.Index, generation uint64) ([]byte, error) {
	idx.Generation = generation
	return json.Marshal(idx)
}

func decodeIndex(data []byte) (*index.Index, error) {
	idx := index.New("", "")
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// persistIndexes writes the named indexes, or all of them when none are
// named.
func (t *Table) persistIndexes(columns ...string) error {
	if t.sink == nil {
		return nil
	}
	if len(columns) == 0 {
		columns = t.IndexedColumns()
	}

	var errs []error
	for _, col := range columns {
		idx, ok := t.indexes[col]
		if !ok {
			continue
		}

		path := ps.IndexPath(t.sink.dir, t.name, col)
		data, err := encodeIndex(idx, t.generation)
		if err != nil {
			errs = append(errs, core.StorageFailure(path, err))
			continue
		}
		if err := t.sink.store.Put(path, data); err != nil {
			errs = append(errs, core.StorageFailure(path, err))
			continue
		}
		logging.IndexEvent("persist", t.name, col, "generation", t.generation, "keys", idx.Len())
	}
	return errors.Join(errs...)
}

func (t *Table) deleteIndexBlob(column string) error {
	if t.sink == nil {
		return nil
	}

	path := ps.IndexPath(t.sink.dir, t.name, column)
	if err := t.sink.store.Delete(path); err != nil {
		return core.StorageFailure(path, err)
	}
	return nil
}

// VerifyIndexes checks every live index against one rebuilt from the rows.
func (t *Table) VerifyIndexes() error {
	var errs []error
	for _, col := range t.IndexedColumns() {
		values, _ := t.Values(col)
		want := index.Build(t.name, col, values)
		got := t.indexes[col]

		if got.Len() != want.Len() {
			errs = append(errs, fmt.Errorf("index %s.%s: %d keys, expected %d", t.name, col, got.Len(), want.Len()))
			continue
		}
		want.Ascend(func(key core.Value, rows []int) bool {
			have := got.Get(key)
			slices.Sort(have)
			if !slices.Equal(have, rows) {
				errs = append(errs, fmt.Errorf("index %s.%s: key %s maps to %v, expected %v", t.name, col, key, have, rows))
				return false
			}
			return true
		})
	}
	return errors.Join(errs...)
}

package db

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/index"
	"github.com/nickyhof/SequelDB/internal/logging"
	"github.com/nickyhof/SequelDB/ps"
)

const blobFormat = 1

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrStaleIndex       = errors.New("stale index")

	xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
)

type tableSnapshot struct {
	Name         string         `json:"name"`
	Columns      []core.Column  `json:"columns"`
	SyntheticKey string         `json:"syntheticKey,omitempty"`
	NextTupleID  uint64         `json:"nextTupleId"`
	Generation   uint64         `json:"generation"`
	Indexes      []string       `json:"indexes"`
	Rows         [][]core.Value `json:"rows"`
}

type tableEnvelope struct {
	Format   int             `json:"format"`
	Checksum string          `json:"checksum"`
	Table    json.RawMessage `json:"table"`
}

type saveOptions struct {
	compress bool
}

type SaveOption func(*saveOptions)

// Compressed stores the table blob xz-compressed. Load detects it.
func Compressed() SaveOption {
	return func(o *saveOptions) { o.compress = true }
}

// MarshalTable encodes the table (rows and schema, not indexes) as a
// checksummed blob.
func MarshalTable(t *Table, opts ...SaveOption) ([]byte, error) {
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	snap := tableSnapshot{
		Name:         t.name,
		Columns:      t.columns,
		SyntheticKey: t.syntheticKey,
		NextTupleID:  t.nextTupleID,
		Generation:   t.generation,
		Indexes:      t.IndexedColumns(),
		Rows:         make([][]core.Value, len(t.rows)),
	}
	for i, row := range t.rows {
		cells := make([]core.Value, len(t.columns))
		for j, c := range t.columns {
			cells[j] = row[c.Name]
		}
		snap.Rows[i] = cells
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode table %s: %w", t.name, err)
	}
	sum := blake3.Sum256(body)

	data, err := json.Marshal(tableEnvelope{
		Format:   blobFormat,
		Checksum: hex.EncodeToString(sum[:]),
		Table:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode table %s: %w", t.name, err)
	}

	if !o.compress {
		return data, nil
	}

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress table %s: %w", t.name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress table %s: %w", t.name, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalTable decodes a blob written by MarshalTable. Indexes are not
// restored; primary key indexes are rebuilt from the rows.
func UnmarshalTable(data []byte) (*Table, []string, error) {
	if bytes.HasPrefix(data, xzMagic) {
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open xz stream: %w", err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, nil, fmt.Errorf("failed to decompress: %w", err)
		}
	}

	var env tableEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to decode table envelope: %w", err)
	}
	if env.Format != blobFormat {
		return nil, nil, fmt.Errorf("unsupported table format %d", env.Format)
	}

	sum := blake3.Sum256(env.Table)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return nil, nil, ErrChecksumMismatch
	}

	var snap tableSnapshot
	if err := json.Unmarshal(env.Table, &snap); err != nil {
		return nil, nil, fmt.Errorf("failed to decode table: %w", err)
	}
	if err := validateColumns(snap.Columns); err != nil {
		return nil, nil, err
	}

	t := &Table{
		name:         snap.Name,
		columns:      snap.Columns,
		rows:         make([]Row, len(snap.Rows)),
		indexes:      make(map[string]*index.Index),
		syntheticKey: snap.SyntheticKey,
		nextTupleID:  snap.NextTupleID,
		generation:   snap.Generation,
	}

	for i, cells := range snap.Rows {
		if len(cells) != len(t.columns) {
			return nil, nil, fmt.Errorf("row %d has %d values, expected %d", i, len(cells), len(t.columns))
		}
		row := make(Row, len(cells))
		for j, c := range t.columns {
			if v := cells[j]; !v.IsNull() && v.Kind() != c.Type.Kind() {
				return nil, nil, fmt.Errorf("row %d: %w", i, core.MismatchDataType(c.Type, v.Kind()))
			}
			row[c.Name] = cells[j]
		}
		t.rows[i] = row
	}

	for _, key := range t.PrimaryKeys() {
		values, _ := t.Values(key)
		t.indexes[key] = index.Build(t.name, key, values)
	}
	return t, snap.Indexes, nil
}

// Save writes the table blob to <dir>/<NAME>.table and one blob per index
// to <dir>/<NAME>.index.<column>, removing index blobs that no longer have
// a live index. Stores implementing ps.BatchStore apply all of it
// atomically.
func Save(store ps.BlobStore, dir string, t *Table, opts ...SaveOption) error {
	tablePath := ps.TablePath(dir, t.name)

	data, err := MarshalTable(t, opts...)
	if err != nil {
		return core.StorageFailure(tablePath, err)
	}

	writes := map[string][]byte{tablePath: data}
	for col, idx := range t.indexes {
		path := ps.IndexPath(dir, t.name, col)
		blob, err := encodeIndex(idx, t.generation)
		if err != nil {
			return core.StorageFailure(path, err)
		}
		writes[path] = blob
	}

	stored, err := ps.ListIndexes(store, dir, t.name)
	if err != nil {
		return core.StorageFailure(dir, err)
	}
	var deletes []string
	for _, col := range stored {
		if !t.HasIndex(col) {
			deletes = append(deletes, ps.IndexPath(dir, t.name, col))
		}
	}

	if batch, ok := store.(ps.BatchStore); ok {
		if err := batch.PutAll(writes, deletes); err != nil {
			return core.StorageFailure(tablePath, err)
		}
		return nil
	}

	// indexes first: a crash before the table blob lands is then reported
	// as a stale index on load
	paths := make([]string, 0, len(writes))
	for p := range writes {
		if p != tablePath {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	for _, p := range append(paths, tablePath) {
		if err := store.Put(p, writes[p]); err != nil {
			return core.StorageFailure(p, err)
		}
	}
	for _, p := range deletes {
		if err := store.Delete(p); err != nil {
			return core.StorageFailure(p, err)
		}
	}
	return nil
}

// Load reads the table blob at path and its index blobs. A missing index
// blob is rebuilt from the rows; an index blob written at a different
// generation than the table fails with ErrStaleIndex, and one pointing past
// the last row fails with ErrStorageFailure.
func Load(store ps.BlobStore, path string) (*Table, error) {
	dir, blobName, err := ps.SplitTablePath(path)
	if err != nil {
		return nil, core.StorageFailure(path, err)
	}

	data, err := store.Get(path)
	if err != nil {
		return nil, core.StorageFailure(path, err)
	}

	t, indexed, err := UnmarshalTable(data)
	if err != nil {
		return nil, core.StorageFailure(path, err)
	}

	for _, col := range indexed {
		if !t.hasColumn(col) {
			return nil, core.StorageFailure(path, core.InvalidColumn(col))
		}

		ipath := ps.IndexPath(dir, blobName, col)
		blob, err := store.Get(ipath)
		if errors.Is(err, ps.ErrBlobNotFound) {
			logging.Warn("index blob missing, rebuilding", "table", t.name, "column", col, "path", ipath)
			values, _ := t.Values(col)
			t.indexes[col] = index.Build(t.name, col, values)
			continue
		}
		if err != nil {
			return nil, core.StorageFailure(ipath, err)
		}

		idx, err := decodeIndex(blob)
		if err != nil {
			return nil, core.StorageFailure(ipath, err)
		}
		if idx.Generation != t.generation {
			logging.Warn("stale index", "table", t.name, "column", col, "index_generation", idx.Generation, "table_generation", t.generation)
			return nil, core.StorageFailure(ipath, fmt.Errorf("%w: built at generation %d, table is at %d", ErrStaleIndex, idx.Generation, t.generation))
		}
		if err := idx.CheckPositions(len(t.rows)); err != nil {
			return nil, core.StorageFailure(ipath, err)
		}
		idx.Table, idx.Column = t.name, col
		t.indexes[col] = idx
	}

	return t, nil
}

package ps

import (
	"errors"
	"fmt"
	"path"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/SequelDB/core"
)

const (
	databaseExt = ".database"
	tableExt    = ".table"
	indexInfix  = ".index."
)

// BlobName is the storage name of a table: upper-cased with spaces
// replaced by underscores.
func BlobName(table string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(table)), " ", "_")
}

// TablePath returns <dir>/<NAME>.table.
func TablePath(dir, table string) string {
	return cleanPath(path.Join(dir, BlobName(table)+tableExt))
}

// IndexPath returns <dir>/<NAME>.index.<column>.
func IndexPath(dir, table, column string) string {
	return cleanPath(path.Join(dir, BlobName(table)+indexInfix+column))
}

// SplitTablePath reverses TablePath, returning the directory and blob name.
func SplitTablePath(p string) (dir, name string, err error) {
	dir, file := path.Split(cleanPath(p))
	name, ok := strings.CutSuffix(file, tableExt)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%s is not a table path", p)
	}
	return strings.TrimSuffix(dir, "/"), name, nil
}

// CreateDatabase writes the <name>.database marker.
func CreateDatabase(store BlobStore, database core.Database) error {
	data, err := json.Marshal(database)
	if err != nil {
		return fmt.Errorf("failed to marshal database: %w", err)
	}
	return store.Put(database.Name+databaseExt, data)
}

func GetDatabase(store BlobStore, name string) (*core.Database, error) {
	data, err := store.Get(name + databaseExt)
	if err != nil {
		return nil, fmt.Errorf("database %s does not exist: %w", name, err)
	}

	var d core.Database
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal database: %w", err)
	}
	return &d, nil
}

// DropDatabase removes the marker and every blob under the database
// directory.
func DropDatabase(store BlobStore, name string) error {
	names, err := store.List(name)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(names)+1)
	for _, n := range names {
		paths = append(paths, path.Join(name, n))
	}
	paths = append(paths, name+databaseExt)

	if batch, ok := store.(BatchStore); ok {
		return batch.PutAll(nil, paths)
	}

	var errs []error
	for _, p := range paths {
		errs = append(errs, store.Delete(p))
	}
	return errors.Join(errs...)
}

// ListDatabases returns the names of every database marker at the root.
func ListDatabases(store BlobStore) ([]string, error) {
	names, err := store.List("")
	if err != nil {
		return nil, err
	}

	var databases []string
	for _, n := range names {
		if db, ok := strings.CutSuffix(n, databaseExt); ok {
			databases = append(databases, db)
		}
	}
	return databases, nil
}

// ListTables returns the blob names of the tables stored under dir.
func ListTables(store BlobStore, dir string) ([]string, error) {
	names, err := store.List(dir)
	if err != nil {
		return nil, err
	}

	var tables []string
	for _, n := range names {
		if t, ok := strings.CutSuffix(n, tableExt); ok {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// ListIndexes returns the indexed column names stored for table under dir.
func ListIndexes(store BlobStore, dir, table string) ([]string, error) {
	names, err := store.List(dir)
	if err != nil {
		return nil, err
	}

	prefix := BlobName(table) + indexInfix
	var columns []string
	for _, n := range names {
		if col, ok := strings.CutPrefix(n, prefix); ok {
			columns = append(columns, col)
		}
	}
	return columns, nil
}

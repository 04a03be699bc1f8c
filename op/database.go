package op

import (
	"errors"
	"fmt"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/db"
	"github.com/nickyhof/SequelDB/ps"
)

var (
	ErrTableExists   = errors.New("table already exists")
	ErrTableNotFound = errors.New("table does not exist")
)

// DatabaseOp binds a database, stored as a directory of table and index
// blobs, to a blob store.
type DatabaseOp struct {
	Database core.Database
	Store    ps.BlobStore

	// AutoCommit makes every TableOp mutation save the table immediately.
	AutoCommit bool
	// WriteThrough persists index changes as they happen, ahead of Commit.
	WriteThrough bool
	// Compress stores table blobs xz-compressed.
	Compress bool
}

func CreateDatabase(database core.Database, store ps.BlobStore) (*DatabaseOp, error) {
	if err := ps.CreateDatabase(store, database); err != nil {
		return nil, fmt.Errorf("failed to create database %s: %w", database.Name, err)
	}

	return &DatabaseOp{
		Database: database,
		Store:    store,
	}, nil
}

func GetDatabase(name string, store ps.BlobStore) (*DatabaseOp, error) {
	d, err := ps.GetDatabase(store, name)
	if err != nil {
		return nil, err
	}
	return &DatabaseOp{
		Database: *d,
		Store:    store,
	}, nil
}

// OpenDatabase returns the named database, creating it when missing.
func OpenDatabase(name string, store ps.BlobStore) (*DatabaseOp, error) {
	op, err := GetDatabase(name, store)
	if errors.Is(err, ps.ErrBlobNotFound) {
		return CreateDatabase(core.Database{Name: name}, store)
	}
	return op, err
}

func (op *DatabaseOp) DropDatabase() error {
	return ps.DropDatabase(op.Store, op.Database.Name)
}

// TableNames returns the blob names of the stored tables.
func (op *DatabaseOp) TableNames() ([]string, error) {
	return ps.ListTables(op.Store, op.Database.Name)
}

func (op *DatabaseOp) tablePath(name string) string {
	return ps.TablePath(op.Database.Name, name)
}

func (op *DatabaseOp) bind(table *db.Table) *TableOp {
	if op.WriteThrough {
		table.AttachIndexStore(op.Store, op.Database.Name)
	}
	return &TableOp{database: op, Table: table}
}

// CreateTable creates and stores an empty table.
func (op *DatabaseOp) CreateTable(name string, columns []core.Column) (*TableOp, error) {
	exists, err := op.Store.Exists(op.tablePath(name))
	if err != nil {
		return nil, core.StorageFailure(op.tablePath(name), err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableExists, op.Database.Name, name)
	}

	table, err := db.New(name, columns)
	if err != nil {
		return nil, err
	}

	tableOp := op.bind(table)
	if _, err := tableOp.Commit(); err != nil {
		return nil, err
	}
	return tableOp, nil
}

// GetTable loads a stored table together with its indexes.
func (op *DatabaseOp) GetTable(name string) (*TableOp, error) {
	path := op.tablePath(name)

	table, err := db.Load(op.Store, path)
	if errors.Is(err, ps.ErrBlobNotFound) {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, op.Database.Name, name)
	}
	if err != nil {
		return nil, err
	}
	return op.bind(table), nil
}

// DropTable removes the table blob and all of its index blobs.
func (op *DatabaseOp) DropTable(name string) error {
	path := op.tablePath(name)
	exists, err := op.Store.Exists(path)
	if err != nil {
		return core.StorageFailure(path, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s.%s", ErrTableNotFound, op.Database.Name, name)
	}

	columns, err := ps.ListIndexes(op.Store, op.Database.Name, name)
	if err != nil {
		return core.StorageFailure(op.Database.Name, err)
	}
	deletes := []string{path}
	for _, col := range columns {
		deletes = append(deletes, ps.IndexPath(op.Database.Name, name, col))
	}

	if batch, ok := op.Store.(ps.BatchStore); ok {
		if err := batch.PutAll(nil, deletes); err != nil {
			return core.StorageFailure(path, err)
		}
		return nil
	}

	var errs []error
	for _, p := range deletes {
		if err := op.Store.Delete(p); err != nil {
			errs = append(errs, core.StorageFailure(p, err))
		}
	}
	return errors.Join(errs...)
}

// Restore resets the database directory to asof. Only git-backed stores
// keep history.
func (op *DatabaseOp) Restore(asof ps.Transaction) error {
	git, ok := op.Store.(*ps.GitStore)
	if !ok {
		return core.ActionNotImplemented("restore on a store without history")
	}
	return git.Persistence().Restore(asof, op.Database.Name)
}

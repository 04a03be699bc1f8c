package op

import (
	"errors"
	"fmt"
	"time"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/db"
	"github.com/nickyhof/SequelDB/internal/logging"
	"github.com/nickyhof/SequelDB/ps"
)

// TableOp is a live table bound to the database it was loaded from.
type TableOp struct {
	Table *db.Table

	database *DatabaseOp
}

func (op *TableOp) Path() string {
	return op.database.tablePath(op.Table.Name())
}

func (op *TableOp) PrimaryKey() (pk *string, err error) {
	keys := op.Table.PrimaryKeys()
	if len(keys) == 0 {
		return nil, core.ErrPrimaryKeyRequired
	}
	return &keys[0], nil
}

// Commit saves the table and its indexes. On a git-backed store this is a
// single commit, returned as the transaction; other stores return a zero
// Transaction.
func (op *TableOp) Commit() (txn ps.Transaction, err error) {
	var opts []db.SaveOption
	if op.database.Compress {
		opts = append(opts, db.Compressed())
	}

	if err := db.Save(op.database.Store, op.database.Database.Name, op.Table, opts...); err != nil {
		return ps.Transaction{}, err
	}

	if git, ok := op.database.Store.(*ps.GitStore); ok {
		txn = git.Persistence().LatestTransaction()
		logging.CommitEvent(op.Table.Name(), txn.Id, "rows", op.Table.Len(), "generation", op.Table.Generation())
	}
	return txn, nil
}

func (op *TableOp) mutation(action string, start time.Time, affected uint32) (db.MutationResult, error) {
	result := db.MutationResult{
		Table:        op.Table.Name(),
		Action:       action,
		RowsAffected: affected,
	}

	if op.database.AutoCommit && affected > 0 {
		txn, err := op.Commit()
		if err != nil {
			return result, err
		}
		result.Transaction = txn
	}
	result.ExecutionTimeSec = time.Since(start).Seconds()
	return result, nil
}

// Insert inserts rows in order and stops at the first one that fails. Rows
// before it stay inserted: the result counts them (and commits them under
// AutoCommit) alongside the error.
func (op *TableOp) Insert(rows ...db.Row) (db.MutationResult, error) {
	start := time.Now()

	var inserted uint32
	for _, row := range rows {
		if err := op.Table.InsertRow(row); err != nil {
			result, commitErr := op.mutation("inserted", start, inserted)
			return result, errors.Join(fmt.Errorf("row %d: %w", inserted+1, err), commitErr)
		}
		inserted++
	}
	return op.mutation("inserted", start, inserted)
}

func (op *TableOp) Update(filterColumn, editColumn string, cond core.FilterCondition, value core.Value) (db.MutationResult, error) {
	start := time.Now()

	n, err := op.Table.EditRows(filterColumn, editColumn, cond, value)
	if err != nil {
		return db.MutationResult{}, err
	}
	return op.mutation("updated", start, n)
}

func (op *TableOp) Delete(column string, cond core.FilterCondition) (db.MutationResult, error) {
	start := time.Now()

	n, err := op.Table.DeleteRows(column, cond)
	if err != nil {
		return db.MutationResult{}, err
	}
	return op.mutation("deleted", start, n)
}

// Select filters the table. An empty column selects every row.
func (op *TableOp) Select(column string, cond core.FilterCondition) (db.QueryResult, error) {
	if column == "" {
		return db.Timed(func() (*db.Table, error) {
			return op.Table.SelectColumns(op.Table.ColumnNames())
		})
	}
	return db.Timed(func() (*db.Table, error) {
		return op.Table.SelectRows(column, cond)
	})
}

func (op *TableOp) Sort(kind core.SortCondition, column string) (db.MutationResult, error) {
	start := time.Now()

	if err := op.Table.SortRows(kind, column); err != nil {
		return db.MutationResult{}, err
	}
	return op.mutation("sorted", start, uint32(op.Table.Len()))
}

// Index builds a secondary index on column and stores it.
func (op *TableOp) Index(column string) (db.MutationResult, error) {
	start := time.Now()

	if err := op.Table.IndexColumn(column); err != nil {
		return db.MutationResult{}, err
	}
	return op.mutation("indexed", start, uint32(op.Table.Len()))
}

// Reindex rebuilds every index from the rows.
func (op *TableOp) Reindex() (db.MutationResult, error) {
	start := time.Now()

	if err := op.Table.Reindex(); err != nil {
		return db.MutationResult{}, err
	}
	return op.mutation("reindexed", start, uint32(op.Table.Len()))
}

// Snapshot tags the last commit with name. Only git-backed stores keep
// history.
func (op *TableOp) Snapshot(name string) error {
	git, ok := op.database.Store.(*ps.GitStore)
	if !ok {
		return core.ActionNotImplemented("snapshot on a store without history")
	}
	return git.Persistence().Snapshot(name, nil)
}

// Restore resets this table's blobs to asof.
func (op *TableOp) Restore(asof ps.Transaction) (*TableOp, error) {
	if err := op.database.Restore(asof); err != nil {
		return nil, err
	}
	return op.database.GetTable(op.Table.Name())
}

// CopyTo saves the table under dir in another store, e.g. an S3 export.
func (op *TableOp) CopyTo(store ps.BlobStore, dir string) error {
	var opts []db.SaveOption
	if op.database.Compress {
		opts = append(opts, db.Compressed())
	}
	return db.Save(store, dir, op.Table, opts...)
}

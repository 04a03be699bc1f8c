package ps

import (
	"errors"
	"fmt"

	"github.com/nickyhof/SequelDB/core"
)

var ErrTransactionClosed = errors.New("transaction not started")

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// Operation is a single pending change in a TransactionBuilder.
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

// TransactionBuilder collects blob writes and deletes and commits them as
// one git commit.
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

// BeginTransaction starts a new batch.
func (p *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{persistence: p, started: true}, nil
}

// AddWrite queues data to be written at path.
func (tb *TransactionBuilder) AddWrite(path string, data []byte) error {
	if !tb.started {
		return ErrTransactionClosed
	}
	tb.operations = append(tb.operations, Operation{Type: WriteOp, Path: path, Data: data})
	return nil
}

// AddDelete queues the removal of path.
func (tb *TransactionBuilder) AddDelete(path string) error {
	if !tb.started {
		return ErrTransactionClosed
	}
	tb.operations = append(tb.operations, Operation{Type: DeleteOp, Path: path})
	return nil
}

// Commit applies every queued operation in a single commit. Later
// operations on the same path win.
func (tb *TransactionBuilder) Commit(identity core.Identity, message string) (Transaction, error) {
	if !tb.started {
		return Transaction{}, ErrTransactionClosed
	}
	if len(tb.operations) == 0 {
		return Transaction{}, fmt.Errorf("no operations to commit")
	}

	changes := make([]TreeChange, 0, len(tb.operations))
	seen := make(map[string]int, len(tb.operations))
	for _, op := range tb.operations {
		change := TreeChange{Path: op.Path, IsDelete: op.Type == DeleteOp}
		if op.Type == WriteOp {
			hash, err := tb.persistence.createBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			change.BlobHash = hash
		}

		if i, ok := seen[op.Path]; ok {
			changes[i] = change
			continue
		}
		seen[op.Path] = len(changes)
		changes = append(changes, change)
	}

	if message == "" {
		message = fmt.Sprintf("Batch transaction: %d operation(s)", len(tb.operations))
	}

	txn, err := tb.persistence.applyChanges(changes, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	tb.Rollback()
	return txn, nil
}

// Rollback discards all queued operations.
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}

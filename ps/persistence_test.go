package ps

import (
	"errors"
	"testing"

	"github.com/nickyhof/SequelDB/core"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence Persistence

	if persistence.IsInitialized() {
		t.Error("Expected uninitialized persistence to return false")
	}
	if _, err := persistence.ReadFileDirect("a"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestNewFilePersistenceReopens(t *testing.T) {
	dir := t.TempDir()

	p, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	if _, err := p.WriteFileDirect("shop/PEOPLE.table", []byte("rows"), testIdentity, "write"); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	reopened, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen file persistence: %v", err)
	}
	data, err := reopened.ReadFileDirect("shop/PEOPLE.table")
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "rows" {
		t.Errorf("Expected 'rows', got '%s'", data)
	}
}

func TestWriteAndReadFileDirect(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	txn, err := p.WriteFileDirect("db/A.table", []byte("one"), testIdentity, "first")
	if err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if txn.Id == "" {
		t.Error("Expected transaction ID to be set")
	}

	if _, err := p.WriteFileDirect("db/A.table", []byte("two"), testIdentity, "second"); err != nil {
		t.Fatalf("Failed to overwrite file: %v", err)
	}

	data, err := p.ReadFileDirect("db/A.table")
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("Expected 'two', got '%s'", data)
	}

	if latest := p.LatestTransaction(); latest.Message != "second" {
		t.Errorf("Expected latest message 'second', got '%s'", latest.Message)
	}
}

func TestReadMissingFile(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if _, err := p.ReadFileDirect("nope"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Expected ErrBlobNotFound on empty repository, got %v", err)
	}

	p.WriteFileDirect("db/A.table", []byte("x"), testIdentity, "write")
	if _, err := p.ReadFileDirect("db/B.table"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Expected ErrBlobNotFound, got %v", err)
	}
	if _, err := p.ReadFileDirect("other/B.table"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Expected ErrBlobNotFound for missing directory, got %v", err)
	}
}

func TestDeletePathDirectPrunesDirectories(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	p.WriteFileDirect("db/A.table", []byte("a"), testIdentity, "write")
	p.WriteFileDirect("root.database", []byte("{}"), testIdentity, "write")

	if _, err := p.DeletePathDirect([]string{"db/A.table", "db/missing"}, testIdentity, "delete"); err != nil {
		t.Fatalf("Failed to delete path: %v", err)
	}

	entries, err := p.ListEntriesDirect("")
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "root.database" {
		t.Errorf("Expected only root.database to remain, got %v", entries)
	}
}

func TestHistory(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if history, err := p.History(0); err != nil || len(history) != 0 {
		t.Errorf("Expected empty history, got %v (%v)", history, err)
	}

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := p.WriteFileDirect("f", []byte(msg), testIdentity, msg); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
	}

	history, err := p.History(2)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(history))
	}
	if history[0].Message != "three" || history[1].Message != "two" {
		t.Errorf("Expected newest first, got %q then %q", history[0].Message, history[1].Message)
	}
	if history[0].Author != "test <test@test.com>" {
		t.Errorf("Expected author 'test <test@test.com>', got '%s'", history[0].Author)
	}
}

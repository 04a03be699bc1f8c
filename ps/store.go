package ps

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/internal/logging"
)

// BlobStore is a flat namespace of byte blobs addressed by slash separated
// paths. Get on a missing path returns an error wrapping ErrBlobNotFound.
type BlobStore interface {
	Put(path string, data []byte) error
	Get(path string) ([]byte, error)
	Delete(path string) error
	Exists(path string) (bool, error)
	// List returns the names of the blobs directly under dir, sorted.
	List(dir string) ([]string, error)
}

// BatchStore is a BlobStore that can apply several writes and deletes
// atomically.
type BatchStore interface {
	BlobStore
	PutAll(writes map[string][]byte, deletes []string) error
}

func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// GitStore stores blobs in a git repository, one commit per write.
type GitStore struct {
	persistence *Persistence
	identity    core.Identity
}

func NewGitStore(p *Persistence, identity core.Identity) *GitStore {
	return &GitStore{persistence: p, identity: identity}
}

// Persistence exposes the underlying repository for history, snapshots and
// remotes.
func (s *GitStore) Persistence() *Persistence {
	return s.persistence
}

func (s *GitStore) Put(p string, data []byte) error {
	p = cleanPath(p)

	s.persistence.Lock()
	defer s.persistence.Unlock()

	txn, err := s.persistence.WriteFileDirect(p, data, s.identity, "Writing "+p)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	logging.StorageEvent("put", p, "transaction_id", txn.Id)
	return nil
}

func (s *GitStore) Get(p string) ([]byte, error) {
	s.persistence.RLock()
	defer s.persistence.RUnlock()

	return s.persistence.ReadFileDirect(cleanPath(p))
}

func (s *GitStore) Delete(p string) error {
	p = cleanPath(p)

	s.persistence.Lock()
	defer s.persistence.Unlock()

	if _, err := s.persistence.ReadFileDirect(p); errors.Is(err, ErrBlobNotFound) {
		return nil
	}

	txn, err := s.persistence.DeletePathDirect([]string{p}, s.identity, "Deleting "+p)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	logging.StorageEvent("delete", p, "transaction_id", txn.Id)
	return nil
}

func (s *GitStore) Exists(p string) (bool, error) {
	_, err := s.Get(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrBlobNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *GitStore) List(dir string) ([]string, error) {
	s.persistence.RLock()
	defer s.persistence.RUnlock()

	entries, err := s.persistence.ListEntriesDirect(cleanPath(dir))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir {
			names = append(names, e.Name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// PutAll writes and deletes blobs in a single commit.
func (s *GitStore) PutAll(writes map[string][]byte, deletes []string) error {
	_, err := s.Commit(writes, deletes, "")
	return err
}

// Commit is PutAll returning the transaction it created. Deletes are
// applied before writes, so a path in both ends up written.
func (s *GitStore) Commit(writes map[string][]byte, deletes []string, message string) (Transaction, error) {
	s.persistence.Lock()
	defer s.persistence.Unlock()

	txb, err := s.persistence.BeginTransaction()
	if err != nil {
		return Transaction{}, err
	}

	for _, p := range deletes {
		p = cleanPath(p)
		if _, err := s.persistence.ReadFileDirect(p); errors.Is(err, ErrBlobNotFound) {
			continue
		}
		if err := txb.AddDelete(p); err != nil {
			return Transaction{}, err
		}
	}

	paths := make([]string, 0, len(writes))
	for p := range writes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		if err := txb.AddWrite(cleanPath(p), writes[p]); err != nil {
			return Transaction{}, err
		}
	}

	if txb.OperationCount() == 0 {
		txb.Rollback()
		return s.persistence.LatestTransaction(), nil
	}

	txn, err := txb.Commit(s.identity, message)
	if err != nil {
		return Transaction{}, err
	}
	logging.StorageEvent("commit", strings.Join(paths, ","), "transaction_id", txn.Id, "deletes", len(deletes))
	return txn, nil
}

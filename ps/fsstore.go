package ps

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"

	"github.com/nickyhof/SequelDB/internal/logging"
)

const tmpSuffix = ".~tmp"

// FileStore keeps blobs as plain files on a billy filesystem.
type FileStore struct {
	fs billy.Filesystem
}

func NewFileStore(fs billy.Filesystem) *FileStore {
	return &FileStore{fs: fs}
}

// NewDirStore stores blobs under baseDir on the local disk.
func NewDirStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", baseDir, err)
	}
	return NewFileStore(osfs.New(baseDir)), nil
}

// NewMemoryStore is a FileStore over an in-memory filesystem.
func NewMemoryStore() *FileStore {
	return NewFileStore(memfs.New())
}

// Put writes data to a temporary file and renames it into place.
func (s *FileStore) Put(p string, data []byte) error {
	p = cleanPath(p)

	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmp := p + tmpSuffix
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := s.fs.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	logging.StorageEvent("put", p, "bytes", len(data))
	return nil
}

func (s *FileStore) Get(p string) ([]byte, error) {
	p = cleanPath(p)

	f, err := s.fs.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

func (s *FileStore) Delete(p string) error {
	p = cleanPath(p)

	err := s.fs.Remove(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	logging.StorageEvent("delete", p)
	return nil
}

func (s *FileStore) Exists(p string) (bool, error) {
	_, err := s.fs.Stat(cleanPath(p))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *FileStore) List(dir string) ([]string, error) {
	dir = cleanPath(dir)
	if dir == "" {
		dir = "/"
	}

	entries, err := s.fs.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && !strings.HasSuffix(e.Name(), tmpSuffix) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

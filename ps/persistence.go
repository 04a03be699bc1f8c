package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrBlobNotFound   = errors.New("blob not found")
)

// Persistence is a git repository used as a versioned blob store. Every
// write is a commit on the current branch.
type Persistence struct {
	repo         *git.Repository
	mu           sync.RWMutex
	isMemoryMode bool
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

func (p *Persistence) RLock()   { p.mu.RLock() }
func (p *Persistence) RUnlock() { p.mu.RUnlock() }
func (p *Persistence) Lock()    { p.mu.Lock() }
func (p *Persistence) Unlock()  { p.mu.Unlock() }

// NewMemoryPersistence creates a repository held entirely in memory.
func NewMemoryPersistence() (*Persistence, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, err
	}

	return &Persistence{repo: repo, isMemoryMode: true}, nil
}

// NewFilePersistence opens the repository under baseDir, creating it when
// missing. A non-nil gitUrl clones that remote into baseDir instead.
func NewFilePersistence(baseDir string, gitUrl *string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	dotGit, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		dotGit,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	switch {
	case gitUrl != nil:
		repo, err = git.Clone(storer, wt, &git.CloneOptions{URL: *gitUrl})
	case dirExists(dotGit.Root()):
		repo, err = git.Open(storer, wt)
	default:
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	}
	if err != nil {
		return nil, err
	}

	return &Persistence{repo: repo}, nil
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

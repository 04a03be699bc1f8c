package ps

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/nickyhof/SequelDB/core"
)

// TreeChange is a single blob write or removal applied to a tree.
type TreeChange struct {
	Path     string        // slash separated, e.g. "db/USERS.table"
	BlobHash plumbing.Hash // ignored for deletes
	IsDelete bool
}

// TreeEntry is a directory entry read from the HEAD tree.
type TreeEntry struct {
	Name  string
	IsDir bool
}

// createBlob stores data as a blob object without touching the worktree.
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to close blob writer: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// getCurrentTree returns the tree of HEAD, or ZeroHash before the first commit.
func (p *Persistence) getCurrentTree() (plumbing.Hash, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit.TreeHash, nil
}

// headTree returns the HEAD tree, or nil before the first commit.
func (p *Persistence) headTree() (*object.Tree, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return nil, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return tree, nil
}

func (p *Persistence) getTreeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	for _, e := range tree.Entries {
		entries[e.Name] = e
	}
	return entries, nil
}

// storeTree writes a tree object. Git requires entries sorted by name with
// directories compared as if they had a trailing slash.
func (p *Persistence) storeTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	list := make([]object.TreeEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	slices.SortFunc(list, func(a, b object.TreeEntry) int {
		return strings.Compare(sortKey(a), sortKey(b))
	})

	obj := p.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: list}).Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// batchUpdateTree applies changes to the tree rooted at rootTreeHash,
// rebuilding each touched directory once. Directories left empty are
// removed; a fully empty result is ZeroHash.
func (p *Persistence) batchUpdateTree(rootTreeHash plumbing.Hash, changes []TreeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return rootTreeHash, nil
	}

	entries, err := p.getTreeEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	nested := make(map[string][]TreeChange)
	for _, change := range changes {
		dir, rest, found := strings.Cut(change.Path, "/")
		if !found {
			if change.IsDelete {
				delete(entries, dir)
			} else {
				entries[dir] = object.TreeEntry{Name: dir, Mode: filemode.Regular, Hash: change.BlobHash}
			}
			continue
		}
		nested[dir] = append(nested[dir], TreeChange{Path: rest, BlobHash: change.BlobHash, IsDelete: change.IsDelete})
	}

	for dir, sub := range nested {
		subTree := plumbing.ZeroHash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subTree = existing.Hash
		}

		newSubTree, err := p.batchUpdateTree(subTree, sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if newSubTree == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{Name: dir, Mode: filemode.Dir, Hash: newSubTree}
		}
	}

	return p.storeTree(entries)
}

// createCommitDirect commits treeHash on top of HEAD without a worktree.
func (p *Persistence) createCommitDirect(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash == plumbing.ZeroHash {
		obj := p.repo.Storer.NewEncodedObject()
		if err := (&object.Tree{}).Encode(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to encode empty tree: %w", err)
		}
		var err error
		if treeHash, err = p.repo.Storer.SetEncodedObject(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
	}

	var parents []plumbing.Hash
	headRef, err := p.repo.Head()
	if err == nil {
		parents = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}

	obj := p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}
	commitHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branch := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branch = headRef.Name()
	}
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, commitHash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{
		Id:     commitHash.String(),
		When:   sig.When,
		Author: fmt.Sprintf("%s <%s>", identity.Name, identity.Email),
	}, nil
}

// applyChanges commits changes as a single commit and syncs the worktree.
func (p *Persistence) applyChanges(changes []TreeChange, identity core.Identity, message string) (Transaction, error) {
	currentTree, err := p.getCurrentTree()
	if err != nil {
		return Transaction{}, err
	}

	newTree, err := p.batchUpdateTree(currentTree, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	txn, err := p.createCommitDirect(newTree, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}
	return txn, nil
}

// syncWorktree makes an on-disk worktree match HEAD. Memory repositories
// are always read from the object store, so they skip it.
func (p *Persistence) syncWorktree() error {
	if p.isMemoryMode {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}
	headRef, err := p.repo.Head()
	if err != nil {
		return err
	}
	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	// go-git refuses to hard reset onto an empty tree
	if len(tree.Entries) == 0 {
		entries, err := wt.Filesystem.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, e := range entries {
			if e.Name() != ".git" {
				wt.Filesystem.Remove(e.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: headRef.Hash()})
}

// WriteFileDirect commits a single blob at filePath.
func (p *Persistence) WriteFileDirect(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	blobHash, err := p.createBlob(data)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to create blob: %w", err)
	}
	return p.applyChanges([]TreeChange{{Path: filePath, BlobHash: blobHash}}, identity, message)
}

// DeletePathDirect commits the removal of paths. Missing paths are ignored.
func (p *Persistence) DeletePathDirect(paths []string, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	changes := make([]TreeChange, len(paths))
	for i, path := range paths {
		changes[i] = TreeChange{Path: path, IsDelete: true}
	}
	return p.applyChanges(changes, identity, message)
}

// ReadFileDirect reads a blob from the HEAD tree. A missing path wraps
// ErrBlobNotFound.
func (p *Persistence) ReadFileDirect(filePath string) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, filePath)
	}

	file, err := tree.File(filePath)
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", filePath, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}
	return []byte(content), nil
}

// ListEntriesDirect lists dirPath in the HEAD tree. A missing directory is
// empty.
func (p *Persistence) ListEntriesDirect(dirPath string) ([]TreeEntry, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if err != nil || tree == nil {
		return nil, err
	}

	if dirPath != "" && dirPath != "." {
		if tree, err = tree.Tree(dirPath); err != nil {
			return nil, nil
		}
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, TreeEntry{Name: e.Name, IsDir: e.Mode == filemode.Dir})
	}
	return entries, nil
}

package ps

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/nickyhof/SequelDB/internal/logging"
)

var ErrDiverged = errors.New("branches have diverged")

// Branch creates a branch at HEAD, or at from when given.
func (p *Persistence) Branch(name string, from *Transaction) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	var hash plumbing.Hash
	if from != nil {
		hash = plumbing.NewHash(from.Id)
	} else {
		headRef, err := p.repo.Head()
		if err != nil {
			return fmt.Errorf("failed to branch %s: nothing committed yet", name)
		}
		hash = headRef.Hash()
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	return p.repo.Storer.SetReference(ref)
}

// Checkout switches HEAD to an existing branch. Tables read afterwards see
// that branch's blobs.
func (p *Persistence) Checkout(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	logging.Info("checking out branch", "branch", name)
	return wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Force:  true,
	})
}

// FastForward moves the current branch to source when source is ahead of
// it. A source already contained in HEAD is a no-op; diverged branches fail
// with ErrDiverged.
func (p *Persistence) FastForward(source string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get HEAD: %w", err)
	}
	sourceRef, err := p.repo.Reference(plumbing.NewBranchReferenceName(source), true)
	if err != nil {
		return Transaction{}, fmt.Errorf("branch '%s' not found: %w", source, err)
	}

	headCommit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}, err
	}
	sourceCommit, err := p.repo.CommitObject(sourceRef.Hash())
	if err != nil {
		return Transaction{}, err
	}

	if sourceCommit.Hash == headCommit.Hash {
		return fromCommit(headCommit), nil
	}
	merged, err := sourceCommit.IsAncestor(headCommit)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if merged {
		return fromCommit(headCommit), nil
	}

	ahead, err := headCommit.IsAncestor(sourceCommit)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if !ahead {
		return Transaction{}, fmt.Errorf("%w: cannot fast-forward to '%s'", ErrDiverged, source)
	}

	// a hard reset moves the checked out branch with HEAD
	if err := p.resetTo(sourceRef.Hash(), nil); err != nil {
		return Transaction{}, fmt.Errorf("failed to fast-forward: %w", err)
	}
	return fromCommit(sourceCommit), nil
}

// Branches returns every branch name.
func (p *Persistence) Branches() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	refs, err := p.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var branches []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	return branches, err
}

func (p *Persistence) CurrentBranch() (string, error) {
	if err := p.ensureInitialized(); err != nil {
		return "", err
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !headRef.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", headRef.Hash().String()[:7])
	}
	return headRef.Name().Short(), nil
}

// DeleteBranch removes a branch other than the current one.
func (p *Persistence) DeleteBranch(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if current, err := p.CurrentBranch(); err == nil && current == name {
		return fmt.Errorf("cannot delete the currently checked out branch '%s'", name)
	}
	return p.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name))
}

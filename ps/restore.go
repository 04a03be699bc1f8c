package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/nickyhof/SequelDB/internal/logging"
)

// Snapshot tags asof, or HEAD when asof is nil, with name.
func (p *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	var target plumbing.Hash
	if asof != nil {
		target = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := p.repo.Head()
		if err != nil {
			return fmt.Errorf("failed to snapshot %s: nothing committed yet", name)
		}
		target = headRef.Hash()
	}

	if _, err := p.repo.CreateTag(name, target, nil); err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", name, err)
	}
	return nil
}

// Snapshots lists the snapshot tags in the repository.
func (p *Persistence) Snapshots() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tags, err := p.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var names []string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	return names, err
}

// Recover hard resets the current branch to the snapshot name.
func (p *Persistence) Recover(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	ref, err := p.repo.Tag(name)
	if err != nil {
		return fmt.Errorf("snapshot %s does not exist: %w", name, err)
	}
	return p.resetTo(ref.Hash(), nil)
}

// Restore hard resets to asof. When dirs is non-empty only those
// directories are checked out.
func (p *Persistence) Restore(asof Transaction, dirs ...string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	return p.resetTo(plumbing.NewHash(asof.Id), dirs)
}

func (p *Persistence) resetTo(commit plumbing.Hash, dirs []string) error {
	logging.Info("resetting repository", "commit", commit.String(), "dirs", dirs)

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	return wt.Reset(&git.ResetOptions{
		Mode:       git.HardReset,
		Commit:     commit,
		SparseDirs: dirs,
	})
}

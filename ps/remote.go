package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"

	"github.com/nickyhof/SequelDB/internal/logging"
)

const DefaultRemote = "origin"

type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth carries credentials for push, pull and fetch. A nil
// *RemoteAuth means anonymous access.
type RemoteAuth struct {
	Type       AuthType
	Token      string
	KeyPath    string // defaults to ~/.ssh/id_rsa
	Passphrase string
	Username   string
	Password   string
}

func (auth *RemoteAuth) method() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone:
		return nil, nil
	case AuthTypeToken:
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil
	case AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to locate ssh key: %w", err)
			}
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)
	}
	return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
}

// remote resolves the remote name and auth method shared by push, pull and
// fetch.
func (p *Persistence) remote(name string, auth *RemoteAuth) (string, transport.AuthMethod, error) {
	if err := p.ensureInitialized(); err != nil {
		return "", nil, err
	}
	if name == "" {
		name = DefaultRemote
	}
	method, err := auth.method()
	if err != nil {
		return "", nil, fmt.Errorf("failed to configure auth: %w", err)
	}
	return name, method, nil
}

func upToDate(err error) error {
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if _, err := p.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

// Remotes maps each configured remote to its URLs.
func (p *Persistence) Remotes() (map[string][]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}
	out := make(map[string][]string, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		out[cfg.Name] = cfg.URLs
	}
	return out, nil
}

func (p *Persistence) RemoveRemote(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if err := p.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to remove remote '%s': %w", name, err)
	}
	return nil
}

// Push sends branch (the current one when empty) to the remote.
func (p *Persistence) Push(remoteName, branch string, auth *RemoteAuth) error {
	remoteName, method, err := p.remote(remoteName, auth)
	if err != nil {
		return err
	}

	if branch == "" {
		if branch, err = p.CurrentBranch(); err != nil {
			return fmt.Errorf("failed to get current branch: %w", err)
		}
	}

	logging.Info("pushing", "remote", remoteName, "branch", branch)
	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = upToDate(p.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       method,
	}))
	if err != nil {
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
	return nil
}

// Pull fetches from the remote and fast-forwards the current branch. Tables
// loaded afterwards see the pulled blobs.
func (p *Persistence) Pull(remoteName, branch string, auth *RemoteAuth) error {
	remoteName, method, err := p.remote(remoteName, auth)
	if err != nil {
		return err
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	opts := &git.PullOptions{RemoteName: remoteName, Auth: method}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	logging.Info("pulling", "remote", remoteName, "branch", branch)
	if err := upToDate(wt.Pull(opts)); err != nil {
		return fmt.Errorf("failed to pull from '%s': %w", remoteName, err)
	}
	return nil
}

// Fetch updates remote-tracking refs only.
func (p *Persistence) Fetch(remoteName string, auth *RemoteAuth) error {
	remoteName, method, err := p.remote(remoteName, auth)
	if err != nil {
		return err
	}

	if err := upToDate(p.repo.Fetch(&git.FetchOptions{RemoteName: remoteName, Auth: method})); err != nil {
		return fmt.Errorf("failed to fetch from '%s': %w", remoteName, err)
	}
	return nil
}

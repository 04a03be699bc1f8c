package ps

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
)

// Transaction identifies one commit.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>"
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func fromCommit(c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: c.Message,
	}
}

// LatestTransaction returns the HEAD commit, or the zero Transaction for an
// empty repository.
func (p *Persistence) LatestTransaction() Transaction {
	headRef, err := p.repo.Head()
	if err != nil {
		return Transaction{}
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}
	return fromCommit(commit)
}

// History returns up to limit commits reachable from HEAD, newest first. A
// limit of zero returns all of them.
func (p *Persistence) History(limit int) ([]Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	if _, err := p.repo.Head(); err != nil {
		return nil, nil
	}

	iter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var transactions []Transaction
	err = iter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, fromCommit(c))
		if limit > 0 && len(transactions) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to walk log: %w", err)
	}
	return transactions, nil
}

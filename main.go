package SequelDB

import (
	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/op"
	"github.com/nickyhof/SequelDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

// Store returns a blob store committing as identity.
func (instance *Instance) Store(identity core.Identity) *ps.GitStore {
	return ps.NewGitStore(instance.Persistence, identity)
}

// Database opens the named database, creating it when missing.
func (instance *Instance) Database(name string, identity core.Identity) (*op.DatabaseOp, error) {
	return op.OpenDatabase(name, instance.Store(identity))
}

// Databases lists the databases in the repository.
func (instance *Instance) Databases() ([]string, error) {
	return ps.ListDatabases(instance.Store(core.Identity{}))
}

// Package sqlite provides the public API for the SQLite repository backend.
// It exposes the factory while keeping implementation details internal.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/internal/sqlite"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Store is a Repository with an explicit lifecycle.
type Store interface {
	types.Repository
	Attach(config types.Config) error
	Detach() error
}

// NewBackend creates a new SQLite backend instance. A nil logger discards
// output. The backend is not attached; call Attach with a Config to
// initialize.
//
// Example:
//
//	store := sqlite.NewBackend(nil)
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".smartgrid-db",
//	})
//	defer store.Detach()
func NewBackend(log *zap.Logger) Store {
	if log == nil {
		return sqlite.NewBackend()
	}
	return sqlite.NewBackend(sqlite.WithLogger(log))
}

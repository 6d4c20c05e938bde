package types

import (
	"context"
	"time"
)

// Repository is the storage contract the readiness engine consumes. Every
// method may fail with a transport error; callers report it and keep going.
type Repository interface {
	// Backpacks returns every kit with its modules, ordered by name.
	Backpacks(ctx context.Context) ([]*Kit, error)

	// MasterLayout returns the template with the given ID.
	// Returns ErrNotFound if it does not exist.
	MasterLayout(ctx context.Context, id string) (*Template, error)

	// ModuleByID returns the module, or nil and no error when absent.
	ModuleByID(ctx context.Context, id string) (*Module, error)

	// SaveBackpack writes the kit row and all of its modules as one unit.
	// Modules that were in the kit but are no longer listed lose their kit
	// reference in the same unit.
	SaveBackpack(ctx context.Context, kit *Kit) error

	// UpdateBackpackStatus records a new operational status for a kit.
	UpdateBackpackStatus(ctx context.Context, id string, status OperationalStatus) error

	// DeleteBackpack removes a kit. Its modules return to the pool.
	DeleteBackpack(ctx context.Context, id string) error

	// Catalog returns every content definition ordered by code.
	Catalog(ctx context.Context) ([]ContentDefinition, error)

	// Subscribe returns a stream of change signals for kits and modules.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Change is a payload-free signal that stored kit or module data changed.
// Table and ID are informational only.
type Change struct {
	Table string    `json:"table"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

// Subscription delivers change signals until closed.
type Subscription interface {
	Events() <-chan Change
	Errors() <-chan error
	Close() error
}

package store

import (
	"context"
	"time"
)

// Resource names a cached listing.
type Resource string

const (
	ResourceProjects Resource = "projects"
	ResourceInvoices Resource = "invoices"
	ResourceTodos    Resource = "todos"
)

// Store persists the last successful listing of each resource per user so
// the UI has something to show before the network answers.
type Store interface {
	// SaveSnapshot replaces the snapshot for (userID, res). items and meta
	// are stored as JSON; meta may be nil.
	SaveSnapshot(ctx context.Context, userID int64, res Resource, items, meta interface{}) error

	// LoadSnapshot decodes the snapshot for (userID, res) into items and
	// meta. found is false when nothing was saved.
	LoadSnapshot(ctx context.Context, userID int64, res Resource, items, meta interface{}) (savedAt time.Time, found bool, err error)

	// DeleteSnapshots removes every snapshot owned by userID.
	DeleteSnapshots(ctx context.Context, userID int64) error

	// PruneSnapshots removes snapshots saved before cutoff and returns how
	// many were removed.
	PruneSnapshots(ctx context.Context, cutoff time.Time) (int64, error)
}

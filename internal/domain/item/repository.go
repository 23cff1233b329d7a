package item

import (
	"context"
	"encoding/json"
)

// Repository defines item and revision persistence operations
type Repository interface {
	// EnsureTechnology returns the id for a technology name, creating
	// the row when it does not exist yet.
	EnsureTechnology(ctx context.Context, name string) (int64, error)

	// Upsert finds or creates the item row and returns it.
	Upsert(ctx context.Context, it *Item) (*Item, error)

	GetByID(ctx context.Context, id int64) (*Item, error)
	Find(ctx context.Context, technology, accountIdentifier, region, name string) (*Item, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Item, int64, error)

	// ListByTechnology returns every active item for a technology,
	// with its latest config. Used for cross-item audit lookups.
	ListByTechnology(ctx context.Context, technology string) ([]*Item, error)

	// AddRevision stores a new configuration snapshot and points the
	// item's latest_revision_id at it.
	AddRevision(ctx context.Context, itemID int64, config json.RawMessage, active bool) (*Revision, error)

	GetLatestRevision(ctx context.Context, itemID int64) (*Revision, error)
	ListRevisions(ctx context.Context, itemID int64, limit, offset int) ([]*Revision, int64, error)

	// TouchEphemeral records that the latest revision saw an
	// ephemeral-only change, without creating a new revision.
	TouchEphemeral(ctx context.Context, revisionID int64) error

	// Deactivate marks an item's latest revision inactive when the
	// underlying cloud resource has disappeared.
	Deactivate(ctx context.Context, itemID int64) error
}

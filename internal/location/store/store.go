package store

import (
	"context"

	"github.com/google/uuid"

	"communiserver/internal/location/models"
)

// HierarchyStore is the read API over the location tree. Both engines
// (analytics and search) resolve ancestry through it; nothing in this
// subsystem mutates the tree.
type HierarchyStore interface {
	// Node fetches a single location. Returns sentinel.ErrNotFound when the
	// ID does not exist.
	Node(ctx context.Context, id uuid.UUID) (models.Node, error)

	// AncestorChain returns the path from the node to the root, the node
	// itself first.
	AncestorChain(ctx context.Context, id uuid.UUID) ([]models.Node, error)

	// Children lists direct children, optionally restricted to one kind
	// (models.KindAny lists all).
	Children(ctx context.Context, id uuid.UUID, kind models.Kind) ([]models.Node, error)

	// DescendantIDs returns the IDs of every node under id at the given
	// kind; models.KindAny collects all levels. The node itself is not
	// included.
	DescendantIDs(ctx context.Context, id uuid.UUID, kind models.Kind) ([]uuid.UUID, error)
}

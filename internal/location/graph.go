// Package location exposes the read-only hierarchy graph consumed by the
// scope resolver and both query engines.
package location

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"communiserver/internal/location/cache"
	"communiserver/internal/location/metrics"
	"communiserver/internal/location/models"
	"communiserver/internal/location/store"
	"communiserver/pkg/platform/sentinel"
)

// Graph composes the hierarchy store with an optional cache. All methods are
// reads; the tree is owned elsewhere.
type Graph struct {
	store   store.HierarchyStore
	cache   *cache.RedisCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(g *Graph)

// WithCache enables the Redis ancestor/descendant cache.
func WithCache(c *cache.RedisCache) Option {
	return func(g *Graph) { g.cache = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Graph) { g.metrics = m }
}

// NewGraph constructs a Graph over the given store.
func NewGraph(s store.HierarchyStore, opts ...Option) *Graph {
	g := &Graph{store: s}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Node fetches one location.
func (g *Graph) Node(ctx context.Context, id uuid.UUID) (models.Node, error) {
	return g.store.Node(ctx, id)
}

// Children lists direct children, optionally restricted to one kind.
func (g *Graph) Children(ctx context.Context, id uuid.UUID, kind models.Kind) ([]models.Node, error) {
	return g.store.Children(ctx, id, kind)
}

// AncestorChain returns the path from the node to the root, cache-aside.
func (g *Graph) AncestorChain(ctx context.Context, id uuid.UUID) ([]models.Node, error) {
	start := time.Now()
	if g.cache != nil {
		chain, err := g.cache.Chain(ctx, id)
		if err == nil {
			g.metrics.RecordHit("chain", start)
			return chain, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) && g.logger != nil {
			g.logger.WarnContext(ctx, "hierarchy cache read failed", "lookup", "chain", "error", err)
		}
	}

	chain, err := g.store.AncestorChain(ctx, id)
	if err != nil {
		return nil, err
	}
	g.metrics.RecordMiss("chain", start)

	if g.cache != nil {
		if err := g.cache.SaveChain(ctx, id, chain); err != nil && g.logger != nil {
			g.logger.WarnContext(ctx, "hierarchy cache write failed", "lookup", "chain", "error", err)
		}
	}
	return chain, nil
}

// Ancestor walks the chain up to the requested kind. Returns
// sentinel.ErrNotFound when the chain does not pass through that level.
func (g *Graph) Ancestor(ctx context.Context, id uuid.UUID, kind models.Kind) (models.Node, error) {
	chain, err := g.AncestorChain(ctx, id)
	if err != nil {
		return models.Node{}, err
	}
	for _, node := range chain {
		if node.Kind == kind {
			return node, nil
		}
	}
	return models.Node{}, sentinel.ErrNotFound
}

// DescendantIDs expands a node to the IDs of its descendants at the given
// kind, cache-aside.
func (g *Graph) DescendantIDs(ctx context.Context, id uuid.UUID, kind models.Kind) ([]uuid.UUID, error) {
	start := time.Now()
	if g.cache != nil {
		ids, err := g.cache.Descendants(ctx, id, kind)
		if err == nil {
			g.metrics.RecordHit("descendants", start)
			return ids, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) && g.logger != nil {
			g.logger.WarnContext(ctx, "hierarchy cache read failed", "lookup", "descendants", "error", err)
		}
	}

	ids, err := g.store.DescendantIDs(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	g.metrics.RecordMiss("descendants", start)

	if g.cache != nil {
		if err := g.cache.SaveDescendants(ctx, id, kind, ids); err != nil && g.logger != nil {
			g.logger.WarnContext(ctx, "hierarchy cache write failed", "lookup", "descendants", "error", err)
		}
	}
	return ids, nil
}

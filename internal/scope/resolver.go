package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"communiserver/internal/location"
	locmodels "communiserver/internal/location/models"
	dErrors "communiserver/pkg/domain-errors"
	"communiserver/pkg/platform/sentinel"
)

// ErrNoJurisdiction is returned when a jurisdiction role carries no bound
// location. Scoping is fail-closed: the caller gets an explicit denial, not
// unrestricted data.
var ErrNoJurisdiction = dErrors.New(dErrors.CodeForbidden, "no jurisdiction bound for role")

// binding tells the resolver how records of one entity kind anchor into the
// hierarchy: which column references a location and at which level.
type binding struct {
	field string
	level locmodels.Kind
}

// bindings is the full (role, entity kind) mapping. Keeping it in one table
// makes the scoping rules auditable and testable in isolation; role logic is
// never repeated per entity.
var bindings = map[Role]map[EntityKind]binding{
	RoleCellLeader: {
		KindActivity: {field: "village_id", level: locmodels.KindVillage},
		KindTask:     {field: "isibo_id", level: locmodels.KindIsibo},
		KindReport:   {field: "isibo_id", level: locmodels.KindIsibo},
		KindUser:     {field: "cell_id", level: locmodels.KindCell},
	},
	RoleVillageLeader: {
		KindActivity: {field: "village_id", level: locmodels.KindVillage},
		KindTask:     {field: "isibo_id", level: locmodels.KindIsibo},
		KindReport:   {field: "isibo_id", level: locmodels.KindIsibo},
		KindUser:     {field: "village_id", level: locmodels.KindVillage},
	},
	RoleIsiboLeader: {
		KindActivity: {field: "village_id", level: locmodels.KindVillage},
		KindTask:     {field: "isibo_id", level: locmodels.KindIsibo},
		KindReport:   {field: "isibo_id", level: locmodels.KindIsibo},
		KindUser:     {field: "isibo_id", level: locmodels.KindIsibo},
	},
}

// Resolver builds scope predicates from an actor and a target entity kind.
// It is pure over its inputs plus the hierarchy graph.
type Resolver struct {
	graph  *location.Graph
	logger *slog.Logger
}

// NewResolver constructs a Resolver over the hierarchy graph.
func NewResolver(graph *location.Graph, logger *slog.Logger) *Resolver {
	return &Resolver{graph: graph, logger: logger}
}

// Resolve returns the predicate restricting kind to the actor's
// jurisdiction.
//
// Policy (uniform, fail-closed):
//   - ADMIN resolves to All.
//   - A jurisdiction role with no bound node returns ErrNoJurisdiction.
//   - Roles without jurisdiction, and (role, kind) pairs absent from the
//     bindings table, resolve to None.
func (r *Resolver) Resolve(ctx context.Context, actor ActorContext, kind EntityKind) (Predicate, error) {
	if actor.Role == RoleAdmin {
		return All{}, nil
	}
	if !actor.Role.HasJurisdiction() {
		return None{}, nil
	}

	nodeID, actorLevel, ok := actor.Jurisdiction()
	if !ok {
		return nil, ErrNoJurisdiction
	}

	// Locations scope to the jurisdiction subtree: the bound node itself
	// plus everything under it.
	if kind == KindLocation {
		ids, err := r.graph.DescendantIDs(ctx, nodeID, locmodels.KindAny)
		if err != nil {
			return nil, fmt.Errorf("expand location scope: %w", err)
		}
		return In{Field: "id", IDs: append([]uuid.UUID{nodeID}, ids...)}, nil
	}

	b, ok := bindings[actor.Role][kind]
	if !ok {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "no scope binding, failing closed",
				"role", actor.Role,
				"entity_kind", kind,
			)
		}
		return None{}, nil
	}

	switch {
	case actorLevel == b.level:
		return Equals{Field: b.field, Value: nodeID}, nil

	case b.level.Below(actorLevel):
		// Anchor level sits under the jurisdiction: expand to the
		// descendant ID set (e.g. a cell leader scoping tasks by isibo).
		ids, err := r.graph.DescendantIDs(ctx, nodeID, b.level)
		if err != nil {
			return nil, fmt.Errorf("expand scope to %s: %w", b.level, err)
		}
		return In{Field: b.field, IDs: ids}, nil

	default:
		// Anchor level sits above the jurisdiction: the actor's own
		// ancestry supplies the single anchor node (e.g. an isibo leader
		// scoping activities by village).
		ancestor, err := r.graph.Ancestor(ctx, nodeID, b.level)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				if r.logger != nil {
					r.logger.WarnContext(ctx, "jurisdiction ancestry missing level, failing closed",
						"node_id", nodeID,
						"level", b.level,
					)
				}
				return None{}, nil
			}
			return nil, fmt.Errorf("resolve %s ancestor: %w", b.level, err)
		}
		return Equals{Field: b.field, Value: ancestor.ID}, nil
	}
}

// anchors tells ResolveLocation where records of one kind hang off the
// hierarchy, independent of any role.
var anchors = map[EntityKind]binding{
	KindActivity: {field: "village_id", level: locmodels.KindVillage},
	KindTask:     {field: "isibo_id", level: locmodels.KindIsibo},
	KindReport:   {field: "isibo_id", level: locmodels.KindIsibo},
}

// userAnchors maps a filter node's own level to the matching user column.
var userAnchors = map[locmodels.Kind]string{
	locmodels.KindCell:    "cell_id",
	locmodels.KindVillage: "village_id",
	locmodels.KindIsibo:   "isibo_id",
	locmodels.KindHouse:   "house_id",
}

// ResolveLocation builds the predicate restricting kind to one node's
// subtree, regardless of who is asking. Callers conjoin it with the actor's
// own scope; it can only ever narrow, never widen.
func (r *Resolver) ResolveLocation(ctx context.Context, nodeID uuid.UUID, kind EntityKind) (Predicate, error) {
	node, err := r.graph.Node(ctx, nodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "location not found")
		}
		return nil, fmt.Errorf("load filter location: %w", err)
	}

	if kind == KindLocation {
		ids, err := r.graph.DescendantIDs(ctx, nodeID, locmodels.KindAny)
		if err != nil {
			return nil, fmt.Errorf("expand location filter: %w", err)
		}
		return In{Field: "id", IDs: append([]uuid.UUID{nodeID}, ids...)}, nil
	}

	if kind == KindUser {
		if field, ok := userAnchors[node.Kind]; ok {
			return Equals{Field: field, Value: nodeID}, nil
		}
		ids, err := r.graph.DescendantIDs(ctx, nodeID, locmodels.KindCell)
		if err != nil {
			return nil, fmt.Errorf("expand user filter: %w", err)
		}
		return In{Field: "cell_id", IDs: ids}, nil
	}

	b, ok := anchors[kind]
	if !ok {
		return All{}, nil
	}
	switch {
	case node.Kind == b.level:
		return Equals{Field: b.field, Value: nodeID}, nil

	case b.level.Below(node.Kind):
		ids, err := r.graph.DescendantIDs(ctx, nodeID, b.level)
		if err != nil {
			return nil, fmt.Errorf("expand filter to %s: %w", b.level, err)
		}
		return In{Field: b.field, IDs: ids}, nil

	default:
		ancestor, err := r.graph.Ancestor(ctx, nodeID, b.level)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return None{}, nil
			}
			return nil, fmt.Errorf("resolve filter %s ancestor: %w", b.level, err)
		}
		return Equals{Field: b.field, Value: ancestor.ID}, nil
	}
}

// ResolveAll resolves one predicate per requested kind in a single pass.
func (r *Resolver) ResolveAll(ctx context.Context, actor ActorContext, kinds ...EntityKind) (map[EntityKind]Predicate, error) {
	out := make(map[EntityKind]Predicate, len(kinds))
	for _, kind := range kinds {
		pred, err := r.Resolve(ctx, actor, kind)
		if err != nil {
			return nil, err
		}
		out[kind] = pred
	}
	return out, nil
}

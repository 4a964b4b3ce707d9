package scope

import (
	"context"

	"github.com/google/uuid"

	locmodels "communiserver/internal/location/models"
)

// Role is a leadership position in the community hierarchy.
type Role string

const (
	RoleAdmin               Role = "ADMIN"
	RoleCellLeader          Role = "CELL_LEADER"
	RoleVillageLeader       Role = "VILLAGE_LEADER"
	RoleIsiboLeader         Role = "ISIBO_LEADER"
	RoleHouseRepresentative Role = "HOUSE_REPRESENTATIVE"
	RoleCitizen             Role = "CITIZEN"
	RoleVolunteer           Role = "VOLUNTEER"
	RoleGuest               Role = "GUEST"
)

var validRoles = map[Role]bool{
	RoleAdmin:               true,
	RoleCellLeader:          true,
	RoleVillageLeader:       true,
	RoleIsiboLeader:         true,
	RoleHouseRepresentative: true,
	RoleCitizen:             true,
	RoleVolunteer:           true,
	RoleGuest:               true,
}

// IsValid reports whether the role is one of the known positions.
func (r Role) IsValid() bool { return validRoles[r] }

// HasJurisdiction reports whether the role scopes queries to a bound
// location. ADMIN sees everything; roles below isibo leader hold no
// analytics jurisdiction at all.
func (r Role) HasJurisdiction() bool {
	switch r {
	case RoleCellLeader, RoleVillageLeader, RoleIsiboLeader:
		return true
	}
	return false
}

// EntityKind names a searchable/aggregatable record type.
type EntityKind string

const (
	KindUser     EntityKind = "user"
	KindLocation EntityKind = "location"
	KindActivity EntityKind = "activity"
	KindTask     EntityKind = "task"
	KindReport   EntityKind = "report"
)

// AllEntityKinds is the full fixed set, in presentation order.
var AllEntityKinds = []EntityKind{KindActivity, KindTask, KindReport, KindUser, KindLocation}

// ParseEntityKind validates an entity kind string.
func ParseEntityKind(s string) (EntityKind, bool) {
	k := EntityKind(s)
	for _, known := range AllEntityKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// ActorContext is the caller's position: their role plus at most one bound
// location per level. ADMIN carries no bindings; every other role is bound
// to zero or one node at its own level.
type ActorContext struct {
	UserID    uuid.UUID
	Role      Role
	CellID    *uuid.UUID
	VillageID *uuid.UUID
	IsiboID   *uuid.UUID
}

// Jurisdiction returns the bound node and its hierarchy level for the
// actor's role. ok is false when the role has no jurisdiction or the
// binding is missing.
func (a ActorContext) Jurisdiction() (uuid.UUID, locmodels.Kind, bool) {
	switch a.Role {
	case RoleCellLeader:
		if a.CellID != nil && *a.CellID != uuid.Nil {
			return *a.CellID, locmodels.KindCell, true
		}
	case RoleVillageLeader:
		if a.VillageID != nil && *a.VillageID != uuid.Nil {
			return *a.VillageID, locmodels.KindVillage, true
		}
	case RoleIsiboLeader:
		if a.IsiboID != nil && *a.IsiboID != uuid.Nil {
			return *a.IsiboID, locmodels.KindIsibo, true
		}
	}
	return uuid.Nil, locmodels.KindAny, false
}

type actorKey struct{}

// WithActor injects the authenticated actor into the context. Set by the
// auth middleware, read by services.
func WithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor retrieves the authenticated actor from the context.
func Actor(ctx context.Context) (ActorContext, bool) {
	actor, ok := ctx.Value(actorKey{}).(ActorContext)
	return actor, ok
}

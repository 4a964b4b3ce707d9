package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "communiserver/pkg/domain-errors"
)

// Kind identifies a level of the administrative hierarchy, largest to
// smallest: province > district > sector > cell > village > isibo > house.
type Kind string

const (
	KindProvince Kind = "province"
	KindDistrict Kind = "district"
	KindSector   Kind = "sector"
	KindCell     Kind = "cell"
	KindVillage  Kind = "village"
	KindIsibo    Kind = "isibo"
	KindHouse    Kind = "house"

	// KindAny matches every level; used when expanding a jurisdiction node
	// to its full descendant set.
	KindAny Kind = ""
)

// depth orders kinds root-first. Higher values are deeper in the tree.
var depth = map[Kind]int{
	KindProvince: 1,
	KindDistrict: 2,
	KindSector:   3,
	KindCell:     4,
	KindVillage:  5,
	KindIsibo:    6,
	KindHouse:    7,
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := depth[k]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown location type: %s", s)
	}
	return k, nil
}

// IsValid reports whether the kind is one of the seven hierarchy levels.
func (k Kind) IsValid() bool {
	_, ok := depth[k]
	return ok
}

// Depth returns the level of the kind, 1 at the root. KindAny is 0.
func (k Kind) Depth() int {
	return depth[k]
}

// Below reports whether k sits deeper in the tree than other.
func (k Kind) Below(other Kind) bool {
	return depth[k] > depth[other]
}

// Node is one location in the hierarchy. The graph is a strict tree: every
// node except a province has exactly one parent.
type Node struct {
	ID        uuid.UUID
	Kind      Kind
	Name      string
	ParentID  *uuid.UUID
	LeaderID  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// HasLeader reports whether a leader is assigned to the node.
func (n Node) HasLeader() bool {
	return n.LeaderID != nil && *n.LeaderID != uuid.Nil
}

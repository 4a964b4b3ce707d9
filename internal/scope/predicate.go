package scope

import (
	"time"

	"github.com/google/uuid"
)

// Predicate is a typed, composable filter over one entity kind. Every
// backing store interprets it against its own representation: the postgres
// stores compile it to a WHERE clause, the memory stores evaluate it per
// record. Predicates are request-scoped values, built fresh per query.
type Predicate interface {
	isPredicate()
}

// All matches every record (no restriction).
type All struct{}

// None matches no record. Used for fail-closed scoping.
type None struct{}

// Equals matches records whose field equals the value.
type Equals struct {
	Field string
	Value any
}

// In matches records whose field is one of the given IDs. An empty ID set
// matches nothing.
type In struct {
	Field string
	IDs   []uuid.UUID
}

// TextMatch matches records where any of the fields contains the query as a
// case-insensitive substring (disjunction across fields).
type TextMatch struct {
	Fields []string
	Query  string
}

// TimeRange matches records with From <= field < To. Nil bounds are open.
type TimeRange struct {
	Field string
	From  *time.Time
	To    *time.Time
}

// NumberRange matches records with Min <= field <= Max. Nil bounds are open.
type NumberRange struct {
	Field string
	Min   *float64
	Max   *float64
}

// Bool matches records whose boolean-shaped field equals the value. Stores
// decide what the field means (e.g. "has_evidence" on reports).
type Bool struct {
	Field string
	Value bool
}

// And is the conjunction of its parts.
type And struct {
	Preds []Predicate
}

// Or is the disjunction of its parts.
type Or struct {
	Preds []Predicate
}

func (All) isPredicate()         {}
func (None) isPredicate()        {}
func (Equals) isPredicate()      {}
func (In) isPredicate()          {}
func (TextMatch) isPredicate()   {}
func (TimeRange) isPredicate()   {}
func (NumberRange) isPredicate() {}
func (Bool) isPredicate()        {}
func (And) isPredicate()         {}
func (Or) isPredicate()          {}

// Conjoin combines predicates into a minimal And: All parts are dropped, a
// None part collapses the whole conjunction.
func Conjoin(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p == nil {
			continue
		}
		switch p.(type) {
		case All:
			continue
		case None:
			return None{}
		}
		kept = append(kept, p)
	}
	switch len(kept) {
	case 0:
		return All{}
	case 1:
		return kept[0]
	default:
		return And{Preds: kept}
	}
}

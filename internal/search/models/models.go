// Package models holds the normalized search shapes shared by every
// adapter and the orchestrator.
package models

import (
	"time"

	"github.com/google/uuid"

	"communiserver/internal/scope"
)

// Candidate is one scored search hit, normalized across entity kinds.
// Metadata carries denormalized context so the caller can render the hit
// without a second fetch.
type Candidate struct {
	Kind        scope.EntityKind `json:"entityKind"`
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Score       int              `json:"relevanceScore"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   *time.Time       `json:"updatedAt,omitempty"`
}

// Filters are the structural constraints applied alongside the text match.
// Every field is conjunctive; nil and empty fields do not constrain.
type Filters struct {
	DateFrom        *time.Time
	DateTo          *time.Time
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	ActivityIDs     []uuid.UUID
	VillageIDs      []uuid.UUID
	IsiboIDs        []uuid.UUID
	CostMin         *float64
	CostMax         *float64
	ParticipantsMin *float64
	ParticipantsMax *float64
	HasEvidence     *bool
}

// Request is one global search call.
type Request struct {
	Query   string
	Kinds   []scope.EntityKind
	Filters Filters
	Page    int
	Size    int
}

// LocationRequest is one location search call.
type LocationRequest struct {
	Query string
	Kinds []string
	Page  int
	Size  int
}

// Meta describes the pagination of one result page.
type Meta struct {
	Total      int                `json:"totalResults"`
	ItemCount  int                `json:"itemCount"`
	TotalPages int                `json:"totalPages"`
	Page       int                `json:"currentPage"`
	ElapsedMs  int64              `json:"searchTimeMs"`
	Kinds      []scope.EntityKind `json:"searchedEntities"`
}

// ResultPage is a globally ranked page regrouped per entity kind. Every
// searched kind is present, empty buckets included.
type ResultPage struct {
	Results map[scope.EntityKind][]Candidate `json:"results"`
	Meta    Meta                             `json:"meta"`
}

// LocationPage is a flat ranked page of location hits.
type LocationPage struct {
	Results []Candidate `json:"results"`
	Meta    Meta        `json:"meta"`
}

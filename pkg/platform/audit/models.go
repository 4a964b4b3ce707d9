// Package audit records who looked at what. Analytics and search are
// read-only surfaces, so the trail is about access, not mutation: which
// actor ran which query, over which scope, and whether it was allowed.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers denied access and other events relevant to
	// security monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine access patterns. These can be
	// sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	ActorID   uuid.UUID `json:"actorId"`
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	// Surface names the endpoint family ("analytics", "search").
	Surface string `json:"surface"`
	// Detail carries a short query summary: the search term, the metric
	// view, the time range. Never raw record content.
	Detail    string `json:"detail,omitempty"`
	Outcome   string `json:"outcome"`
	RequestID string `json:"requestId,omitempty"`
	ClientIP  string `json:"clientIp,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type AuditEvent string

const (
	EventAnalyticsViewed AuditEvent = "analytics_viewed"
	EventSearchPerformed AuditEvent = "search_performed"
	EventScopeDenied     AuditEvent = "scope_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAnalyticsViewed: CategoryOperations,
	EventSearchPerformed: CategoryOperations,
	EventScopeDenied:     CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink accepts events for delivery. Implemented by stores and by the Kafka
// publisher.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a queryable sink. Persistent backends implement this; pure
// fan-out sinks (Kafka) only implement Sink.
type Store interface {
	Sink
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

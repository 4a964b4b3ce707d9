// Package records defines the read-only data-access capabilities this
// subsystem consumes. Aggregators and search adapters receive exactly the
// interfaces they need at construction; no ambient repository access.
package records

import (
	"context"
	"time"

	locmodels "communiserver/internal/location/models"
	"communiserver/internal/records/models"
	"communiserver/internal/scope"
)

// UserReader reads users under a scope predicate.
type UserReader interface {
	Count(ctx context.Context, pred scope.Predicate) (int, error)
	CountByRole(ctx context.Context, pred scope.Predicate) (map[string]int, error)
	Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.User, error)
}

// ActivityReader reads activities under a scope predicate.
type ActivityReader interface {
	Count(ctx context.Context, pred scope.Predicate) (int, error)
	// CountWithReports counts in-scope activities that have at least one
	// report-bearing task.
	CountWithReports(ctx context.Context, pred scope.Predicate) (int, error)
	Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Activity, error)
	// TopVillages ranks villages by in-scope activity volume, annotated
	// with task completion counts.
	TopVillages(ctx context.Context, pred scope.Predicate, limit int) ([]models.VillagePerformance, error)
	// CountPerDay buckets in-scope rows by the calendar day (UTC) of the
	// given timestamp field, over [from, to). Keys are "2006-01-02".
	CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error)
}

// TaskReader reads tasks under a scope predicate.
type TaskReader interface {
	Count(ctx context.Context, pred scope.Predicate) (int, error)
	CountByStatus(ctx context.Context, pred scope.Predicate) (map[models.TaskStatus]int, error)
	SumField(ctx context.Context, field string, pred scope.Predicate) (float64, error)
	Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Task, error)
	CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error)
}

// ReportReader reads reports under a scope predicate.
type ReportReader interface {
	Count(ctx context.Context, pred scope.Predicate) (int, error)
	SumField(ctx context.Context, field string, pred scope.Predicate) (float64, error)
	Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Report, error)
	CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error)
}

// LocationReader reads location nodes as plain records, for coverage counts
// and location search. Ancestry questions belong to the hierarchy graph,
// not here.
type LocationReader interface {
	// CountByKind counts in-scope nodes of one kind; hasLeader narrows to
	// nodes with (true) or without (false) an assigned leader.
	CountByKind(ctx context.Context, kind locmodels.Kind, pred scope.Predicate, hasLeader *bool) (int, error)
	Find(ctx context.Context, pred scope.Predicate, kinds []locmodels.Kind, limit int) ([]locmodels.Node, error)
}

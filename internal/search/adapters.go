package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"communiserver/internal/location"
	locmodels "communiserver/internal/location/models"
	"communiserver/internal/records"
	recmodels "communiserver/internal/records/models"
	"communiserver/internal/scope"
	"communiserver/internal/search/models"
	"communiserver/internal/search/score"
)

// adapterLimit bounds each adapter's fetch before global ranking. A cap per
// kind keeps one noisy entity from starving the rest of the result budget.
const adapterLimit = 50

// Adapter turns one entity kind's rows into scored candidates. Every
// adapter conjoins the text match, its structural filters and the caller's
// scope predicate.
type Adapter interface {
	Kind() scope.EntityKind
	Search(ctx context.Context, query string, f models.Filters, pred scope.Predicate) ([]models.Candidate, error)
}

type activityAdapter struct {
	activities records.ActivityReader
	graph      *location.Graph
}

// NewActivityAdapter searches activities by title and description.
func NewActivityAdapter(activities records.ActivityReader, graph *location.Graph) Adapter {
	return &activityAdapter{activities: activities, graph: graph}
}

func (a *activityAdapter) Kind() scope.EntityKind { return scope.KindActivity }

func (a *activityAdapter) Search(ctx context.Context, query string, f models.Filters, pred scope.Predicate) ([]models.Candidate, error) {
	full := scope.Conjoin(pred,
		scope.TextMatch{Fields: []string{"title", "description"}, Query: query},
		timeRange("date", f.DateFrom, f.DateTo),
		timeRange("created_at", f.CreatedFrom, f.CreatedTo),
		inSet("id", f.ActivityIDs),
		inSet("village_id", f.VillageIDs),
	)
	rows, err := a.activities.Find(ctx, full, adapterLimit)
	if err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}

	out := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		meta := map[string]any{
			"villageId": row.VillageID,
			"date":      row.Date,
		}
		if node, err := a.graph.Node(ctx, row.VillageID); err == nil {
			meta["villageName"] = node.Name
		}
		out = append(out, models.Candidate{
			Kind:        scope.KindActivity,
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Score:       score.Relevance(query, row.Title, row.Description),
			Metadata:    meta,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}

type taskAdapter struct {
	tasks      records.TaskReader
	activities records.ActivityReader
	graph      *location.Graph
}

// NewTaskAdapter searches tasks by title and description, denormalizing the
// parent activity title and isibo name into the candidate metadata.
func NewTaskAdapter(tasks records.TaskReader, activities records.ActivityReader, graph *location.Graph) Adapter {
	return &taskAdapter{tasks: tasks, activities: activities, graph: graph}
}

func (a *taskAdapter) Kind() scope.EntityKind { return scope.KindTask }

func (a *taskAdapter) Search(ctx context.Context, query string, f models.Filters, pred scope.Predicate) ([]models.Candidate, error) {
	full := scope.Conjoin(pred,
		scope.TextMatch{Fields: []string{"title", "description"}, Query: query},
		timeRange("created_at", f.CreatedFrom, f.CreatedTo),
		inSet("activity_id", f.ActivityIDs),
		inSet("isibo_id", f.IsiboIDs),
		numberRange("actual_cost", f.CostMin, f.CostMax),
		numberRange("actual_participants", f.ParticipantsMin, f.ParticipantsMax),
	)
	rows, err := a.tasks.Find(ctx, full, adapterLimit)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}

	titles, err := a.activityTitles(ctx, rows)
	if err != nil {
		return nil, err
	}

	out := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		meta := map[string]any{
			"activityId":    row.ActivityID,
			"isiboId":       row.IsiboID,
			"status":        string(row.Status),
			"estimatedCost": row.EstimatedCost,
			"actualCost":    row.ActualCost,
		}
		if title, ok := titles[row.ActivityID]; ok {
			meta["activityTitle"] = title
		}
		if node, err := a.graph.Node(ctx, row.IsiboID); err == nil {
			meta["isiboName"] = node.Name
		}
		out = append(out, models.Candidate{
			Kind:        scope.KindTask,
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Score:       score.Relevance(query, row.Title, row.Description),
			Metadata:    meta,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}

func (a *taskAdapter) activityTitles(ctx context.Context, rows []recmodels.Task) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]bool, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if !seen[row.ActivityID] {
			seen[row.ActivityID] = true
			ids = append(ids, row.ActivityID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	parents, err := a.activities.Find(ctx, scope.In{Field: "id", IDs: ids}, 0)
	if err != nil {
		return nil, fmt.Errorf("load parent activities: %w", err)
	}
	titles := make(map[uuid.UUID]string, len(parents))
	for _, p := range parents {
		titles[p.ID] = p.Title
	}
	return titles, nil
}

type reportAdapter struct {
	reports records.ReportReader
	graph   *location.Graph
}

// NewReportAdapter searches reports by their narrative fields.
func NewReportAdapter(reports records.ReportReader, graph *location.Graph) Adapter {
	return &reportAdapter{reports: reports, graph: graph}
}

func (a *reportAdapter) Kind() scope.EntityKind { return scope.KindReport }

func (a *reportAdapter) Search(ctx context.Context, query string, f models.Filters, pred scope.Predicate) ([]models.Candidate, error) {
	full := scope.Conjoin(pred,
		scope.TextMatch{Fields: []string{"comment", "suggestions", "challenges_faced"}, Query: query},
		timeRange("created_at", f.CreatedFrom, f.CreatedTo),
		inSet("activity_id", f.ActivityIDs),
		inSet("village_id", f.VillageIDs),
		inSet("isibo_id", f.IsiboIDs),
		numberRange("actual_cost", f.CostMin, f.CostMax),
		numberRange("actual_participants", f.ParticipantsMin, f.ParticipantsMax),
		boolFilter("has_evidence", f.HasEvidence),
	)
	rows, err := a.reports.Find(ctx, full, adapterLimit)
	if err != nil {
		return nil, fmt.Errorf("search reports: %w", err)
	}

	out := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		meta := map[string]any{
			"activityId":   row.ActivityID,
			"taskId":       row.TaskID,
			"villageId":    row.VillageID,
			"isiboId":      row.IsiboID,
			"attendance":   row.Attendance,
			"hasEvidence":  row.HasEvidence(),
			"actualCost":   row.ActualCost,
			"participants": row.ActualParticipants,
		}
		if node, err := a.graph.Node(ctx, row.IsiboID); err == nil {
			meta["isiboName"] = node.Name
		}
		out = append(out, models.Candidate{
			Kind:        scope.KindReport,
			ID:          row.ID,
			Title:       row.Comment,
			Description: row.Suggestions,
			Score:       score.Relevance(query, row.Comment, row.Suggestions+" "+row.ChallengesFaced),
			Metadata:    meta,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}

type userAdapter struct {
	users records.UserReader
}

// NewUserAdapter searches users by names, email and phone.
func NewUserAdapter(users records.UserReader) Adapter {
	return &userAdapter{users: users}
}

func (a *userAdapter) Kind() scope.EntityKind { return scope.KindUser }

func (a *userAdapter) Search(ctx context.Context, query string, f models.Filters, pred scope.Predicate) ([]models.Candidate, error) {
	full := scope.Conjoin(pred,
		scope.TextMatch{Fields: []string{"names", "email", "phone"}, Query: query},
		timeRange("created_at", f.CreatedFrom, f.CreatedTo),
		inSet("village_id", f.VillageIDs),
		inSet("isibo_id", f.IsiboIDs),
	)
	rows, err := a.users.Find(ctx, full, adapterLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	out := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Candidate{
			Kind:        scope.KindUser,
			ID:          row.ID,
			Title:       row.Names,
			Description: row.Email,
			Score:       score.Relevance(query, row.Names, row.Email+" "+row.Phone),
			Metadata: map[string]any{
				"role":  row.Role,
				"phone": row.Phone,
			},
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out, nil
}

type locationAdapter struct {
	locations records.LocationReader
	graph     *location.Graph
}

// NewLocationAdapter searches location nodes by name with the
// prefix-weighted location scorer.
func NewLocationAdapter(locations records.LocationReader, graph *location.Graph) Adapter {
	return &locationAdapter{locations: locations, graph: graph}
}

func (a *locationAdapter) Kind() scope.EntityKind { return scope.KindLocation }

func (a *locationAdapter) Search(ctx context.Context, query string, f models.Filters, pred scope.Predicate) ([]models.Candidate, error) {
	return searchLocations(ctx, a.locations, a.graph, query, nil, pred, adapterLimit)
}

// searchLocations is shared between the global-search location adapter and
// the standalone location search surface.
func searchLocations(ctx context.Context, reader records.LocationReader, graph *location.Graph, query string, kinds []locmodels.Kind, pred scope.Predicate, limit int) ([]models.Candidate, error) {
	full := scope.Conjoin(pred,
		scope.TextMatch{Fields: []string{"name"}, Query: query},
	)
	rows, err := reader.Find(ctx, full, kinds, limit)
	if err != nil {
		return nil, fmt.Errorf("search locations: %w", err)
	}

	out := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		meta := map[string]any{
			"type": string(row.Kind),
		}
		if row.ParentID != nil {
			meta["parentId"] = *row.ParentID
			if parent, err := graph.Node(ctx, *row.ParentID); err == nil {
				meta["parentName"] = parent.Name
			}
		}
		out = append(out, models.Candidate{
			Kind:      scope.KindLocation,
			ID:        row.ID,
			Title:     row.Name,
			Score:     score.LocationRelevance(query, row.Name),
			Metadata:  meta,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func timeRange(field string, from, to *time.Time) scope.Predicate {
	if from == nil && to == nil {
		return nil
	}
	return scope.TimeRange{Field: field, From: from, To: to}
}

func numberRange(field string, min, max *float64) scope.Predicate {
	if min == nil && max == nil {
		return nil
	}
	return scope.NumberRange{Field: field, Min: min, Max: max}
}

func inSet(field string, ids []uuid.UUID) scope.Predicate {
	if len(ids) == 0 {
		return nil
	}
	return scope.In{Field: field, IDs: ids}
}

func boolFilter(field string, value *bool) scope.Predicate {
	if value == nil {
		return nil
	}
	return scope.Bool{Field: field, Value: *value}
}

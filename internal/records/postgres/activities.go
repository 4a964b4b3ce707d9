// Package postgres implements the records read interfaces against
// PostgreSQL. Predicates compile to WHERE clauses; nothing here writes.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"communiserver/internal/records/models"
	"communiserver/internal/scope"
)

// ActivityStore reads activities.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore constructs a PostgreSQL-backed activity reader.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

var activityFields = map[string]string{
	"id":          "a.id",
	"title":       "a.title",
	"description": "a.description",
	"village_id":  "a.village_id",
	"date":        "a.date",
	"created_at":  "a.created_at",
}

const activityColumns = "a.id, a.title, a.description, a.village_id, a.date, a.created_at, a.updated_at"

func (s *ActivityStore) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	c := newCompiler(activityFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM activities a WHERE "+where, c.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return count, nil
}

func (s *ActivityStore) CountWithReports(ctx context.Context, pred scope.Predicate) (int, error) {
	c := newCompiler(activityFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("count reported activities: %w", err)
	}
	var count int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activities a
		WHERE `+where+` AND EXISTS (
			SELECT 1 FROM tasks t
			JOIN reports r ON r.task_id = t.id
			WHERE t.activity_id = a.id
		)`, c.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reported activities: %w", err)
	}
	return count, nil
}

func (s *ActivityStore) CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	return countPerDay(ctx, s.db, "activities", "a", activityFields, field, pred, from, to)
}

func (s *ActivityStore) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Activity, error) {
	c := newCompiler(activityFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}
	query := "SELECT " + activityColumns + " FROM activities a WHERE " + where + " ORDER BY a.created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var (
			a         models.Activity
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.VillageID, &a.Date, &a.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("find activities: %w", err)
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			a.UpdatedAt = &t
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}
	return activities, nil
}

func (s *ActivityStore) TopVillages(ctx context.Context, pred scope.Predicate, limit int) ([]models.VillagePerformance, error) {
	c := newCompiler(activityFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("top villages: %w", err)
	}
	query := `
		SELECT a.village_id,
		       COUNT(DISTINCT a.id) AS activities,
		       COUNT(t.id) AS total_tasks,
		       COUNT(t.id) FILTER (WHERE t.status = 'completed') AS completed_tasks
		FROM activities a
		LEFT JOIN tasks t ON t.activity_id = a.id
		WHERE ` + where + `
		GROUP BY a.village_id
		ORDER BY activities DESC, a.village_id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("top villages: %w", err)
	}
	defer rows.Close()

	var rollups []models.VillagePerformance
	for rows.Next() {
		var vp models.VillagePerformance
		if err := rows.Scan(&vp.VillageID, &vp.Activities, &vp.TotalTasks, &vp.CompletedTasks); err != nil {
			return nil, fmt.Errorf("top villages: %w", err)
		}
		rollups = append(rollups, vp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top villages: %w", err)
	}
	return rollups, nil
}

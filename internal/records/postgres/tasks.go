package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"communiserver/internal/records/models"
	"communiserver/internal/scope"
)

// TaskStore reads tasks.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore constructs a PostgreSQL-backed task reader.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

var taskFields = map[string]string{
	"id":                    "t.id",
	"title":                 "t.title",
	"description":           "t.description",
	"activity_id":           "t.activity_id",
	"isibo_id":              "t.isibo_id",
	"status":                "t.status",
	"estimated_cost":        "t.estimated_cost",
	"actual_cost":           "t.actual_cost",
	"expected_participants": "t.expected_participants",
	"actual_participants":   "t.actual_participants",
	"created_at":            "t.created_at",
	"completed_at":          "t.completed_at",
}

const taskColumns = "t.id, t.title, t.description, t.activity_id, t.isibo_id, t.status, " +
	"t.estimated_cost, t.actual_cost, t.expected_participants, t.actual_participants, " +
	"t.created_at, t.updated_at, t.completed_at"

func (s *TaskStore) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	c := newCompiler(taskFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks t WHERE "+where, c.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func (s *TaskStore) CountByStatus(ctx context.Context, pred scope.Predicate) (map[models.TaskStatus]int, error) {
	c := newCompiler(taskFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT t.status, COUNT(*) FROM tasks t WHERE "+where+" GROUP BY t.status", c.args...)
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("count tasks by status: %w", err)
		}
		counts[models.TaskStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	return counts, nil
}

func (s *TaskStore) SumField(ctx context.Context, field string, pred scope.Predicate) (float64, error) {
	col, ok := taskFields[field]
	if !ok {
		return 0, fmt.Errorf("sum tasks: unknown field %q", field)
	}
	c := newCompiler(taskFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("sum tasks: %w", err)
	}
	var sum float64
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM("+col+"), 0) FROM tasks t WHERE "+where, c.args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum tasks: %w", err)
	}
	return sum, nil
}

func (s *TaskStore) CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	return countPerDay(ctx, s.db, "tasks", "t", taskFields, field, pred, from, to)
}

func (s *TaskStore) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Task, error) {
	c := newCompiler(taskFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	query := "SELECT " + taskColumns + " FROM tasks t WHERE " + where + " ORDER BY t.created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var (
			t           models.Task
			status      string
			updatedAt   sql.NullTime
			completedAt sql.NullTime
		)
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.ActivityID, &t.IsiboID, &status,
			&t.EstimatedCost, &t.ActualCost, &t.ExpectedParticipants, &t.ActualParticipants,
			&t.CreatedAt, &updatedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("find tasks: %w", err)
		}
		t.Status = models.TaskStatus(status)
		if updatedAt.Valid {
			ts := updatedAt.Time
			t.UpdatedAt = &ts
		}
		if completedAt.Valid {
			ts := completedAt.Time
			t.CompletedAt = &ts
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}

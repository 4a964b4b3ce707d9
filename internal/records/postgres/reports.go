package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"communiserver/internal/records/models"
	"communiserver/internal/scope"
)

// ReportStore reads reports.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore constructs a PostgreSQL-backed report reader.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

var reportFields = map[string]string{
	"id":                    "r.id",
	"activity_id":           "r.activity_id",
	"task_id":               "r.task_id",
	"isibo_id":              "r.isibo_id",
	"village_id":            "r.village_id",
	"attendance":            "r.attendance",
	"comment":               "r.comment",
	"suggestions":           "r.suggestions",
	"challenges_faced":      "r.challenges_faced",
	"has_evidence":          "cardinality(r.evidence_urls) > 0",
	"estimated_cost":        "r.estimated_cost",
	"actual_cost":           "r.actual_cost",
	"expected_participants": "r.expected_participants",
	"actual_participants":   "r.actual_participants",
	"created_at":            "r.created_at",
}

const reportColumns = "r.id, r.activity_id, r.task_id, r.isibo_id, r.village_id, r.attendance, " +
	"r.comment, r.suggestions, r.challenges_faced, r.evidence_urls, " +
	"r.estimated_cost, r.actual_cost, r.expected_participants, r.actual_participants, " +
	"r.created_at, r.updated_at"

func (s *ReportStore) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	c := newCompiler(reportFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reports r WHERE "+where, c.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

func (s *ReportStore) SumField(ctx context.Context, field string, pred scope.Predicate) (float64, error) {
	col, ok := reportFields[field]
	if !ok {
		return 0, fmt.Errorf("sum reports: unknown field %q", field)
	}
	c := newCompiler(reportFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("sum reports: %w", err)
	}
	var sum float64
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM("+col+"), 0) FROM reports r WHERE "+where, c.args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum reports: %w", err)
	}
	return sum, nil
}

func (s *ReportStore) CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	return countPerDay(ctx, s.db, "reports", "r", reportFields, field, pred, from, to)
}

func (s *ReportStore) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Report, error) {
	c := newCompiler(reportFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	query := "SELECT " + reportColumns + " FROM reports r WHERE " + where + " ORDER BY r.created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var (
			r         models.Report
			updatedAt sql.NullTime
		)
		err := rows.Scan(&r.ID, &r.ActivityID, &r.TaskID, &r.IsiboID, &r.VillageID, &r.Attendance,
			&r.Comment, &r.Suggestions, &r.ChallengesFaced, pq.Array(&r.EvidenceURLs),
			&r.EstimatedCost, &r.ActualCost, &r.ExpectedParticipants, &r.ActualParticipants,
			&r.CreatedAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("find reports: %w", err)
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			r.UpdatedAt = &t
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	return reports, nil
}

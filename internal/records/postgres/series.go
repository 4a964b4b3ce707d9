package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"communiserver/internal/scope"
)

// countPerDay buckets rows of one table by the UTC calendar day of a
// timestamp column, over [from, to). Shared by the activity, task and report
// stores for time-series output.
func countPerDay(ctx context.Context, db *sql.DB, table, alias string, fields map[string]string, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	col, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("count %s per day: unknown field %q", table, field)
	}
	c := newCompiler(fields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("count %s per day: %w", table, err)
	}
	query := fmt.Sprintf(
		"SELECT (%s AT TIME ZONE 'UTC')::date AS day, COUNT(*) FROM %s %s WHERE %s AND %s >= %s AND %s < %s GROUP BY day",
		col, table, alias, where, col, c.bind(from), col, c.bind(to))

	rows, err := db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("count %s per day: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			day   time.Time
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("count %s per day: %w", table, err)
		}
		counts[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count %s per day: %w", table, err)
	}
	return counts, nil
}

// Package postgres persists audit events in the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "communiserver/pkg/platform/audit"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = "occurred_at, actor_id, role, action, surface, detail, outcome, request_id, client_ip, user_agent, elapsed_ms"

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.Timestamp, event.ActorID, event.Role, event.Action, event.Surface,
		event.Detail, event.Outcome, event.RequestID, event.ClientIP,
		event.UserAgent, event.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByActor(ctx context.Context, actorID uuid.UUID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events
		 WHERE actor_id = $1 ORDER BY occurred_at DESC`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list audit events by actor: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events
		 ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.Timestamp, &e.ActorID, &e.Role, &e.Action,
			&e.Surface, &e.Detail, &e.Outcome, &e.RequestID, &e.ClientIP,
			&e.UserAgent, &e.ElapsedMs); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

var _ audit.Store = (*Store)(nil)

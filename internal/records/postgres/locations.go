package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	locmodels "communiserver/internal/location/models"
	"communiserver/internal/scope"
)

// LocationStore reads location nodes as flat records for coverage counts and
// search. Ancestry lookups live in the location package.
type LocationStore struct {
	db *sql.DB
}

// NewLocationStore constructs a PostgreSQL-backed location reader.
func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

var locationFields = map[string]string{
	"id":         "l.id",
	"kind":       "l.kind",
	"name":       "l.name",
	"parent_id":  "l.parent_id",
	"leader_id":  "l.leader_id",
	"created_at": "l.created_at",
}

const locationColumns = "l.id, l.kind, l.name, l.parent_id, l.leader_id, l.created_at, l.updated_at"

func (s *LocationStore) CountByKind(ctx context.Context, kind locmodels.Kind, pred scope.Predicate, hasLeader *bool) (int, error) {
	c := newCompiler(locationFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}

	query := "SELECT COUNT(*) FROM locations l WHERE " + where
	if kind != locmodels.KindAny {
		query += " AND l.kind = " + c.bind(string(kind))
	}
	if hasLeader != nil {
		if *hasLeader {
			query += " AND l.leader_id IS NOT NULL"
		} else {
			query += " AND l.leader_id IS NULL"
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, c.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}
	return count, nil
}

func (s *LocationStore) Find(ctx context.Context, pred scope.Predicate, kinds []locmodels.Kind, limit int) ([]locmodels.Node, error) {
	c := newCompiler(locationFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}

	query := "SELECT " + locationColumns + " FROM locations l WHERE " + where
	if len(kinds) > 0 {
		placeholders := make([]string, 0, len(kinds))
		for _, k := range kinds {
			placeholders = append(placeholders, c.bind(string(k)))
		}
		query += " AND l.kind IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY l.name"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	defer rows.Close()

	var nodes []locmodels.Node
	for rows.Next() {
		node, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("find locations: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	return nodes, nil
}

func scanLocation(rows *sql.Rows) (locmodels.Node, error) {
	var (
		node      locmodels.Node
		kind      string
		parentID  uuid.NullUUID
		leaderID  uuid.NullUUID
		updatedAt sql.NullTime
	)
	if err := rows.Scan(&node.ID, &kind, &node.Name, &parentID, &leaderID, &node.CreatedAt, &updatedAt); err != nil {
		return locmodels.Node{}, err
	}
	node.Kind = locmodels.Kind(kind)
	if parentID.Valid {
		id := parentID.UUID
		node.ParentID = &id
	}
	if leaderID.Valid {
		id := leaderID.UUID
		node.LeaderID = &id
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		node.UpdatedAt = &t
	}
	return node, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"communiserver/internal/location/models"
	"communiserver/pkg/platform/sentinel"
)

// PostgresStore reads the location tree from the locations table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed hierarchy store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const nodeColumns = "id, kind, name, parent_id, leader_id, created_at, updated_at"

func (s *PostgresStore) Node(ctx context.Context, id uuid.UUID) (models.Node, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM locations WHERE id = $1", id)
	node, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Node{}, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
		}
		return models.Node{}, fmt.Errorf("find location: %w", err)
	}
	return node, nil
}

func (s *PostgresStore) AncestorChain(ctx context.Context, id uuid.UUID) ([]models.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE chain AS (
			SELECT `+nodeColumns+`, 0 AS hops FROM locations WHERE id = $1
			UNION ALL
			SELECT l.id, l.kind, l.name, l.parent_id, l.leader_id, l.created_at, l.updated_at, c.hops + 1
			FROM locations l
			JOIN chain c ON l.id = c.parent_id
		)
		SELECT `+nodeColumns+` FROM chain ORDER BY hops`, id)
	if err != nil {
		return nil, fmt.Errorf("ancestor chain: %w", err)
	}
	defer rows.Close()

	chain, err := collectNodes(rows)
	if err != nil {
		return nil, fmt.Errorf("ancestor chain: %w", err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
	}
	return chain, nil
}

func (s *PostgresStore) Children(ctx context.Context, id uuid.UUID, kind models.Kind) ([]models.Node, error) {
	query := "SELECT " + nodeColumns + " FROM locations WHERE parent_id = $1"
	args := []any{id}
	if kind != models.KindAny {
		query += " AND kind = $2"
		args = append(args, string(kind))
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	children, err := collectNodes(rows)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

func (s *PostgresStore) DescendantIDs(ctx context.Context, id uuid.UUID, kind models.Kind) ([]uuid.UUID, error) {
	query := `
		WITH RECURSIVE descendants AS (
			SELECT l.id, l.kind FROM locations l WHERE l.parent_id = $1
			UNION ALL
			SELECT l.id, l.kind FROM locations l
			JOIN descendants d ON l.parent_id = d.id
		)
		SELECT id FROM descendants`
	args := []any{id}
	if kind != models.KindAny {
		query += " WHERE kind = $2"
		args = append(args, string(kind))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("descendant ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var nodeID uuid.UUID
		if err := rows.Scan(&nodeID); err != nil {
			return nil, fmt.Errorf("descendant ids: %w", err)
		}
		ids = append(ids, nodeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("descendant ids: %w", err)
	}
	return ids, nil
}

// FindByIDs loads a batch of nodes; missing IDs are skipped.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM locations WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	defer rows.Close()

	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	return nodes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (models.Node, error) {
	var (
		node      models.Node
		kind      string
		parentID  uuid.NullUUID
		leaderID  uuid.NullUUID
		updatedAt sql.NullTime
	)
	if err := row.Scan(&node.ID, &kind, &node.Name, &parentID, &leaderID, &node.CreatedAt, &updatedAt); err != nil {
		return models.Node{}, err
	}
	node.Kind = models.Kind(kind)
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

func collectNodes(rows *sql.Rows) ([]models.Node, error) {
	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

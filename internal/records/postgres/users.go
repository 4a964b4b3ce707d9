package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"communiserver/internal/records/models"
	"communiserver/internal/scope"
)

// UserStore reads users.
type UserStore struct {
	db *sql.DB
}

// NewUserStore constructs a PostgreSQL-backed user reader.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

var userFields = map[string]string{
	"id":         "u.id",
	"names":      "u.names",
	"email":      "u.email",
	"phone":      "u.phone",
	"role":       "u.role",
	"cell_id":    "u.cell_id",
	"village_id": "u.village_id",
	"isibo_id":   "u.isibo_id",
	"house_id":   "u.house_id",
	"created_at": "u.created_at",
}

const userColumns = "u.id, u.names, u.email, u.phone, u.role, " +
	"u.cell_id, u.village_id, u.isibo_id, u.house_id, u.created_at, u.updated_at"

func (s *UserStore) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	c := newCompiler(userFields)
	where, err := c.compile(pred)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users u WHERE "+where, c.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *UserStore) CountByRole(ctx context.Context, pred scope.Predicate) (map[string]int, error) {
	c := newCompiler(userFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT u.role, COUNT(*) FROM users u WHERE "+where+" GROUP BY u.role", c.args...)
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			role  string
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("count users by role: %w", err)
		}
		counts[role] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	return counts, nil
}

func (s *UserStore) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.User, error) {
	c := newCompiler(userFields)
	where, err := c.compile(pred)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	query := "SELECT " + userColumns + " FROM users u WHERE " + where + " ORDER BY u.created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			u         models.User
			cellID    uuid.NullUUID
			villageID uuid.NullUUID
			isiboID   uuid.NullUUID
			houseID   uuid.NullUUID
			updatedAt sql.NullTime
		)
		err := rows.Scan(&u.ID, &u.Names, &u.Email, &u.Phone, &u.Role,
			&cellID, &villageID, &isiboID, &houseID, &u.CreatedAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("find users: %w", err)
		}
		u.CellID = nullableUUID(cellID)
		u.VillageID = nullableUUID(villageID)
		u.IsiboID = nullableUUID(isiboID)
		u.HouseID = nullableUUID(houseID)
		if updatedAt.Valid {
			t := updatedAt.Time
			u.UpdatedAt = &t
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}

func nullableUUID(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}

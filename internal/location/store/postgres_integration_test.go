//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communiserver/internal/location/models"
	"communiserver/internal/location/store"
	"communiserver/pkg/platform/sentinel"
	"communiserver/pkg/testutil/containers"
)

const locationsDDL = `CREATE TABLE IF NOT EXISTS locations (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	parent_id UUID,
	leader_id UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ
)`

func TestPostgresHierarchyStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	require.NoError(t, pg.Apply(ctx, locationsDDL))

	ids := struct {
		province, district, sector, cell uuid.UUID
		village1, village2               uuid.UUID
		isibo1, isibo2                   uuid.UUID
	}{
		province: uuid.New(), district: uuid.New(), sector: uuid.New(), cell: uuid.New(),
		village1: uuid.New(), village2: uuid.New(), isibo1: uuid.New(), isibo2: uuid.New(),
	}

	rows := []struct {
		id       uuid.UUID
		kind     models.Kind
		name     string
		parentID *uuid.UUID
	}{
		{ids.province, models.KindProvince, "Kigali", nil},
		{ids.district, models.KindDistrict, "Gasabo", &ids.province},
		{ids.sector, models.KindSector, "Remera", &ids.district},
		{ids.cell, models.KindCell, "Nyabisindu", &ids.sector},
		{ids.village1, models.KindVillage, "Amahoro", &ids.cell},
		{ids.village2, models.KindVillage, "Ubumwe", &ids.cell},
		{ids.isibo1, models.KindIsibo, "Isibo 1", &ids.village1},
		{ids.isibo2, models.KindIsibo, "Isibo 2", &ids.village1},
	}
	for _, row := range rows {
		_, err := pg.DB.ExecContext(ctx,
			`INSERT INTO locations (id, kind, name, parent_id) VALUES ($1, $2, $3, $4)`,
			row.id, string(row.kind), row.name, row.parentID)
		require.NoError(t, err)
	}

	s := store.NewPostgres(pg.DB)

	t.Run("node lookup", func(t *testing.T) {
		node, err := s.Node(ctx, ids.cell)
		require.NoError(t, err)
		assert.Equal(t, "Nyabisindu", node.Name)
		assert.Equal(t, models.KindCell, node.Kind)
		require.NotNil(t, node.ParentID)
		assert.Equal(t, ids.sector, *node.ParentID)

		_, err = s.Node(ctx, uuid.New())
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("ancestor chain walks to the root", func(t *testing.T) {
		chain, err := s.AncestorChain(ctx, ids.isibo1)
		require.NoError(t, err)
		require.Len(t, chain, 6)
		assert.Equal(t, ids.isibo1, chain[0].ID)
		assert.Equal(t, ids.village1, chain[1].ID)
		assert.Equal(t, ids.province, chain[5].ID)

		_, err = s.AncestorChain(ctx, uuid.New())
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("children ordered by name and filtered by kind", func(t *testing.T) {
		villages, err := s.Children(ctx, ids.cell, models.KindVillage)
		require.NoError(t, err)
		require.Len(t, villages, 2)
		assert.Equal(t, "Amahoro", villages[0].Name)
		assert.Equal(t, "Ubumwe", villages[1].Name)

		houses, err := s.Children(ctx, ids.cell, models.KindHouse)
		require.NoError(t, err)
		assert.Empty(t, houses)
	})

	t.Run("descendant ids expand the subtree", func(t *testing.T) {
		isibos, err := s.DescendantIDs(ctx, ids.cell, models.KindIsibo)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{ids.isibo1, ids.isibo2}, isibos)

		all, err := s.DescendantIDs(ctx, ids.sector, models.KindAny)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		none, err := s.DescendantIDs(ctx, ids.village2, models.KindAny)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("batch lookup skips missing ids", func(t *testing.T) {
		nodes, err := s.FindByIDs(ctx, []uuid.UUID{ids.village1, uuid.New()})
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "Amahoro", nodes[0].Name)
	})
}

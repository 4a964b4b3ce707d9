//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communiserver/internal/location/cache"
	"communiserver/internal/location/models"
	"communiserver/pkg/platform/sentinel"
	"communiserver/pkg/testutil/containers"
)

func TestRedisHierarchyCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	c := cache.NewRedis(rc.Client, time.Minute)
	ctx := context.Background()

	t.Run("chain miss then round trip", func(t *testing.T) {
		village := uuid.New()
		cell := uuid.New()

		_, err := c.Chain(ctx, village)
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		chain := []models.Node{
			{ID: village, Kind: models.KindVillage, Name: "Amahoro", ParentID: &cell},
			{ID: cell, Kind: models.KindCell, Name: "Nyabisindu"},
		}
		require.NoError(t, c.SaveChain(ctx, village, chain))

		got, err := c.Chain(ctx, village)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, village, got[0].ID)
		assert.Equal(t, models.KindCell, got[1].Kind)
		require.NotNil(t, got[0].ParentID)
		assert.Equal(t, cell, *got[0].ParentID)
	})

	t.Run("descendants are keyed per kind", func(t *testing.T) {
		cell := uuid.New()
		isibos := []uuid.UUID{uuid.New(), uuid.New()}

		require.NoError(t, c.SaveDescendants(ctx, cell, models.KindIsibo, isibos))

		got, err := c.Descendants(ctx, cell, models.KindIsibo)
		require.NoError(t, err)
		assert.ElementsMatch(t, isibos, got)

		// Another level of the same node is a separate entry.
		_, err = c.Descendants(ctx, cell, models.KindVillage)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = c.Descendants(ctx, cell, models.KindAny)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("empty descendant set is cached", func(t *testing.T) {
		leaf := uuid.New()
		require.NoError(t, c.SaveDescendants(ctx, leaf, models.KindAny, nil))

		got, err := c.Descendants(ctx, leaf, models.KindAny)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

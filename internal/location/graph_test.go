package location_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communiserver/internal/location"
	"communiserver/internal/location/models"
	"communiserver/internal/location/store"
	"communiserver/pkg/platform/sentinel"
)

// hierarchy is a small fixture tree:
//
//	Kigali (province)
//	└── Gasabo (district)
//	    └── Remera (sector)
//	        └── Nyabisindu (cell)
//	            ├── Amahoro (village)
//	            │   ├── Isibo 1
//	            │   └── Isibo 2
//	            └── Ubumwe (village)
type hierarchy struct {
	province, district, sector, cell uuid.UUID
	village1, village2               uuid.UUID
	isibo1, isibo2                   uuid.UUID
}

func buildHierarchy(t *testing.T) (*store.MemoryStore, hierarchy) {
	t.Helper()

	h := hierarchy{
		province: uuid.New(), district: uuid.New(), sector: uuid.New(), cell: uuid.New(),
		village1: uuid.New(), village2: uuid.New(), isibo1: uuid.New(), isibo2: uuid.New(),
	}
	s := store.NewMemory()
	nodes := []models.Node{
		{ID: h.province, Kind: models.KindProvince, Name: "Kigali"},
		{ID: h.district, Kind: models.KindDistrict, Name: "Gasabo", ParentID: &h.province},
		{ID: h.sector, Kind: models.KindSector, Name: "Remera", ParentID: &h.district},
		{ID: h.cell, Kind: models.KindCell, Name: "Nyabisindu", ParentID: &h.sector},
		{ID: h.village1, Kind: models.KindVillage, Name: "Amahoro", ParentID: &h.cell},
		{ID: h.village2, Kind: models.KindVillage, Name: "Ubumwe", ParentID: &h.cell},
		{ID: h.isibo1, Kind: models.KindIsibo, Name: "Isibo 1", ParentID: &h.village1},
		{ID: h.isibo2, Kind: models.KindIsibo, Name: "Isibo 2", ParentID: &h.village1},
	}
	for _, node := range nodes {
		require.NoError(t, s.Add(node))
	}
	return s, h
}

func TestGraph_Node(t *testing.T) {
	s, h := buildHierarchy(t)
	graph := location.NewGraph(s)

	node, err := graph.Node(context.Background(), h.cell)
	require.NoError(t, err)
	assert.Equal(t, "Nyabisindu", node.Name)
	assert.Equal(t, models.KindCell, node.Kind)

	_, err = graph.Node(context.Background(), uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestGraph_ChildrenFiltersByKind(t *testing.T) {
	s, h := buildHierarchy(t)
	graph := location.NewGraph(s)

	villages, err := graph.Children(context.Background(), h.cell, models.KindVillage)
	require.NoError(t, err)
	require.Len(t, villages, 2)

	houses, err := graph.Children(context.Background(), h.cell, models.KindHouse)
	require.NoError(t, err)
	assert.Empty(t, houses)
}

func TestGraph_AncestorChainRunsLeafToRoot(t *testing.T) {
	s, h := buildHierarchy(t)
	graph := location.NewGraph(s)

	chain, err := graph.AncestorChain(context.Background(), h.isibo1)
	require.NoError(t, err)
	require.Len(t, chain, 6)
	assert.Equal(t, h.isibo1, chain[0].ID)
	assert.Equal(t, h.village1, chain[1].ID)
	assert.Equal(t, h.province, chain[5].ID)
}

func TestGraph_AncestorByKind(t *testing.T) {
	s, h := buildHierarchy(t)
	graph := location.NewGraph(s)

	cell, err := graph.Ancestor(context.Background(), h.isibo2, models.KindCell)
	require.NoError(t, err)
	assert.Equal(t, h.cell, cell.ID)

	// A province has no district above it.
	_, err = graph.Ancestor(context.Background(), h.province, models.KindDistrict)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestGraph_DescendantIDs(t *testing.T) {
	s, h := buildHierarchy(t)
	graph := location.NewGraph(s)
	ctx := context.Background()

	isibos, err := graph.DescendantIDs(ctx, h.cell, models.KindIsibo)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{h.isibo1, h.isibo2}, isibos)

	all, err := graph.DescendantIDs(ctx, h.cell, models.KindAny)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{h.village1, h.village2, h.isibo1, h.isibo2}, all)

	// Leaf nodes expand to nothing.
	none, err := graph.DescendantIDs(ctx, h.isibo1, models.KindAny)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_AddRequiresExistingParent(t *testing.T) {
	s := store.NewMemory()

	err := s.Add(models.Node{ID: uuid.New(), Kind: models.KindVillage, Name: "Orphan"})
	require.Error(t, err)

	missing := uuid.New()
	err = s.Add(models.Node{ID: uuid.New(), Kind: models.KindVillage, Name: "Dangling", ParentID: &missing})
	require.Error(t, err)
}

func TestKind_DepthOrdering(t *testing.T) {
	assert.True(t, models.KindIsibo.Below(models.KindVillage))
	assert.True(t, models.KindHouse.Below(models.KindProvince))
	assert.False(t, models.KindCell.Below(models.KindCell))

	kind, err := models.ParseKind("village")
	require.NoError(t, err)
	assert.Equal(t, models.KindVillage, kind)

	_, err = models.ParseKind("county")
	require.Error(t, err)
}

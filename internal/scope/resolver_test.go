package scope

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communiserver/internal/location"
	locmodels "communiserver/internal/location/models"
	locstore "communiserver/internal/location/store"
	dErrors "communiserver/pkg/domain-errors"
)

// fixture is a minimal hierarchy: one cell with two villages, the first
// village holding two isibos.
type fixture struct {
	cell     uuid.UUID
	village1 uuid.UUID
	village2 uuid.UUID
	isibo1   uuid.UUID
	isibo2   uuid.UUID
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := locstore.NewMemory()

	f := &fixture{
		cell:     uuid.New(),
		village1: uuid.New(),
		village2: uuid.New(),
		isibo1:   uuid.New(),
		isibo2:   uuid.New(),
	}

	province := uuid.New()
	district := uuid.New()
	sector := uuid.New()
	add := func(id uuid.UUID, kind locmodels.Kind, name string, parent *uuid.UUID) {
		require.NoError(t, store.Add(locmodels.Node{ID: id, Kind: kind, Name: name, ParentID: parent}))
	}
	add(province, locmodels.KindProvince, "Kigali", nil)
	add(district, locmodels.KindDistrict, "Gasabo", &province)
	add(sector, locmodels.KindSector, "Remera", &district)
	add(f.cell, locmodels.KindCell, "Nyabisindu", &sector)
	add(f.village1, locmodels.KindVillage, "Amahoro", &f.cell)
	add(f.village2, locmodels.KindVillage, "Ubumwe", &f.cell)
	add(f.isibo1, locmodels.KindIsibo, "Isibo 1", &f.village1)
	add(f.isibo2, locmodels.KindIsibo, "Isibo 2", &f.village1)

	graph := location.NewGraph(store)
	f.resolver = NewResolver(graph, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func TestResolve_AdminSeesEverything(t *testing.T) {
	f := newFixture(t)

	for _, kind := range AllEntityKinds {
		pred, err := f.resolver.Resolve(context.Background(), ActorContext{Role: RoleAdmin}, kind)
		require.NoError(t, err)
		assert.IsType(t, All{}, pred, "kind %s", kind)
	}
}

func TestResolve_RolesWithoutJurisdictionFailClosed(t *testing.T) {
	f := newFixture(t)

	for _, role := range []Role{RoleCitizen, RoleVolunteer, RoleGuest, RoleHouseRepresentative} {
		pred, err := f.resolver.Resolve(context.Background(), ActorContext{Role: role}, KindActivity)
		require.NoError(t, err)
		assert.IsType(t, None{}, pred, "role %s", role)
	}
}

func TestResolve_LeaderWithoutBindingIsForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), ActorContext{Role: RoleVillageLeader}, KindActivity)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestResolve_SameLevelBindsEquals(t *testing.T) {
	f := newFixture(t)
	actor := ActorContext{Role: RoleVillageLeader, VillageID: &f.village1}

	pred, err := f.resolver.Resolve(context.Background(), actor, KindActivity)
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: "village_id", Value: f.village1}, pred)
}

func TestResolve_LowerLevelExpandsToDescendants(t *testing.T) {
	f := newFixture(t)
	actor := ActorContext{Role: RoleVillageLeader, VillageID: &f.village1}

	pred, err := f.resolver.Resolve(context.Background(), actor, KindTask)
	require.NoError(t, err)
	in, ok := pred.(In)
	require.True(t, ok)
	assert.Equal(t, "isibo_id", in.Field)
	assert.ElementsMatch(t, []uuid.UUID{f.isibo1, f.isibo2}, in.IDs)
}

func TestResolve_EmptyDescendantSetMatchesNothing(t *testing.T) {
	f := newFixture(t)
	// village2 has no isibos; the In predicate carries an empty ID set.
	actor := ActorContext{Role: RoleVillageLeader, VillageID: &f.village2}

	pred, err := f.resolver.Resolve(context.Background(), actor, KindReport)
	require.NoError(t, err)
	in, ok := pred.(In)
	require.True(t, ok)
	assert.Empty(t, in.IDs)
}

func TestResolve_HigherLevelBindsViaAncestor(t *testing.T) {
	f := newFixture(t)
	actor := ActorContext{Role: RoleIsiboLeader, IsiboID: &f.isibo1}

	pred, err := f.resolver.Resolve(context.Background(), actor, KindActivity)
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: "village_id", Value: f.village1}, pred)
}

func TestResolve_LocationScopeIsSubtree(t *testing.T) {
	f := newFixture(t)
	actor := ActorContext{Role: RoleVillageLeader, VillageID: &f.village1}

	pred, err := f.resolver.Resolve(context.Background(), actor, KindLocation)
	require.NoError(t, err)
	in, ok := pred.(In)
	require.True(t, ok)
	assert.Equal(t, "id", in.Field)
	assert.ElementsMatch(t, []uuid.UUID{f.village1, f.isibo1, f.isibo2}, in.IDs)
}

func TestResolve_CellLeaderScopesUsersByCell(t *testing.T) {
	f := newFixture(t)
	actor := ActorContext{Role: RoleCellLeader, CellID: &f.cell}

	pred, err := f.resolver.Resolve(context.Background(), actor, KindUser)
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: "cell_id", Value: f.cell}, pred)
}

func TestResolveLocation_UnknownNode(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.ResolveLocation(context.Background(), uuid.New(), KindActivity)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestResolveLocation_CellNarrowsActivitiesToVillages(t *testing.T) {
	f := newFixture(t)

	pred, err := f.resolver.ResolveLocation(context.Background(), f.cell, KindActivity)
	require.NoError(t, err)
	in, ok := pred.(In)
	require.True(t, ok)
	assert.Equal(t, "village_id", in.Field)
	assert.ElementsMatch(t, []uuid.UUID{f.village1, f.village2}, in.IDs)
}

func TestResolveLocation_IsiboPinsActivityToOwningVillage(t *testing.T) {
	f := newFixture(t)

	pred, err := f.resolver.ResolveLocation(context.Background(), f.isibo2, KindActivity)
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: "village_id", Value: f.village1}, pred)
}

func TestResolveLocation_UserFilterUsesNodeLevelColumn(t *testing.T) {
	f := newFixture(t)

	pred, err := f.resolver.ResolveLocation(context.Background(), f.village1, KindUser)
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: "village_id", Value: f.village1}, pred)
}

func TestResolveAll_PropagatesDenial(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.ResolveAll(context.Background(), ActorContext{Role: RoleCellLeader}, KindActivity, KindTask)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

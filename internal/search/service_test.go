package search

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communiserver/internal/location"
	locmodels "communiserver/internal/location/models"
	locstore "communiserver/internal/location/store"
	"communiserver/internal/records/memory"
	recmodels "communiserver/internal/records/models"
	"communiserver/internal/scope"
	"communiserver/internal/search/models"
	dErrors "communiserver/pkg/domain-errors"
)

type fixture struct {
	svc      *Service
	store    *memory.Store
	village1 uuid.UUID
	village2 uuid.UUID
}

var fixtureBase = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hier := locstore.NewMemory()
	province := locmodels.Node{ID: uuid.New(), Kind: locmodels.KindProvince, Name: "Kigali"}
	district := locmodels.Node{ID: uuid.New(), Kind: locmodels.KindDistrict, Name: "Gasabo", ParentID: &province.ID}
	sector := locmodels.Node{ID: uuid.New(), Kind: locmodels.KindSector, Name: "Remera", ParentID: &district.ID}
	cell := locmodels.Node{ID: uuid.New(), Kind: locmodels.KindCell, Name: "UBUMWE", ParentID: &sector.ID}
	village1 := locmodels.Node{ID: uuid.New(), Kind: locmodels.KindVillage, Name: "UBUMWE BWIZA", ParentID: &cell.ID}
	village2 := locmodels.Node{ID: uuid.New(), Kind: locmodels.KindVillage, Name: "Kabeza", ParentID: &cell.ID}
	isibo := locmodels.Node{ID: uuid.New(), Kind: locmodels.KindIsibo, Name: "Isibo rya mbere", ParentID: &village1.ID}
	for _, n := range []locmodels.Node{province, district, sector, cell, village1, village2, isibo} {
		require.NoError(t, hier.Add(n))
	}

	store := memory.NewStore()
	for _, n := range []locmodels.Node{cell, village1, village2, isibo} {
		store.AddLocation(n)
	}

	day := 0
	addActivity := func(village uuid.UUID, title, description string) recmodels.Activity {
		a := recmodels.Activity{
			ID:          uuid.New(),
			Title:       title,
			Description: description,
			VillageID:   village,
			Date:        fixtureBase.AddDate(0, 0, day),
			CreatedAt:   fixtureBase.AddDate(0, 0, day),
		}
		day++
		store.AddActivity(a)
		return a
	}
	cleanup := addActivity(village1.ID, "Umuganda cleanup", "monthly community work")
	addActivity(village1.ID, "Road repair", "fix the drainage")
	addActivity(village2.ID, "Water project", "bring water to Kabeza")

	store.AddTask(recmodels.Task{
		ID:         uuid.New(),
		Title:      "Cleanup crew",
		ActivityID: cleanup.ID,
		IsiboID:    isibo.ID,
		Status:     recmodels.TaskCompleted,
		ActualCost: 75,
		CreatedAt:  fixtureBase,
	})
	store.AddReport(recmodels.Report{
		ID:           uuid.New(),
		ActivityID:   cleanup.ID,
		IsiboID:      isibo.ID,
		VillageID:    village1.ID,
		Comment:      "cleanup went well",
		Suggestions:  "start earlier",
		EvidenceURLs: []string{"https://cdn.example/r1.jpg"},
		CreatedAt:    fixtureBase,
	})
	store.AddReport(recmodels.Report{
		ID:         uuid.New(),
		ActivityID: cleanup.ID,
		IsiboID:    isibo.ID,
		VillageID:  village1.ID,
		Comment:    "cleanup follow-up",
		CreatedAt:  fixtureBase,
	})
	store.AddUser(recmodels.User{
		ID:        uuid.New(),
		Names:     "Claudine Cleanup",
		Email:     "claudine@example.rw",
		Role:      string(scope.RoleCitizen),
		VillageID: &village1.ID,
		CreatedAt: fixtureBase,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	graph := location.NewGraph(hier, location.WithLogger(logger))
	resolver := scope.NewResolver(graph, logger)

	adapters := []Adapter{
		NewActivityAdapter(store.Activities(), graph),
		NewTaskAdapter(store.Tasks(), store.Activities(), graph),
		NewReportAdapter(store.Reports(), graph),
		NewUserAdapter(store),
		NewLocationAdapter(store.Locations(), graph),
	}
	svc := NewService(resolver, graph, store.Locations(), adapters, WithLogger(logger))

	return &fixture{svc: svc, store: store, village1: village1.ID, village2: village2.ID}
}

func admin() scope.ActorContext {
	return scope.ActorContext{UserID: uuid.New(), Role: scope.RoleAdmin}
}

func TestGlobalExactLocationOutranksPartial(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.Global(context.Background(), models.Request{
		Query: "UBUMWE",
		Page:  1,
		Size:  10,
	}, admin())
	require.NoError(t, err)

	locations := page.Results[scope.KindLocation]
	require.Len(t, locations, 2, "cell and village both match")
	assert.Equal(t, "UBUMWE", locations[0].Title)
	assert.Equal(t, 100, locations[0].Score)
	assert.Equal(t, "UBUMWE BWIZA", locations[1].Title)
	assert.Greater(t, locations[0].Score, locations[1].Score)
}

func TestGlobalEmptyBucketsPresent(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.Global(context.Background(), models.Request{
		Query: "cleanup",
		Page:  1,
		Size:  10,
	}, admin())
	require.NoError(t, err)

	for _, kind := range scope.AllEntityKinds {
		_, ok := page.Results[kind]
		assert.True(t, ok, "bucket for %s must exist even when empty", kind)
	}
	assert.Empty(t, page.Results[scope.KindLocation])
	assert.NotEmpty(t, page.Results[scope.KindActivity])
	assert.NotEmpty(t, page.Results[scope.KindTask])
	assert.NotEmpty(t, page.Results[scope.KindReport])
	assert.NotEmpty(t, page.Results[scope.KindUser])
}

func TestGlobalPaginationInvariants(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 9; i++ {
		f.store.AddActivity(recmodels.Activity{
			ID:        uuid.New(),
			Title:     "Extra cleanup round",
			VillageID: f.village1,
			Date:      fixtureBase,
			CreatedAt: fixtureBase.Add(time.Duration(i) * time.Minute),
		})
	}

	// 12 matches total: 10 activities, 1 task, 1 user... the two reports
	// match "cleanup" too, so pin the kind set.
	req := models.Request{
		Query: "cleanup",
		Kinds: []scope.EntityKind{scope.KindActivity, scope.KindTask, scope.KindUser},
		Size:  5,
	}

	var (
		total     int
		itemSum   int
		itemSizes []int
	)
	for pageNum := 1; pageNum <= 3; pageNum++ {
		req.Page = pageNum
		page, err := f.svc.Global(context.Background(), req, admin())
		require.NoError(t, err)
		total = page.Meta.Total
		itemSum += page.Meta.ItemCount
		itemSizes = append(itemSizes, page.Meta.ItemCount)
		assert.LessOrEqual(t, page.Meta.ItemCount, 5)
		assert.Equal(t, 3, page.Meta.TotalPages)
		assert.Equal(t, pageNum, page.Meta.Page)
	}

	assert.Equal(t, 12, total)
	assert.Equal(t, total, itemSum, "page item counts must sum to the total")
	assert.Equal(t, []int{5, 5, 2}, itemSizes)
}

func TestGlobalSortStability(t *testing.T) {
	f := newFixture(t)
	req := models.Request{Query: "cleanup", Page: 1, Size: 20}

	first, err := f.svc.Global(context.Background(), req, admin())
	require.NoError(t, err)
	second, err := f.svc.Global(context.Background(), req, admin())
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results, "equal-score ordering must not change between calls")
}

func TestGlobalScopedToJurisdiction(t *testing.T) {
	f := newFixture(t)
	actor := scope.ActorContext{
		UserID:    uuid.New(),
		Role:      scope.RoleVillageLeader,
		VillageID: &f.village2,
	}

	page, err := f.svc.Global(context.Background(), models.Request{
		Query: "project",
		Kinds: []scope.EntityKind{scope.KindActivity},
		Page:  1,
		Size:  10,
	}, actor)
	require.NoError(t, err)
	require.Len(t, page.Results[scope.KindActivity], 1)

	page, err = f.svc.Global(context.Background(), models.Request{
		Query: "cleanup",
		Kinds: []scope.EntityKind{scope.KindActivity},
		Page:  1,
		Size:  10,
	}, actor)
	require.NoError(t, err)
	assert.Empty(t, page.Results[scope.KindActivity], "village 1 activities must not leak")
}

func TestGlobalHasEvidenceFilter(t *testing.T) {
	f := newFixture(t)
	evidenced := true

	page, err := f.svc.Global(context.Background(), models.Request{
		Query:   "cleanup",
		Kinds:   []scope.EntityKind{scope.KindReport},
		Filters: models.Filters{HasEvidence: &evidenced},
		Page:    1,
		Size:    10,
	}, admin())
	require.NoError(t, err)
	require.Len(t, page.Results[scope.KindReport], 1)
	assert.Equal(t, "cleanup went well", page.Results[scope.KindReport][0].Title)
}

func TestGlobalRejectsBadPagination(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Global(context.Background(), models.Request{Query: "x", Page: 0, Size: 10}, admin())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.svc.Global(context.Background(), models.Request{Query: "x", Page: 1, Size: 0}, admin())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.svc.Global(context.Background(), models.Request{Query: "x", Page: 1, Size: 1000}, admin())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestGlobalRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Global(context.Background(), models.Request{
		Query: "x",
		Kinds: []scope.EntityKind{"widget"},
		Page:  1,
		Size:  10,
	}, admin())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestLocationsSearch(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.Locations(context.Background(), models.LocationRequest{
		Query: "UBUMWE",
		Page:  1,
		Size:  10,
	}, admin())
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "UBUMWE", page.Results[0].Title)
	assert.Equal(t, 100, page.Results[0].Score)

	page, err = f.svc.Locations(context.Background(), models.LocationRequest{
		Query: "UBUMWE",
		Kinds: []string{string(locmodels.KindVillage)},
		Page:  1,
		Size:  10,
	}, admin())
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "UBUMWE BWIZA", page.Results[0].Title)
}

func TestLocationsRejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Locations(context.Background(), models.LocationRequest{
		Query: "UBUMWE",
		Kinds: []string{"galaxy"},
		Page:  1,
		Size:  10,
	}, admin())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

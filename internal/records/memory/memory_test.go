package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	locmodels "communiserver/internal/location/models"
	"communiserver/internal/records/models"
	"communiserver/internal/scope"
)

func seedStore(t *testing.T) (*Store, uuid.UUID, uuid.UUID) {
	t.Helper()
	s := NewStore()
	villageA := uuid.New()
	villageB := uuid.New()
	isibo := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	actA := models.Activity{ID: uuid.New(), Title: "Umuganda cleanup", Description: "road clearing", VillageID: villageA, Date: base, CreatedAt: base}
	actB := models.Activity{ID: uuid.New(), Title: "Water project", VillageID: villageB, Date: base.AddDate(0, 0, 3), CreatedAt: base.AddDate(0, 0, 3)}
	s.AddActivity(actA)
	s.AddActivity(actB)

	s.AddTask(models.Task{ID: uuid.New(), Title: "Clear drainage", ActivityID: actA.ID, IsiboID: isibo, Status: models.TaskCompleted, ActualCost: 120, EstimatedCost: 100, CreatedAt: base})
	s.AddTask(models.Task{ID: uuid.New(), Title: "Plant trees", ActivityID: actA.ID, IsiboID: isibo, Status: models.TaskPending, EstimatedCost: 40, CreatedAt: base.Add(time.Hour)})
	s.AddTask(models.Task{ID: uuid.New(), Title: "Dig trench", ActivityID: actB.ID, IsiboID: uuid.New(), Status: models.TaskInProgress, EstimatedCost: 300, CreatedAt: base.AddDate(0, 0, 3)})

	s.AddReport(models.Report{ID: uuid.New(), ActivityID: actA.ID, IsiboID: isibo, VillageID: villageA, Attendance: 18, ActualCost: 120, EvidenceURLs: []string{"https://cdn.example/p1.jpg"}, CreatedAt: base.Add(2 * time.Hour)})

	s.AddUser(models.User{ID: uuid.New(), Names: "Alice Uwimana", Role: "CITIZEN", VillageID: &villageA, CreatedAt: base})
	s.AddUser(models.User{ID: uuid.New(), Names: "Bob Mugisha", Role: "VILLAGE_LEADER", VillageID: &villageA, CreatedAt: base.Add(time.Minute)})
	s.AddUser(models.User{ID: uuid.New(), Names: "Chantal Ingabire", Role: "CITIZEN", VillageID: &villageB, CreatedAt: base.Add(2 * time.Minute)})

	leader := uuid.New()
	s.AddLocation(locmodels.Node{ID: villageA, Kind: locmodels.KindVillage, Name: "Kabeza", LeaderID: &leader, CreatedAt: base})
	s.AddLocation(locmodels.Node{ID: villageB, Kind: locmodels.KindVillage, Name: "Nyarutarama", CreatedAt: base})
	s.AddLocation(locmodels.Node{ID: isibo, Kind: locmodels.KindIsibo, Name: "Isibo ya mbere", CreatedAt: base})

	return s, villageA, villageB
}

func TestStoreScopedCounts(t *testing.T) {
	s, villageA, _ := seedStore(t)
	ctx := context.Background()

	n, err := s.Activities().Count(ctx, scope.Equals{Field: "village_id", Value: villageA})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Activities().Count(ctx, scope.All{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Activities().Count(ctx, scope.None{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.Activities().CountWithReports(ctx, scope.All{})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the reported activity counts")
}

func TestStoreCountByStatusAndSum(t *testing.T) {
	s, _, _ := seedStore(t)
	ctx := context.Background()

	byStatus, err := s.Tasks().CountByStatus(ctx, scope.All{})
	require.NoError(t, err)
	assert.Equal(t, 1, byStatus[models.TaskCompleted])
	assert.Equal(t, 1, byStatus[models.TaskPending])
	assert.Equal(t, 1, byStatus[models.TaskInProgress])

	sum, err := s.Tasks().SumField(ctx, "estimated_cost", scope.All{})
	require.NoError(t, err)
	assert.InDelta(t, 440.0, sum, 0.001)

	_, err = s.Tasks().SumField(ctx, "no_such_field", scope.All{})
	require.Error(t, err)
}

func TestStoreCountByRole(t *testing.T) {
	s, villageA, _ := seedStore(t)
	ctx := context.Background()

	counts, err := s.CountByRole(ctx, scope.Equals{Field: "village_id", Value: villageA})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"CITIZEN": 1, "VILLAGE_LEADER": 1}, counts)
}

func TestStoreTextMatchAndFindOrdering(t *testing.T) {
	s, _, _ := seedStore(t)
	ctx := context.Background()

	pred := scope.Conjoin(scope.All{}, scope.TextMatch{Fields: []string{"title", "description"}, Query: "ROAD"})
	acts, err := s.Activities().Find(ctx, pred, 0)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "Umuganda cleanup", acts[0].Title)

	all, err := s.Tasks().Find(ctx, scope.All{}, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Dig trench", all[0].Title, "newest first")
}

func TestStoreTimeRangeHalfOpen(t *testing.T) {
	s, _, _ := seedStore(t)
	ctx := context.Background()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	n, err := s.Activities().Count(ctx, scope.TimeRange{Field: "date", From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "upper bound is exclusive")
}

func TestStoreLocationCountByKind(t *testing.T) {
	s, _, _ := seedStore(t)
	ctx := context.Background()

	n, err := s.Locations().CountByKind(ctx, locmodels.KindVillage, scope.All{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	withLeader := true
	n, err = s.Locations().CountByKind(ctx, locmodels.KindVillage, scope.All{}, &withLeader)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	nodes, err := s.Locations().Find(ctx, scope.All{}, []locmodels.Kind{locmodels.KindVillage}, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Kabeza", nodes[0].Name, "ordered by name")
}

func TestStoreHasEvidenceBool(t *testing.T) {
	s, _, _ := seedStore(t)
	ctx := context.Background()

	n, err := s.Reports().Count(ctx, scope.Bool{Field: "has_evidence", Value: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Reports().Count(ctx, scope.Bool{Field: "has_evidence", Value: false})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

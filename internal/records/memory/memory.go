// Package memory is an in-memory records backend. It mirrors the postgres
// stores' semantics, including predicate evaluation and result ordering, so
// service tests can run against it without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	locmodels "communiserver/internal/location/models"
	"communiserver/internal/records"
	"communiserver/internal/records/models"
	"communiserver/internal/scope"
)

var (
	_ records.UserReader     = (*Store)(nil)
	_ records.ActivityReader = (*ActivityView)(nil)
	_ records.TaskReader     = (*TaskView)(nil)
	_ records.ReportReader   = (*ReportView)(nil)
	_ records.LocationReader = (*LocationView)(nil)
)

// Store holds all record kinds behind one mutex. It implements every reader
// interface in the records package.
type Store struct {
	mu         sync.RWMutex
	users      []models.User
	activities []models.Activity
	tasks      []models.Task
	reports    []models.Report
	locations  []locmodels.Node
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
}

func (s *Store) AddActivity(a models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, a)
}

func (s *Store) AddTask(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

func (s *Store) AddReport(r models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

func (s *Store) AddLocation(n locmodels.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, n)
}

func userGetter(u models.User) fieldGetter {
	return func(field string) (any, bool) {
		switch field {
		case "id":
			return u.ID, true
		case "names":
			return u.Names, true
		case "email":
			return u.Email, true
		case "phone":
			return u.Phone, true
		case "role":
			return u.Role, true
		case "cell_id":
			return u.CellID, true
		case "village_id":
			return u.VillageID, true
		case "isibo_id":
			return u.IsiboID, true
		case "house_id":
			return u.HouseID, true
		case "created_at":
			return u.CreatedAt, true
		}
		return nil, false
	}
}

func activityGetter(a models.Activity) fieldGetter {
	return func(field string) (any, bool) {
		switch field {
		case "id":
			return a.ID, true
		case "title":
			return a.Title, true
		case "description":
			return a.Description, true
		case "village_id":
			return a.VillageID, true
		case "date":
			return a.Date, true
		case "created_at":
			return a.CreatedAt, true
		}
		return nil, false
	}
}

func taskGetter(t models.Task) fieldGetter {
	return func(field string) (any, bool) {
		switch field {
		case "id":
			return t.ID, true
		case "title":
			return t.Title, true
		case "description":
			return t.Description, true
		case "activity_id":
			return t.ActivityID, true
		case "isibo_id":
			return t.IsiboID, true
		case "status":
			return string(t.Status), true
		case "estimated_cost":
			return t.EstimatedCost, true
		case "actual_cost":
			return t.ActualCost, true
		case "expected_participants":
			return t.ExpectedParticipants, true
		case "actual_participants":
			return t.ActualParticipants, true
		case "created_at":
			return t.CreatedAt, true
		case "completed_at":
			return t.CompletedAt, true
		}
		return nil, false
	}
}

func reportGetter(r models.Report) fieldGetter {
	return func(field string) (any, bool) {
		switch field {
		case "id":
			return r.ID, true
		case "activity_id":
			return r.ActivityID, true
		case "task_id":
			return r.TaskID, true
		case "isibo_id":
			return r.IsiboID, true
		case "village_id":
			return r.VillageID, true
		case "attendance":
			return r.Attendance, true
		case "comment":
			return r.Comment, true
		case "suggestions":
			return r.Suggestions, true
		case "challenges_faced":
			return r.ChallengesFaced, true
		case "has_evidence":
			return r.HasEvidence(), true
		case "estimated_cost":
			return r.EstimatedCost, true
		case "actual_cost":
			return r.ActualCost, true
		case "expected_participants":
			return r.ExpectedParticipants, true
		case "actual_participants":
			return r.ActualParticipants, true
		case "created_at":
			return r.CreatedAt, true
		}
		return nil, false
	}
}

func locationGetter(n locmodels.Node) fieldGetter {
	return func(field string) (any, bool) {
		switch field {
		case "id":
			return n.ID, true
		case "kind":
			return string(n.Kind), true
		case "name":
			return n.Name, true
		case "parent_id":
			return n.ParentID, true
		case "leader_id":
			return n.LeaderID, true
		case "created_at":
			return n.CreatedAt, true
		}
		return nil, false
	}
}

// filter collects records matching pred, most recently created first.
func filter[T any](items []T, pred scope.Predicate, getter func(T) fieldGetter) ([]T, error) {
	var out []T
	for _, item := range items {
		ok, err := matches(pred, getter(item))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// countPerDay buckets matching records by UTC calendar day of a timestamp
// field over [from, to). Records with an unset field (e.g. a nil
// completed_at) are skipped.
func countPerDay[T any](items []T, getter func(T) fieldGetter, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	matched, err := filter(items, pred, getter)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, item := range matched {
		val, ok := getter(item)(field)
		if !ok {
			return nil, errUnknownField(field)
		}
		t, ok := asTime(val)
		if !ok {
			continue
		}
		if t.Before(from) || !t.Before(to) {
			continue
		}
		counts[t.UTC().Format("2006-01-02")]++
	}
	return counts, nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// Count implements records.UserReader.
func (s *Store) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := filter(s.users, pred, userGetter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *Store) CountByRole(ctx context.Context, pred scope.Predicate) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := filter(s.users, pred, userGetter)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(matched))
	for _, u := range matched {
		counts[u.Role]++
	}
	return counts, nil
}

func (s *Store) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := filter(s.users, pred, userGetter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return truncate(matched, limit), nil
}

// Activities narrows the store to its ActivityReader face; the Count/Find
// method sets collide across record kinds, so each kind gets a view type.
func (s *Store) Activities() *ActivityView { return &ActivityView{s} }
func (s *Store) Tasks() *TaskView          { return &TaskView{s} }
func (s *Store) Reports() *ReportView      { return &ReportView{s} }
func (s *Store) Locations() *LocationView  { return &LocationView{s} }

type ActivityView struct{ s *Store }

func (v *ActivityView) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.activities, pred, activityGetter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (v *ActivityView) CountWithReports(ctx context.Context, pred scope.Predicate) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.activities, pred, activityGetter)
	if err != nil {
		return 0, err
	}
	reported := make(map[uuid.UUID]bool, len(v.s.reports))
	for _, r := range v.s.reports {
		reported[r.ActivityID] = true
	}
	count := 0
	for _, a := range matched {
		if reported[a.ID] {
			count++
		}
	}
	return count, nil
}

func (v *ActivityView) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Activity, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.activities, pred, activityGetter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return truncate(matched, limit), nil
}

func (v *ActivityView) TopVillages(ctx context.Context, pred scope.Predicate, limit int) ([]models.VillagePerformance, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.activities, pred, activityGetter)
	if err != nil {
		return nil, err
	}
	byVillage := make(map[uuid.UUID]*models.VillagePerformance)
	var order []uuid.UUID
	for _, a := range matched {
		perf, ok := byVillage[a.VillageID]
		if !ok {
			perf = &models.VillagePerformance{VillageID: a.VillageID}
			byVillage[a.VillageID] = perf
			order = append(order, a.VillageID)
		}
		perf.Activities++
		for _, t := range v.s.tasks {
			if t.ActivityID != a.ID {
				continue
			}
			perf.TotalTasks++
			if t.Status == models.TaskCompleted {
				perf.CompletedTasks++
			}
		}
	}
	out := make([]models.VillagePerformance, 0, len(order))
	for _, id := range order {
		out = append(out, *byVillage[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Activities > out[j].Activities
	})
	return truncate(out, limit), nil
}

func (v *ActivityView) CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return countPerDay(v.s.activities, activityGetter, field, pred, from, to)
}

type TaskView struct{ s *Store }

func (v *TaskView) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.tasks, pred, taskGetter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (v *TaskView) CountByStatus(ctx context.Context, pred scope.Predicate) (map[models.TaskStatus]int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.tasks, pred, taskGetter)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.TaskStatus]int, len(matched))
	for _, t := range matched {
		counts[t.Status]++
	}
	return counts, nil
}

func (v *TaskView) SumField(ctx context.Context, field string, pred scope.Predicate) (float64, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.tasks, pred, taskGetter)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range matched {
		val, ok := taskGetter(t)(field)
		if !ok {
			return 0, errUnknownField(field)
		}
		n, ok := asFloat(val)
		if !ok {
			return 0, errUnknownField(field)
		}
		sum += n
	}
	return sum, nil
}

func (v *TaskView) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Task, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.tasks, pred, taskGetter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return truncate(matched, limit), nil
}

func (v *TaskView) CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return countPerDay(v.s.tasks, taskGetter, field, pred, from, to)
}

type ReportView struct{ s *Store }

func (v *ReportView) Count(ctx context.Context, pred scope.Predicate) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.reports, pred, reportGetter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (v *ReportView) SumField(ctx context.Context, field string, pred scope.Predicate) (float64, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.reports, pred, reportGetter)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, r := range matched {
		val, ok := reportGetter(r)(field)
		if !ok {
			return 0, errUnknownField(field)
		}
		n, ok := asFloat(val)
		if !ok {
			return 0, errUnknownField(field)
		}
		sum += n
	}
	return sum, nil
}

func (v *ReportView) Find(ctx context.Context, pred scope.Predicate, limit int) ([]models.Report, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.reports, pred, reportGetter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return truncate(matched, limit), nil
}

func (v *ReportView) CountPerDay(ctx context.Context, field string, pred scope.Predicate, from, to time.Time) (map[string]int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return countPerDay(v.s.reports, reportGetter, field, pred, from, to)
}

type LocationView struct{ s *Store }

func (v *LocationView) CountByKind(ctx context.Context, kind locmodels.Kind, pred scope.Predicate, hasLeader *bool) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.locations, pred, locationGetter)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range matched {
		if kind != locmodels.KindAny && n.Kind != kind {
			continue
		}
		if hasLeader != nil && n.HasLeader() != *hasLeader {
			continue
		}
		count++
	}
	return count, nil
}

func (v *LocationView) Find(ctx context.Context, pred scope.Predicate, kinds []locmodels.Kind, limit int) ([]locmodels.Node, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	matched, err := filter(v.s.locations, pred, locationGetter)
	if err != nil {
		return nil, err
	}
	var out []locmodels.Node
	for _, n := range matched {
		if len(kinds) > 0 && !kindIn(n.Kind, kinds) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return truncate(out, limit), nil
}

func kindIn(kind locmodels.Kind, kinds []locmodels.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

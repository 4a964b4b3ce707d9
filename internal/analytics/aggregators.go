package analytics

import (
	"context"
	"fmt"
	"sort"

	"communiserver/internal/analytics/models"
	locmodels "communiserver/internal/location/models"
	recmodels "communiserver/internal/records/models"
	"communiserver/internal/scope"
)

// userDistribution counts users per role with each role's share of the
// total.
func (s *Service) userDistribution(ctx context.Context, pred scope.Predicate) (models.UserDistribution, error) {
	counts, err := s.readers.Users.CountByRole(ctx, pred)
	if err != nil {
		return models.UserDistribution{}, fmt.Errorf("count users by role: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	shares := make([]models.RoleShare, 0, len(counts))
	for role, n := range counts {
		shares = append(shares, models.RoleShare{
			Role:    role,
			Count:   n,
			Percent: percentOf(float64(n), float64(total)),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Role < shares[j].Role
	})
	return models.UserDistribution{TotalUsers: total, ByRole: shares}, nil
}

// locationCoverage reports leadership coverage at village and isibo level
// plus the cell count.
func (s *Service) locationCoverage(ctx context.Context, pred scope.Predicate) (models.LocationCoverage, error) {
	var out models.LocationCoverage
	var err error

	out.TotalCells, err = s.readers.Locations.CountByKind(ctx, locmodels.KindCell, pred, nil)
	if err != nil {
		return models.LocationCoverage{}, fmt.Errorf("count cells: %w", err)
	}
	out.Villages, err = s.levelCoverage(ctx, locmodels.KindVillage, pred)
	if err != nil {
		return models.LocationCoverage{}, err
	}
	out.Isibos, err = s.levelCoverage(ctx, locmodels.KindIsibo, pred)
	if err != nil {
		return models.LocationCoverage{}, err
	}
	return out, nil
}

func (s *Service) levelCoverage(ctx context.Context, kind locmodels.Kind, pred scope.Predicate) (models.LevelCoverage, error) {
	led := true
	withLeaders, err := s.readers.Locations.CountByKind(ctx, kind, pred, &led)
	if err != nil {
		return models.LevelCoverage{}, fmt.Errorf("count led %ss: %w", kind, err)
	}
	total, err := s.readers.Locations.CountByKind(ctx, kind, pred, nil)
	if err != nil {
		return models.LevelCoverage{}, fmt.Errorf("count %ss: %w", kind, err)
	}
	return models.LevelCoverage{
		Total:           total,
		WithLeaders:     withLeaders,
		WithoutLeaders:  total - withLeaders,
		CoveragePercent: percentOf(float64(withLeaders), float64(total)),
	}, nil
}

// activityStats covers activity volume, reporting coverage and the task
// status breakdown.
func (s *Service) activityStats(ctx context.Context, actPred, taskPred scope.Predicate) (models.ActivityStats, error) {
	var out models.ActivityStats
	var err error

	out.TotalActivities, err = s.readers.Activities.Count(ctx, actPred)
	if err != nil {
		return models.ActivityStats{}, fmt.Errorf("count activities: %w", err)
	}
	out.ReportedActivities, err = s.readers.Activities.CountWithReports(ctx, actPred)
	if err != nil {
		return models.ActivityStats{}, fmt.Errorf("count reported activities: %w", err)
	}
	out.UnreportedActivities = out.TotalActivities - out.ReportedActivities
	out.ReportingRate = percentOf(float64(out.ReportedActivities), float64(out.TotalActivities))

	byStatus, err := s.readers.Tasks.CountByStatus(ctx, taskPred)
	if err != nil {
		return models.ActivityStats{}, fmt.Errorf("count tasks by status: %w", err)
	}
	out.TasksByStatus = make(map[string]int, len(byStatus))
	for status, n := range byStatus {
		out.TasksByStatus[string(status)] = n
		out.TotalTasks += n
	}
	out.CompletedTasks = byStatus[recmodels.TaskCompleted]
	out.CompletionRate = percentOf(float64(out.CompletedTasks), float64(out.TotalTasks))
	return out, nil
}

// reportStats covers report volume, evidence coverage and attendance.
func (s *Service) reportStats(ctx context.Context, pred scope.Predicate) (models.ReportStats, error) {
	var out models.ReportStats
	var err error

	out.TotalReports, err = s.readers.Reports.Count(ctx, pred)
	if err != nil {
		return models.ReportStats{}, fmt.Errorf("count reports: %w", err)
	}
	evidenced := scope.Conjoin(pred, scope.Bool{Field: "has_evidence", Value: true})
	out.WithEvidence, err = s.readers.Reports.Count(ctx, evidenced)
	if err != nil {
		return models.ReportStats{}, fmt.Errorf("count evidenced reports: %w", err)
	}
	out.WithoutEvidence = out.TotalReports - out.WithEvidence
	out.EvidencePercent = percentOf(float64(out.WithEvidence), float64(out.TotalReports))

	attendance, err := s.readers.Reports.SumField(ctx, "attendance", pred)
	if err != nil {
		return models.ReportStats{}, fmt.Errorf("sum attendance: %w", err)
	}
	out.TotalAttendance = int(attendance)
	out.AverageAttendance = averageOf(attendance, float64(out.TotalReports))
	return out, nil
}

// financialAnalytics compares estimated against actual spend across
// in-scope reports.
func (s *Service) financialAnalytics(ctx context.Context, reportPred scope.Predicate) (models.FinancialAnalytics, error) {
	var out models.FinancialAnalytics
	var err error

	out.EstimatedCost, err = s.readers.Reports.SumField(ctx, "estimated_cost", reportPred)
	if err != nil {
		return models.FinancialAnalytics{}, fmt.Errorf("sum estimated cost: %w", err)
	}
	out.ActualCost, err = s.readers.Reports.SumField(ctx, "actual_cost", reportPred)
	if err != nil {
		return models.FinancialAnalytics{}, fmt.Errorf("sum actual cost: %w", err)
	}
	out.CostVariance = out.ActualCost - out.EstimatedCost
	out.CostVariancePercent = percentOf(out.CostVariance, out.EstimatedCost)
	out.BudgetEfficiency = budgetEfficiency(out.ActualCost, out.EstimatedCost)
	return out, nil
}

// participationAnalytics compares expected against actual participants.
func (s *Service) participationAnalytics(ctx context.Context, reportPred, actPred, taskPred scope.Predicate) (models.ParticipationAnalytics, error) {
	var out models.ParticipationAnalytics

	expected, err := s.readers.Reports.SumField(ctx, "expected_participants", reportPred)
	if err != nil {
		return models.ParticipationAnalytics{}, fmt.Errorf("sum expected participants: %w", err)
	}
	actual, err := s.readers.Reports.SumField(ctx, "actual_participants", reportPred)
	if err != nil {
		return models.ParticipationAnalytics{}, fmt.Errorf("sum actual participants: %w", err)
	}
	activities, err := s.readers.Activities.Count(ctx, actPred)
	if err != nil {
		return models.ParticipationAnalytics{}, fmt.Errorf("count activities: %w", err)
	}
	tasks, err := s.readers.Tasks.Count(ctx, taskPred)
	if err != nil {
		return models.ParticipationAnalytics{}, fmt.Errorf("count tasks: %w", err)
	}

	out.ExpectedParticipants = int(expected)
	out.ActualParticipants = int(actual)
	out.ParticipationRate = percentOf(actual, expected)
	out.AveragePerActivity = averageOf(actual, float64(activities))
	out.AveragePerTask = averageOf(actual, float64(tasks))
	return out, nil
}

// taskPerformance is the task-level completion rollup.
func (s *Service) taskPerformance(ctx context.Context, taskPred, actPred scope.Predicate) (models.TaskPerformance, error) {
	var out models.TaskPerformance

	byStatus, err := s.readers.Tasks.CountByStatus(ctx, taskPred)
	if err != nil {
		return models.TaskPerformance{}, fmt.Errorf("count tasks by status: %w", err)
	}
	for _, n := range byStatus {
		out.TotalTasks += n
	}
	out.CompletedTasks = byStatus[recmodels.TaskCompleted]
	out.CompletionRate = percentOf(float64(out.CompletedTasks), float64(out.TotalTasks))

	activities, err := s.readers.Activities.Count(ctx, actPred)
	if err != nil {
		return models.TaskPerformance{}, fmt.Errorf("count activities: %w", err)
	}
	out.AverageTasksPerActivity = averageOf(float64(out.TotalTasks), float64(activities))
	return out, nil
}

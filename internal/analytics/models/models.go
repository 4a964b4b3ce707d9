// Package models holds the metric result shapes assembled by the analytics
// service. Percentages are integers in [0,100] rounded to nearest; rates
// with a zero denominator are always 0.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Query narrows an analytics call. A zero From/To means "last 30 days
// ending at request time"; LocationID optionally pins the scope to one
// node's subtree on top of the actor's jurisdiction.
type Query struct {
	From       time.Time
	To         time.Time
	LocationID *uuid.UUID
}

// HasRange reports whether the caller supplied an explicit date range.
func (q Query) HasRange() bool {
	return !q.From.IsZero() || !q.To.IsZero()
}

// DateRange is the resolved window a metric set was computed over.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RoleShare is one role's slice of the user population.
type RoleShare struct {
	Role    string `json:"role"`
	Count   int    `json:"count"`
	Percent int    `json:"percentage"`
}

// UserDistribution breaks the in-scope user population down by role.
type UserDistribution struct {
	TotalUsers int         `json:"totalUsers"`
	ByRole     []RoleShare `json:"byRole"`
}

// LevelCoverage is leadership coverage at one hierarchy level.
type LevelCoverage struct {
	Total           int `json:"total"`
	WithLeaders     int `json:"withLeaders"`
	WithoutLeaders  int `json:"withoutLeaders"`
	CoveragePercent int `json:"coveragePercentage"`
}

// LocationCoverage reports leadership coverage for villages and isibos plus
// the total cell count in scope.
type LocationCoverage struct {
	TotalCells int           `json:"totalCells"`
	Villages   LevelCoverage `json:"villages"`
	Isibos     LevelCoverage `json:"isibos"`
}

// ActivityStats covers activity volume, reporting coverage and task status
// breakdown.
type ActivityStats struct {
	TotalActivities      int            `json:"totalActivities"`
	ReportedActivities   int            `json:"reportedActivities"`
	UnreportedActivities int            `json:"unreportedActivities"`
	ReportingRate        int            `json:"reportingRate"`
	TotalTasks           int            `json:"totalTasks"`
	TasksByStatus        map[string]int `json:"tasksByStatus"`
	CompletedTasks       int            `json:"completedTasks"`
	CompletionRate       int            `json:"completionRate"`
}

// ReportStats covers report volume, evidence coverage and attendance.
type ReportStats struct {
	TotalReports      int     `json:"totalReports"`
	WithEvidence      int     `json:"withEvidence"`
	WithoutEvidence   int     `json:"withoutEvidence"`
	EvidencePercent   int     `json:"evidencePercentage"`
	TotalAttendance   int     `json:"totalAttendance"`
	AverageAttendance float64 `json:"averageAttendance"`
}

// FinancialAnalytics compares estimated against actual cost across in-scope
// reports. Variance is signed; budget efficiency defaults to 100 when
// nothing was estimated.
type FinancialAnalytics struct {
	EstimatedCost       float64 `json:"estimatedCost"`
	ActualCost          float64 `json:"actualCost"`
	CostVariance        float64 `json:"costVariance"`
	CostVariancePercent int     `json:"costVariancePercentage"`
	BudgetEfficiency    int     `json:"budgetEfficiency"`
}

// ParticipationAnalytics compares expected against actual participants.
type ParticipationAnalytics struct {
	ExpectedParticipants int     `json:"expectedParticipants"`
	ActualParticipants   int     `json:"actualParticipants"`
	ParticipationRate    int     `json:"participationRate"`
	AveragePerActivity   float64 `json:"averagePerActivity"`
	AveragePerTask       float64 `json:"averagePerTask"`
}

// TaskPerformance is the task-level completion rollup.
type TaskPerformance struct {
	TotalTasks              int     `json:"totalTasks"`
	CompletedTasks          int     `json:"completedTasks"`
	CompletionRate          int     `json:"completionRate"`
	AverageTasksPerActivity float64 `json:"averageTasksPerActivity"`
}

// CoreMetrics is the composite the dashboard renders. All families are
// computed over the same scope and date range.
type CoreMetrics struct {
	DateRange     DateRange              `json:"dateRange"`
	Users         UserDistribution       `json:"users"`
	Locations     LocationCoverage       `json:"locations"`
	Activities    ActivityStats          `json:"activities"`
	Reports       ReportStats            `json:"reports"`
	Financial     FinancialAnalytics     `json:"financial"`
	Participation ParticipationAnalytics `json:"participation"`
	Tasks         TaskPerformance        `json:"tasks"`
	GeneratedAt   time.Time              `json:"generatedAt"`
}

// TimeSeriesPoint is one calendar day's creation and completion counts.
type TimeSeriesPoint struct {
	Date           string `json:"date"`
	Activities     int    `json:"activities"`
	Tasks          int    `json:"tasks"`
	Reports        int    `json:"reports"`
	CompletedTasks int    `json:"completedTasks"`
}

// VillagePerformance is one ranked village on the performance board.
type VillagePerformance struct {
	VillageID      uuid.UUID `json:"villageId"`
	Name           string    `json:"name"`
	Activities     int       `json:"activities"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
	CompletionRate int       `json:"completionRate"`
}

// EngagementMetrics summarizes citizen participation across the scope.
type EngagementMetrics struct {
	TotalCitizens           int                  `json:"totalCitizens"`
	AverageCitizensPerIsibo float64              `json:"averageCitizensPerIsibo"`
	TopVillages             []VillagePerformance `json:"topVillages"`
}

// DashboardSummary bundles the standalone views into one response.
type DashboardSummary struct {
	Core        CoreMetrics          `json:"coreMetrics"`
	TimeSeries  []TimeSeriesPoint    `json:"timeSeries"`
	TopVillages []VillagePerformance `json:"topVillages"`
}

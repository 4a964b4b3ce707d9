// Package analytics computes role-scoped community metrics. Every view
// resolves the actor's scope once per entity kind, fans its aggregators out
// concurrently, and fails whole: a partial dashboard is worse than no
// dashboard.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"communiserver/internal/analytics/metrics"
	"communiserver/internal/analytics/models"
	"communiserver/internal/location"
	locmodels "communiserver/internal/location/models"
	"communiserver/internal/records"
	"communiserver/internal/scope"
	dErrors "communiserver/pkg/domain-errors"
	"communiserver/pkg/requestcontext"
)

const defaultWindowDays = 30

// Readers bundles the read-only stores the aggregators consume.
type Readers struct {
	Users      records.UserReader
	Activities records.ActivityReader
	Tasks      records.TaskReader
	Reports    records.ReportReader
	Locations  records.LocationReader
}

// Service is the analytics orchestrator.
type Service struct {
	scopes  *scope.Resolver
	graph   *location.Graph
	readers Readers
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the analytics service.
func NewService(scopes *scope.Resolver, graph *location.Graph, readers Readers, opts ...Option) *Service {
	s := &Service{
		scopes:  scopes,
		graph:   graph,
		readers: readers,
		logger:  slog.Default(),
		tracer:  otel.Tracer("communiserver/analytics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// window resolves the effective date range: the caller's explicit bounds, or
// the last 30 days ending at request time. to must stay after from.
func window(ctx context.Context, q models.Query) (models.DateRange, error) {
	to := q.To
	if to.IsZero() {
		to = requestcontext.Now(ctx)
	}
	from := q.From
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultWindowDays)
	}
	if !to.After(from) {
		return models.DateRange{}, dErrors.New(dErrors.CodeInvalidInput, "endDate must be after startDate")
	}
	return models.DateRange{From: from, To: to}, nil
}

// scopesFor resolves one predicate per entity kind, conjoined with the
// optional location filter.
func (s *Service) scopesFor(ctx context.Context, actor scope.ActorContext, q models.Query, kinds ...scope.EntityKind) (map[scope.EntityKind]scope.Predicate, error) {
	preds, err := s.scopes.ResolveAll(ctx, actor, kinds...)
	if err != nil {
		return nil, err
	}
	if q.LocationID == nil {
		return preds, nil
	}
	for _, kind := range kinds {
		loc, err := s.scopes.ResolveLocation(ctx, *q.LocationID, kind)
		if err != nil {
			return nil, err
		}
		preds[kind] = scope.Conjoin(preds[kind], loc)
	}
	return preds, nil
}

// CoreMetrics computes all seven metric families over the actor's scope.
func (s *Service) CoreMetrics(ctx context.Context, q models.Query, actor scope.ActorContext) (models.CoreMetrics, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.Record("core_metrics", start, err) }()

	ctx, span := s.tracer.Start(ctx, "analytics.CoreMetrics")
	defer span.End()

	var out models.CoreMetrics
	out.DateRange, err = window(ctx, q)
	if err != nil {
		return models.CoreMetrics{}, err
	}

	preds, perr := s.scopesFor(ctx, actor, q,
		scope.KindUser, scope.KindLocation, scope.KindActivity, scope.KindTask, scope.KindReport)
	if perr != nil {
		err = perr
		return models.CoreMetrics{}, err
	}

	userPred := preds[scope.KindUser]
	locPred := preds[scope.KindLocation]
	actPred := rangedPred(preds[scope.KindActivity], "date", out.DateRange)
	taskPred := rangedPred(preds[scope.KindTask], "created_at", out.DateRange)
	reportPred := rangedPred(preds[scope.KindReport], "created_at", out.DateRange)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Users, err = s.userDistribution(gctx, userPred)
		return err
	})
	g.Go(func() error {
		var err error
		out.Locations, err = s.locationCoverage(gctx, locPred)
		return err
	})
	g.Go(func() error {
		var err error
		out.Activities, err = s.activityStats(gctx, actPred, taskPred)
		return err
	})
	g.Go(func() error {
		var err error
		out.Reports, err = s.reportStats(gctx, reportPred)
		return err
	})
	g.Go(func() error {
		var err error
		out.Financial, err = s.financialAnalytics(gctx, reportPred)
		return err
	})
	g.Go(func() error {
		var err error
		out.Participation, err = s.participationAnalytics(gctx, reportPred, actPred, taskPred)
		return err
	})
	g.Go(func() error {
		var err error
		out.Tasks, err = s.taskPerformance(gctx, taskPred, actPred)
		return err
	})
	if err = g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "core metrics fan-out failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.CoreMetrics{}, err
	}

	out.GeneratedAt = requestcontext.Now(ctx)
	return out, nil
}

// TimeSeries produces one data point per calendar day in [from, to).
func (s *Service) TimeSeries(ctx context.Context, q models.Query, actor scope.ActorContext) ([]models.TimeSeriesPoint, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.Record("time_series", start, err) }()

	ctx, span := s.tracer.Start(ctx, "analytics.TimeSeries")
	defer span.End()

	var rng models.DateRange
	rng, err = window(ctx, q)
	if err != nil {
		return nil, err
	}

	preds, perr := s.scopesFor(ctx, actor, q, scope.KindActivity, scope.KindTask, scope.KindReport)
	if perr != nil {
		err = perr
		return nil, err
	}

	var activities, tasks, reports, completed map[string]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activities, err = s.readers.Activities.CountPerDay(gctx, "created_at", preds[scope.KindActivity], rng.From, rng.To)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = s.readers.Tasks.CountPerDay(gctx, "created_at", preds[scope.KindTask], rng.From, rng.To)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = s.readers.Reports.CountPerDay(gctx, "created_at", preds[scope.KindReport], rng.From, rng.To)
		return err
	})
	g.Go(func() error {
		pred := scope.Conjoin(preds[scope.KindTask], scope.Equals{Field: "status", Value: "completed"})
		var err error
		completed, err = s.readers.Tasks.CountPerDay(gctx, "completed_at", pred, rng.From, rng.To)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	days := daysBetween(rng.From, rng.To)
	points := make([]models.TimeSeriesPoint, 0, days)
	for i := 0; i < days; i++ {
		day := rng.From.UTC().AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, models.TimeSeriesPoint{
			Date:           day,
			Activities:     activities[day],
			Tasks:          tasks[day],
			Reports:        reports[day],
			CompletedTasks: completed[day],
		})
	}
	return points, nil
}

// LocationPerformance ranks the top villages by activity volume in range.
func (s *Service) LocationPerformance(ctx context.Context, q models.Query, actor scope.ActorContext) ([]models.VillagePerformance, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.Record("location_performance", start, err) }()

	ctx, span := s.tracer.Start(ctx, "analytics.LocationPerformance")
	defer span.End()

	var out []models.VillagePerformance
	out, err = s.topVillages(ctx, q, actor)
	return out, err
}

// EngagementMetrics summarizes citizen participation across the scope.
func (s *Service) EngagementMetrics(ctx context.Context, q models.Query, actor scope.ActorContext) (models.EngagementMetrics, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.Record("engagement_metrics", start, err) }()

	ctx, span := s.tracer.Start(ctx, "analytics.EngagementMetrics")
	defer span.End()

	preds, perr := s.scopesFor(ctx, actor, q, scope.KindUser, scope.KindLocation)
	if perr != nil {
		err = perr
		return models.EngagementMetrics{}, err
	}

	var out models.EngagementMetrics
	var isibos int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pred := scope.Conjoin(preds[scope.KindUser], scope.Equals{Field: "role", Value: string(scope.RoleCitizen)})
		var err error
		out.TotalCitizens, err = s.readers.Users.Count(gctx, pred)
		return err
	})
	g.Go(func() error {
		var err error
		isibos, err = s.readers.Locations.CountByKind(gctx, locmodels.KindIsibo, preds[scope.KindLocation], nil)
		return err
	})
	g.Go(func() error {
		var err error
		out.TopVillages, err = s.topVillages(gctx, q, actor)
		return err
	})
	if err = g.Wait(); err != nil {
		return models.EngagementMetrics{}, err
	}

	out.AverageCitizensPerIsibo = averageOf(float64(out.TotalCitizens), float64(isibos))
	return out, nil
}

// DashboardSummary gathers core metrics, the daily series and the village
// ranking concurrently.
func (s *Service) DashboardSummary(ctx context.Context, q models.Query, actor scope.ActorContext) (models.DashboardSummary, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.Record("dashboard", start, err) }()

	ctx, span := s.tracer.Start(ctx, "analytics.DashboardSummary")
	defer span.End()

	var out models.DashboardSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Core, err = s.CoreMetrics(gctx, q, actor)
		return err
	})
	g.Go(func() error {
		var err error
		out.TimeSeries, err = s.TimeSeries(gctx, q, actor)
		return err
	})
	g.Go(func() error {
		var err error
		out.TopVillages, err = s.topVillages(gctx, q, actor)
		return err
	})
	if err = g.Wait(); err != nil {
		return models.DashboardSummary{}, err
	}
	return out, nil
}

func (s *Service) topVillages(ctx context.Context, q models.Query, actor scope.ActorContext) ([]models.VillagePerformance, error) {
	rng, err := window(ctx, q)
	if err != nil {
		return nil, err
	}
	preds, err := s.scopesFor(ctx, actor, q, scope.KindActivity)
	if err != nil {
		return nil, err
	}
	pred := rangedPred(preds[scope.KindActivity], "date", rng)

	ranked, err := s.readers.Activities.TopVillages(ctx, pred, topVillageLimit)
	if err != nil {
		return nil, fmt.Errorf("rank villages: %w", err)
	}

	out := make([]models.VillagePerformance, 0, len(ranked))
	for _, v := range ranked {
		perf := models.VillagePerformance{
			VillageID:      v.VillageID,
			Activities:     v.Activities,
			TotalTasks:     v.TotalTasks,
			CompletedTasks: v.CompletedTasks,
			CompletionRate: percentOf(float64(v.CompletedTasks), float64(v.TotalTasks)),
		}
		node, err := s.graph.Node(ctx, v.VillageID)
		if err != nil {
			s.logger.WarnContext(ctx, "village name lookup failed",
				"village_id", v.VillageID,
				"error", err,
			)
		} else {
			perf.Name = node.Name
		}
		out = append(out, perf)
	}
	return out, nil
}

const topVillageLimit = 10

// rangedPred conjoins a scope predicate with the date window on the given
// timestamp field.
func rangedPred(pred scope.Predicate, field string, rng models.DateRange) scope.Predicate {
	return scope.Conjoin(pred, scope.TimeRange{Field: field, From: &rng.From, To: &rng.To})
}

// daysBetween is ceil((to-from) / 24h).
func daysBetween(from, to time.Time) int {
	d := to.Sub(from)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

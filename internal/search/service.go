// Package search federates relevance-ranked search across the community
// record kinds. Adapters fetch and score per kind concurrently; the
// orchestrator ranks globally and paginates over the merged sequence.
package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"communiserver/internal/location"
	locmodels "communiserver/internal/location/models"
	"communiserver/internal/records"
	"communiserver/internal/scope"
	"communiserver/internal/search/metrics"
	"communiserver/internal/search/models"
	dErrors "communiserver/pkg/domain-errors"
	"communiserver/pkg/requestcontext"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Service is the search orchestrator.
type Service struct {
	scopes    *scope.Resolver
	graph     *location.Graph
	adapters  map[scope.EntityKind]Adapter
	locations records.LocationReader
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the search service over the given adapters.
func NewService(scopes *scope.Resolver, graph *location.Graph, locations records.LocationReader, adapters []Adapter, opts ...Option) *Service {
	byKind := make(map[scope.EntityKind]Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}
	s := &Service{
		scopes:    scopes,
		graph:     graph,
		adapters:  byKind,
		locations: locations,
		logger:    slog.Default(),
		tracer:    otel.Tracer("communiserver/search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Global runs the federated search: one adapter per requested kind, merged
// into a single relevance-ranked, paginated, kind-grouped page.
func (s *Service) Global(ctx context.Context, req models.Request, actor scope.ActorContext) (models.ResultPage, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.Record("global", start, err) }()

	ctx, span := s.tracer.Start(ctx, "search.Global")
	defer span.End()

	if err = validatePage(req.Page, req.Size); err != nil {
		return models.ResultPage{}, err
	}
	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = scope.AllEntityKinds
	}
	for _, kind := range kinds {
		if _, ok := s.adapters[kind]; !ok {
			err = dErrors.Newf(dErrors.CodeInvalidInput, "unknown entity kind %q", kind)
			return models.ResultPage{}, err
		}
	}

	preds, perr := s.scopes.ResolveAll(ctx, actor, kinds...)
	if perr != nil {
		err = perr
		return models.ResultPage{}, err
	}

	// Fan out one adapter per kind; buckets keep the requested kind order
	// so equal scores rank deterministically after the merge.
	buckets := make([][]models.Candidate, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		adapter := s.adapters[kind]
		pred := preds[kind]
		g.Go(func() error {
			found, err := adapter.Search(gctx, req.Query, req.Filters, pred)
			if err != nil {
				return err
			}
			buckets[i] = found
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "search fan-out failed",
			"error", err,
			"query", req.Query,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.ResultPage{}, err
	}

	var all []models.Candidate
	for _, bucket := range buckets {
		all = append(all, bucket...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	total := len(all)
	page := paginate(all, req.Page, req.Size)

	grouped := make(map[scope.EntityKind][]models.Candidate, len(kinds))
	for _, kind := range kinds {
		grouped[kind] = []models.Candidate{}
	}
	for _, c := range page {
		grouped[c.Kind] = append(grouped[c.Kind], c)
	}

	return models.ResultPage{
		Results: grouped,
		Meta:    buildMeta(total, len(page), req.Page, req.Size, kinds, start),
	}, nil
}

// Locations is the standalone location search surface: a flat ranked page
// over location nodes, optionally narrowed by type.
func (s *Service) Locations(ctx context.Context, req models.LocationRequest, actor scope.ActorContext) (models.LocationPage, error) {
	start := time.Now()
	var err error
	defer func() { s.metrics.Record("locations", start, err) }()

	ctx, span := s.tracer.Start(ctx, "search.Locations")
	defer span.End()

	if err = validatePage(req.Page, req.Size); err != nil {
		return models.LocationPage{}, err
	}
	kinds := make([]locmodels.Kind, 0, len(req.Kinds))
	for _, raw := range req.Kinds {
		kind, kerr := locmodels.ParseKind(raw)
		if kerr != nil {
			err = kerr
			return models.LocationPage{}, err
		}
		kinds = append(kinds, kind)
	}

	pred, perr := s.scopes.Resolve(ctx, actor, scope.KindLocation)
	if perr != nil {
		err = perr
		return models.LocationPage{}, err
	}

	found, serr := searchLocations(ctx, s.locations, s.graph, req.Query, kinds, pred, 0)
	if serr != nil {
		err = serr
		return models.LocationPage{}, err
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})

	total := len(found)
	page := paginate(found, req.Page, req.Size)

	return models.LocationPage{
		Results: page,
		Meta:    buildMeta(total, len(page), req.Page, req.Size, []scope.EntityKind{scope.KindLocation}, start),
	}, nil
}

func validatePage(page, size int) error {
	if page < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "page must be at least 1")
	}
	if size < 1 || size > maxPageSize {
		return dErrors.Newf(dErrors.CodeInvalidInput, "size must be between 1 and %d", maxPageSize)
	}
	return nil
}

// paginate slices [(page-1)*size : +size] out of the ranked sequence.
func paginate(all []models.Candidate, page, size int) []models.Candidate {
	offset := (page - 1) * size
	if offset >= len(all) {
		return nil
	}
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func buildMeta(total, items, page, size int, kinds []scope.EntityKind, start time.Time) models.Meta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + size - 1) / size
	}
	return models.Meta{
		Total:      total,
		ItemCount:  items,
		TotalPages: totalPages,
		Page:       page,
		ElapsedMs:  time.Since(start).Milliseconds(),
		Kinds:      kinds,
	}
}

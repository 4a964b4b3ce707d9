package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"communiserver/internal/analytics/models"
	"communiserver/internal/scope"
	dErrors "communiserver/pkg/domain-errors"
	audit "communiserver/pkg/platform/audit"
	"communiserver/pkg/platform/httputil"
	"communiserver/pkg/requestcontext"
)

// Service defines the analytics operations the handler exposes.
type Service interface {
	CoreMetrics(ctx context.Context, q models.Query, actor scope.ActorContext) (models.CoreMetrics, error)
	TimeSeries(ctx context.Context, q models.Query, actor scope.ActorContext) ([]models.TimeSeriesPoint, error)
	LocationPerformance(ctx context.Context, q models.Query, actor scope.ActorContext) ([]models.VillagePerformance, error)
	EngagementMetrics(ctx context.Context, q models.Query, actor scope.ActorContext) (models.EngagementMetrics, error)
	DashboardSummary(ctx context.Context, q models.Query, actor scope.ActorContext) (models.DashboardSummary, error)
}

// Auditor records access events. May be nil.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler wires analytics endpoints to the analytics service.
type Handler struct {
	service Service
	logger  *slog.Logger
	auditor Auditor
}

// New constructs an analytics handler with its dependencies.
func New(service Service, logger *slog.Logger, auditor Auditor) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		auditor: auditor,
	}
}

// Register mounts analytics endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/analytics/core-metrics", h.view("core-metrics", func(ctx context.Context, q models.Query, actor scope.ActorContext) (any, error) {
		return h.service.CoreMetrics(ctx, q, actor)
	}))
	r.Get("/analytics/time-series", h.view("time-series", func(ctx context.Context, q models.Query, actor scope.ActorContext) (any, error) {
		points, err := h.service.TimeSeries(ctx, q, actor)
		if err != nil {
			return nil, err
		}
		return timeSeriesResponse{Data: points}, nil
	}))
	r.Get("/analytics/location-performance", h.view("location-performance", func(ctx context.Context, q models.Query, actor scope.ActorContext) (any, error) {
		villages, err := h.service.LocationPerformance(ctx, q, actor)
		if err != nil {
			return nil, err
		}
		return locationPerformanceResponse{Villages: villages}, nil
	}))
	r.Get("/analytics/engagement-metrics", h.view("engagement-metrics", func(ctx context.Context, q models.Query, actor scope.ActorContext) (any, error) {
		return h.service.EngagementMetrics(ctx, q, actor)
	}))
	r.Get("/analytics/dashboard", h.view("dashboard", func(ctx context.Context, q models.Query, actor scope.ActorContext) (any, error) {
		return h.service.DashboardSummary(ctx, q, actor)
	}))
}

type viewFunc func(ctx context.Context, q models.Query, actor scope.ActorContext) (any, error)

// view wraps one analytics endpoint: actor check, query parsing, the
// service call, logging and the audit record.
func (h *Handler) view(name string, fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)
		start := time.Now()

		actor, ok := scope.Actor(ctx)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		if actor.Role != scope.RoleAdmin && !actor.Role.HasJurisdiction() {
			h.logger.WarnContext(ctx, "analytics access denied",
				"request_id", requestID,
				"user_id", actor.UserID,
				"role", actor.Role,
				"view", name,
			)
			h.emit(ctx, actor, audit.EventScopeDenied, name, "denied", start)
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role has no analytics access"))
			return
		}

		q, err := parseQuery(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		result, err := fn(ctx, q, actor)
		if err != nil {
			h.logger.ErrorContext(ctx, "analytics view failed",
				"request_id", requestID,
				"user_id", actor.UserID,
				"view", name,
				"error", err,
			)
			if dErrors.HasCode(err, dErrors.CodeForbidden) {
				h.emit(ctx, actor, audit.EventScopeDenied, name, "denied", start)
			} else {
				h.emit(ctx, actor, audit.EventAnalyticsViewed, name, "error", start)
			}
			httputil.WriteError(w, err)
			return
		}

		h.logger.InfoContext(ctx, "analytics view served",
			"request_id", requestID,
			"user_id", actor.UserID,
			"view", name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		h.emit(ctx, actor, audit.EventAnalyticsViewed, name, "ok", start)

		httputil.WriteJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) emit(ctx context.Context, actor scope.ActorContext, action audit.AuditEvent, detail, outcome string, start time.Time) {
	if h.auditor == nil {
		return
	}
	err := h.auditor.Emit(ctx, audit.Event{
		ActorID:   actor.UserID,
		Role:      string(actor.Role),
		Action:    string(action),
		Surface:   "analytics",
		Detail:    detail,
		Outcome:   outcome,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		ElapsedMs: time.Since(start).Milliseconds(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "audit emit failed", "error", err)
	}
}

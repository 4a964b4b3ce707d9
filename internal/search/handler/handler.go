package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"communiserver/internal/scope"
	"communiserver/internal/search/models"
	dErrors "communiserver/pkg/domain-errors"
	audit "communiserver/pkg/platform/audit"
	"communiserver/pkg/platform/httputil"
	"communiserver/pkg/requestcontext"
)

// Service defines the search operations the handler exposes.
type Service interface {
	Global(ctx context.Context, req models.Request, actor scope.ActorContext) (models.ResultPage, error)
	Locations(ctx context.Context, req models.LocationRequest, actor scope.ActorContext) (models.LocationPage, error)
}

// Auditor records access events. May be nil.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler wires search endpoints to the search service.
type Handler struct {
	service Service
	logger  *slog.Logger
	auditor Auditor
}

// New constructs a search handler with its dependencies.
func New(service Service, logger *slog.Logger, auditor Auditor) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		auditor: auditor,
	}
}

// Register mounts search endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/search/global", h.HandleGlobal)
	r.Get("/locations/search", h.HandleLocations)
}

// HandleGlobal handles GET /search/global requests.
func (h *Handler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor, ok := scope.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, err := parseGlobalRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.Global(ctx, req, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "global search failed",
			"request_id", requestID,
			"user_id", actor.UserID,
			"query", req.Query,
			"error", err,
		)
		h.emit(ctx, actor, req.Query, outcomeFor(err), start)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "global search served",
		"request_id", requestID,
		"user_id", actor.UserID,
		"query", req.Query,
		"total", page.Meta.Total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	h.emit(ctx, actor, req.Query, "ok", start)

	httputil.WriteJSON(w, http.StatusOK, page)
}

// HandleLocations handles GET /locations/search requests.
func (h *Handler) HandleLocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor, ok := scope.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, err := parseLocationRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.Locations(ctx, req, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "location search failed",
			"request_id", requestID,
			"user_id", actor.UserID,
			"query", req.Query,
			"error", err,
		)
		h.emit(ctx, actor, req.Query, outcomeFor(err), start)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "location search served",
		"request_id", requestID,
		"user_id", actor.UserID,
		"query", req.Query,
		"total", page.Meta.Total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	h.emit(ctx, actor, req.Query, "ok", start)

	httputil.WriteJSON(w, http.StatusOK, page)
}

func outcomeFor(err error) string {
	if dErrors.HasCode(err, dErrors.CodeForbidden) {
		return "denied"
	}
	return "error"
}

func (h *Handler) emit(ctx context.Context, actor scope.ActorContext, query, outcome string, start time.Time) {
	if h.auditor == nil {
		return
	}
	action := audit.EventSearchPerformed
	if outcome == "denied" {
		action = audit.EventScopeDenied
	}
	err := h.auditor.Emit(ctx, audit.Event{
		ActorID:   actor.UserID,
		Role:      string(actor.Role),
		Action:    string(action),
		Surface:   "search",
		Detail:    query,
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

package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"communiserver/internal/analytics/models"
	dErrors "communiserver/pkg/domain-errors"
	"communiserver/pkg/requestcontext"
)

// timeRanges maps the shorthand window names to their span.
var timeRanges = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// parseQuery reads the shared analytics query parameters. An explicit
// startDate/endDate pair wins over timeRange; both absent means the service
// default window.
func parseQuery(r *http.Request) (models.Query, error) {
	var q models.Query
	params := r.URL.Query()

	if raw := params.Get("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeInvalidInput, "startDate must be an RFC 3339 date")
		}
		q.From = t
	}
	if raw := params.Get("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeInvalidInput, "endDate must be an RFC 3339 date")
		}
		q.To = t
	}

	if raw := params.Get("timeRange"); raw != "" && !q.HasRange() {
		span, ok := timeRanges[raw]
		if !ok {
			return q, dErrors.Newf(dErrors.CodeInvalidInput, "unknown timeRange %q", raw)
		}
		q.To = requestcontext.Now(r.Context())
		q.From = q.To.Add(-span)
	}

	if raw := params.Get("locationId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeInvalidInput, "locationId must be a UUID")
		}
		q.LocationID = &id
	}
	return q, nil
}

// parseDate accepts a bare date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

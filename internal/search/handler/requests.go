package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"communiserver/internal/scope"
	"communiserver/internal/search/models"
	dErrors "communiserver/pkg/domain-errors"
	pkgstrings "communiserver/pkg/platform/strings"
)

const defaultPageSize = 10

// parseGlobalRequest reads the global search parameters. Unknown values are
// rejected here when they cannot even be parsed; semantic validation (kind
// names, page bounds) belongs to the service.
func parseGlobalRequest(r *http.Request) (models.Request, error) {
	params := r.URL.Query()

	req := models.Request{
		Query: strings.TrimSpace(params.Get("q")),
	}

	kinds, err := parseEntities(params)
	if err != nil {
		return req, err
	}
	req.Kinds = kinds

	req.Page, req.Size, err = parsePagination(params)
	if err != nil {
		return req, err
	}

	req.Filters, err = parseFilters(params)
	return req, err
}

// parseLocationRequest reads the location search parameters.
func parseLocationRequest(r *http.Request) (models.LocationRequest, error) {
	params := r.URL.Query()

	req := models.LocationRequest{
		Query: strings.TrimSpace(params.Get("q")),
		Kinds: pkgstrings.DedupeAndTrimLower(csvValues(params, "types", "type")),
	}

	var err error
	req.Page, req.Size, err = parsePagination(params)
	return req, err
}

// parseEntities reads the requested entity kinds from `entities` (CSV or
// repeated). Absent or "all" means every kind.
func parseEntities(params url.Values) ([]scope.EntityKind, error) {
	raw := pkgstrings.DedupeAndTrimLower(csvValues(params, "entities", "entities[]"))
	var kinds []scope.EntityKind
	for _, v := range raw {
		if v == "all" {
			return nil, nil
		}
		kind, ok := scope.ParseEntityKind(v)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown entity kind %q", v)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func parsePagination(params url.Values) (page, size int, err error) {
	page, size = 1, defaultPageSize
	if raw := params.Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, dErrors.New(dErrors.CodeInvalidInput, "page must be an integer")
		}
	}
	if raw := params.Get("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, dErrors.New(dErrors.CodeInvalidInput, "size must be an integer")
		}
	}
	return page, size, nil
}

func parseFilters(params url.Values) (models.Filters, error) {
	var f models.Filters
	var err error

	if f.DateFrom, err = timeParam(params, "dateFrom"); err != nil {
		return f, err
	}
	if f.DateTo, err = timeParam(params, "dateTo"); err != nil {
		return f, err
	}
	if f.CreatedFrom, err = timeParam(params, "createdFrom"); err != nil {
		return f, err
	}
	if f.CreatedTo, err = timeParam(params, "createdTo"); err != nil {
		return f, err
	}

	if f.ActivityIDs, err = uuidParam(params, "activityId"); err != nil {
		return f, err
	}
	if f.VillageIDs, err = uuidParam(params, "villageId"); err != nil {
		return f, err
	}
	if f.IsiboIDs, err = uuidParam(params, "isiboId"); err != nil {
		return f, err
	}

	if f.CostMin, err = floatParam(params, "costMin"); err != nil {
		return f, err
	}
	if f.CostMax, err = floatParam(params, "costMax"); err != nil {
		return f, err
	}
	if f.ParticipantsMin, err = floatParam(params, "participantsMin"); err != nil {
		return f, err
	}
	if f.ParticipantsMax, err = floatParam(params, "participantsMax"); err != nil {
		return f, err
	}

	if raw := params.Get("hasEvidence"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, dErrors.New(dErrors.CodeInvalidInput, "hasEvidence must be a boolean")
		}
		f.HasEvidence = &v
	}
	return f, nil
}

// csvValues collects repeated and comma-separated values under any of the
// given keys.
func csvValues(params url.Values, keys ...string) []string {
	var out []string
	for _, key := range keys {
		for _, raw := range params[key] {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

func timeParam(params url.Values, key string) (*time.Time, error) {
	raw := params.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be an RFC 3339 date", key)
		}
	}
	return &t, nil
}

func uuidParam(params url.Values, key string) ([]uuid.UUID, error) {
	raw := csvValues(params, key, key+"s")
	var out []uuid.UUID
	for _, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a UUID", key)
		}
		out = append(out, id)
	}
	return out, nil
}

func floatParam(params url.Values, key string) (*float64, error) {
	raw := params.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a number", key)
	}
	return &v, nil
}

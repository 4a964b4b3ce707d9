package handler

import "communiserver/internal/analytics/models"

// timeSeriesResponse wraps the point list so the payload stays an object.
type timeSeriesResponse struct {
	Data []models.TimeSeriesPoint `json:"data"`
}

// locationPerformanceResponse wraps the ranked village list.
type locationPerformanceResponse struct {
	Villages []models.VillagePerformance `json:"villages"`
}

package dto

import (
	"time"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// DashboardStatsResponse holds the counters shown above the shipment table.
type DashboardStatsResponse struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InTransit  int64 `json:"in_transit"`
	Delivered  int64 `json:"delivered"`
	Exceptions int64 `json:"exceptions"`
}

// DailyVolumePoint is the number of shipments created on one UTC day.
type DailyVolumePoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// StatusSlice is one segment of the status distribution.
type StatusSlice struct {
	Status models.ShipmentStatus `json:"status"`
	Count  int64                 `json:"count"`
}

// DestinationPoint is one entry of the top destination ranking.
type DestinationPoint struct {
	Destination string `json:"destination"`
	Count       int64  `json:"count"`
}

// AnalyticsResponse aggregates the analytics page.
type AnalyticsResponse struct {
	Scope              string             `json:"scope"`
	AdminID            *uint              `json:"admin_id,omitempty"`
	DailyVolume        []DailyVolumePoint `json:"daily_volume"`
	StatusDistribution []StatusSlice      `json:"status_distribution"`
	TopDestinations    []DestinationPoint `json:"top_destinations"`
	GeneratedAt        time.Time          `json:"generated_at"`
	CacheHit           bool               `json:"cache_hit"`
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

const (
	analyticsWindowDays     = 30
	analyticsTopDestination = 5
	unknownDestination      = "Unknown"
)

// AnalyticsService aggregates shipment figures for the dashboard and analytics pages.
type AnalyticsService interface {
	Dashboard(ctx context.Context, actor policy.Actor, viewAs *uint) (dto.DashboardStatsResponse, error)
	Analytics(ctx context.Context, actor policy.Actor, viewAs *uint) (dto.AnalyticsResponse, error)
}

// AnalyticsConfig controls analytics caching.
type AnalyticsConfig struct {
	CacheTTL    time.Duration
	CachePrefix string
}

type analyticsService struct {
	repo   repository.AnalyticsRepository
	cache  *redis.Client
	cfg    AnalyticsConfig
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewAnalyticsService constructs the analytics service. cache may be nil.
func NewAnalyticsService(repo repository.AnalyticsRepository, cache *redis.Client, cfg AnalyticsConfig, logger zerolog.Logger) AnalyticsService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &analyticsService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With().Str("component", "analytics_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/atlas-logistics-api/internal/service/analytics"),
		now:    time.Now,
	}
}

func (s *analyticsService) Dashboard(ctx context.Context, actor policy.Actor, viewAs *uint) (dto.DashboardStatsResponse, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	counts, err := s.repo.CountByStatus(ctx, policy.Scope(actor, viewAs))
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	var stats dto.DashboardStatsResponse
	for _, row := range counts {
		stats.Total += row.Total
		switch {
		case row.Status == models.ShipmentStatusPending:
			stats.Pending += row.Total
		case row.Status == models.ShipmentStatusInTransit:
			stats.InTransit += row.Total
		case row.Status == models.ShipmentStatusDelivered:
			stats.Delivered += row.Total
		case row.Status.IsException():
			stats.Exceptions += row.Total
		}
	}

	return stats, nil
}

func (s *analyticsService) Analytics(ctx context.Context, actor policy.Actor, viewAs *uint) (dto.AnalyticsResponse, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return dto.AnalyticsResponse{}, err
	}

	scope := policy.Scope(actor, viewAs)
	cacheKey := s.cacheKey(scope)

	ctx, span := s.tracer.Start(ctx, "analytics.aggregate")
	span.SetAttributes(attribute.String("analytics.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.AnalyticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(analyticsWindowDays - 1))

	created, err := s.repo.CreatedSince(ctx, scope, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "created_since_failed")
		return dto.AnalyticsResponse{}, err
	}

	counts, err := s.repo.CountByStatus(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_by_status_failed")
		return dto.AnalyticsResponse{}, err
	}

	destinations, err := s.repo.TopDestinations(ctx, scope, analyticsTopDestination)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "top_destinations_failed")
		return dto.AnalyticsResponse{}, err
	}

	response := dto.AnalyticsResponse{
		Scope:              scopeLabel(scope),
		AdminID:            scope,
		DailyVolume:        dailyVolume(created, since, analyticsWindowDays),
		StatusDistribution: statusDistribution(counts),
		TopDestinations:    topDestinations(destinations),
		GeneratedAt:        now,
	}
	span.SetAttributes(attribute.Int("analytics.window_shipments", len(created)))

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

func (s *analyticsService) cacheKey(scope *uint) string {
	prefix := strings.TrimSpace(s.cfg.CachePrefix)
	if prefix == "" {
		prefix = "atlas"
	}
	return fmt.Sprintf("%s:analytics:%s", prefix, scopeLabel(scope))
}

func scopeLabel(scope *uint) string {
	if scope == nil {
		return "all"
	}
	return fmt.Sprintf("admin-%d", *scope)
}

// dailyVolume buckets creation times into consecutive UTC days starting at since.
func dailyVolume(created []time.Time, since time.Time, days int) []dto.DailyVolumePoint {
	buckets := make(map[string]int64, days)
	for _, at := range created {
		buckets[at.UTC().Format("2006-01-02")]++
	}

	points := make([]dto.DailyVolumePoint, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, dto.DailyVolumePoint{Date: day, Count: buckets[day]})
	}
	return points
}

func statusDistribution(counts []repository.StatusCount) []dto.StatusSlice {
	totals := make(map[models.ShipmentStatus]int64, len(counts))
	for _, row := range counts {
		totals[row.Status] += row.Total
	}

	slices := make([]dto.StatusSlice, 0, len(models.ShipmentStatuses))
	for _, status := range models.ShipmentStatuses {
		slices = append(slices, dto.StatusSlice{Status: status, Count: totals[status]})
	}
	return slices
}

func topDestinations(rows []repository.DestinationCount) []dto.DestinationPoint {
	points := make([]dto.DestinationPoint, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Destination)
		if name == "" {
			name = unknownDestination
		}
		points = append(points, dto.DestinationPoint{Destination: name, Count: row.Total})
	}
	return points
}

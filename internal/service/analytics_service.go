package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type analyticsRepository interface {
	EntityCounts(ctx context.Context) (*dto.AnalyticsOverview, error)
	BatchSlotCounts(ctx context.Context) ([]dto.BatchSlotCount, error)
	StaffUtilization(ctx context.Context) ([]dto.StaffUtilization, error)
	ListActiveBatchIDs(ctx context.Context) ([]string, error)
}

type analyticsConflictDetector interface {
	Detect(ctx context.Context, batchID string) ([]models.Conflict, error)
}

type analyticsAuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// AnalyticsService assembles the admin dashboard payload: entity counts,
// recent activity, and a fresh conflict sweep over active batches. The
// payload is cached briefly since the sweep is quadratic per batch.
type AnalyticsService struct {
	repo     analyticsRepository
	detector analyticsConflictDetector
	audits   analyticsAuditReader
	cache    viewCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAnalyticsService wires analytics dependencies. The cache is optional.
func NewAnalyticsService(
	repo analyticsRepository,
	detector analyticsConflictDetector,
	audits analyticsAuditReader,
	cache viewCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &AnalyticsService{
		repo:     repo,
		detector: detector,
		audits:   audits,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

const analyticsCacheKey = "analytics:dashboard"

// Dashboard returns the aggregated admin analytics payload.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*dto.AnalyticsResponse, error) {
	if s.cache != nil {
		var cached dto.AnalyticsResponse
		if err := s.cache.Get(ctx, analyticsCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("analytics cache read failed", zap.Error(err))
		}
	}

	overview, err := s.repo.EntityCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entity counts")
	}

	batchSlots, err := s.repo.BatchSlotCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch slot counts")
	}

	utilization, err := s.repo.StaffUtilization(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff utilization")
	}

	batchIDs, err := s.repo.ListActiveBatchIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active batches")
	}

	stats := dto.ConflictStats{ConflictTypes: make(map[string]int)}
	for _, batchID := range batchIDs {
		conflicts, err := s.detector.Detect(ctx, batchID)
		if err != nil {
			s.logger.Warn("conflict sweep failed for batch", zap.String("batch_id", batchID), zap.Error(err))
			continue
		}
		stats.TotalConflicts += len(conflicts)
		for _, conflict := range conflicts {
			stats.ConflictTypes[string(conflict.Type)]++
		}
	}

	activities, err := s.audits.Recent(ctx, 20)
	if err != nil {
		s.logger.Warn("failed to load recent activities", zap.Error(err))
		activities = []models.AuditLog{}
	}

	resp := &dto.AnalyticsResponse{
		Overview:         *overview,
		BatchSlots:       batchSlots,
		StaffUtilization: utilization,
		RecentActivities: activities,
		Conflicts:        stats,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, analyticsCacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("analytics cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

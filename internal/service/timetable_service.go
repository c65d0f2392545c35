package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type timetableDetailReader interface {
	ListDetail(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlotDetail, int, error)
	ListDetailByBatch(ctx context.Context, batchID string) ([]models.TimetableSlotDetail, error)
	ListDetailByStaff(ctx context.Context, staffID string) ([]models.TimetableSlotDetail, error)
}

type timetableBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type timetableUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TimetableService serves read views over persisted slots: paginated lists
// and the weekly grids consumed by batch and staff dashboards. Weekly grids
// are cached; Invalidate drops them after any write to a batch's slots.
type TimetableService struct {
	slots    timetableDetailReader
	batches  timetableBatchReader
	users    timetableUserReader
	cache    viewCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewTimetableService wires timetable read dependencies. The cache is
// optional.
func NewTimetableService(
	slots timetableDetailReader,
	batches timetableBatchReader,
	users timetableUserReader,
	cache viewCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		slots:    slots,
		batches:  batches,
		users:    users,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// List returns slot detail rows matching the filter with pagination metadata.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlotDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 50
	}
	rows, total, err := s.slots.ListDetail(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable slots")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// BatchWeekly returns the batch's weekly grid, every day present with its
// slots ordered by start time.
func (s *TimetableService) BatchWeekly(ctx context.Context, batchID string) (*dto.BatchWeeklyResponse, error) {
	if batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch id is required")
	}

	cacheKey := "timetable:weekly:batch:" + batchID
	if s.cache != nil {
		var cached dto.BatchWeeklyResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("weekly cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	rows, err := s.slots.ListDetailByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch timetable")
	}

	resp := &dto.BatchWeeklyResponse{
		BatchID:        batchID,
		WeeklySchedule: buildWeekly(rows, false),
	}
	s.storeCache(ctx, cacheKey, resp)
	return resp, nil
}

// StaffWeekly returns the staff member's teaching grid plus aggregate
// workload.
func (s *TimetableService) StaffWeekly(ctx context.Context, staffID string) (*dto.StaffWeeklyResponse, error) {
	if staffID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staff id is required")
	}

	cacheKey := "timetable:weekly:staff:" + staffID
	if s.cache != nil {
		var cached dto.StaffWeeklyResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("weekly cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	staff, err := s.users.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	if staff.Role != models.RoleStaff && staff.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a staff member")
	}

	rows, err := s.slots.ListDetailByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff timetable")
	}

	resp := &dto.StaffWeeklyResponse{
		StaffID:        staffID,
		WeeklySchedule: buildWeekly(rows, true),
		Workload:       computeWorkload(rows),
	}
	s.storeCache(ctx, cacheKey, resp)
	return resp, nil
}

// Invalidate drops cached weekly views touched by a write to the batch's
// slots. Staff grids span batches, so all of them go.
func (s *TimetableService) Invalidate(ctx context.Context, batchID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:weekly:batch:"+batchID); err != nil {
		s.logger.Warn("failed to invalidate batch weekly cache", zap.String("batch_id", batchID), zap.Error(err))
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:weekly:staff:*"); err != nil {
		s.logger.Warn("failed to invalidate staff weekly caches", zap.Error(err))
	}
}

func (s *TimetableService) storeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("weekly cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// buildWeekly folds slot rows into a day-keyed grid. Staff views carry the
// batch name instead of the staff name.
func buildWeekly(rows []models.TimetableSlotDetail, staffView bool) dto.WeeklySchedule {
	weekly := make(dto.WeeklySchedule, len(models.WeekDays))
	for _, day := range models.WeekDays {
		weekly[day] = []dto.WeeklyEntry{}
	}
	sortDetails(rows)
	for _, row := range rows {
		entry := dto.WeeklyEntry{
			ID:            row.ID,
			Subject:       row.SubjectName,
			SubjectCode:   row.SubjectCode,
			ComponentType: string(row.ComponentType),
			StartTime:     row.StartTime,
			EndTime:       row.EndTime,
			Room:          row.RoomName,
		}
		if staffView {
			entry.Batch = row.BatchName
		} else {
			entry.Staff = row.StaffName
		}
		weekly[row.DayOfWeek] = append(weekly[row.DayOfWeek], entry)
	}
	return weekly
}

func computeWorkload(rows []models.TimetableSlotDetail) dto.StaffWorkload {
	var hours float64
	for _, row := range rows {
		hours += clockDiffHours(row.StartTime, row.EndTime)
	}
	return dto.StaffWorkload{TotalHours: hours, TotalClasses: len(rows)}
}

func sortDetails(rows []models.TimetableSlotDetail) {
	dayIndex := make(map[string]int, len(models.WeekDays))
	for i, day := range models.WeekDays {
		dayIndex[day] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DayOfWeek != rows[j].DayOfWeek {
			return dayIndex[rows[i].DayOfWeek] < dayIndex[rows[j].DayOfWeek]
		}
		return rows[i].StartTime < rows[j].StartTime
	})
}

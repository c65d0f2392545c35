package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/pkg/config"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type conflictSlotRepository interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.TimetableSlot, error)
	ListAll(ctx context.Context) ([]models.TimetableSlot, error)
	Update(ctx context.Context, slot *models.TimetableSlot) error
}

type conflictBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type conflictRoomReader interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

// ConflictService scans a batch's timetable for overlaps and applies narrow
// per-type repairs. Detection is read-only; resolution mutates persisted
// slots directly, so callers must serialize it against concurrent writers on
// the same batch.
type ConflictService struct {
	slots   conflictSlotRepository
	batches conflictBatchReader
	rooms   conflictRoomReader
	audit   auditSink
	grid    timeGrid
	logger  *zap.Logger
}

// NewConflictService wires detector and resolver dependencies. The audit sink
// is optional.
func NewConflictService(
	slots conflictSlotRepository,
	batches conflictBatchReader,
	rooms conflictRoomReader,
	audit auditSink,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		slots:   slots,
		batches: batches,
		rooms:   rooms,
		audit:   audit,
		grid:    newTimeGrid(cfg),
		logger:  logger,
	}
}

// Detect reports every overlapping slot pair in the batch's timetable, one
// conflict per pair per dimension. A pair clashing on both staff and room
// yields two records.
func (s *ConflictService) Detect(ctx context.Context, batchID string) ([]models.Conflict, error) {
	if batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch id is required")
	}
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	slots, err := s.slots.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}
	sortSlots(slots)

	conflicts := make([]models.Conflict, 0)
	conflicts = append(conflicts, scanPairs(slots, models.ConflictTimeOverlap, func(slot models.TimetableSlot) string {
		return slot.BatchID
	})...)
	conflicts = append(conflicts, scanPairs(slots, models.ConflictStaff, func(slot models.TimetableSlot) string {
		return slot.StaffID
	})...)
	conflicts = append(conflicts, scanPairs(slots, models.ConflictRoom, func(slot models.TimetableSlot) string {
		return slot.RoomID
	})...)
	return conflicts, nil
}

// Report wraps Detect into the caller-facing shape.
func (s *ConflictService) Report(ctx context.Context, batchID string) (*dto.ConflictReport, error) {
	conflicts, err := s.Detect(ctx, batchID)
	if err != nil {
		return nil, err
	}
	message := "no conflicts detected"
	if len(conflicts) > 0 {
		message = fmt.Sprintf("%d conflicts detected", len(conflicts))
	}
	return &dto.ConflictReport{
		BatchID:        batchID,
		Conflicts:      conflicts,
		TotalConflicts: len(conflicts),
		Message:        message,
	}, nil
}

// AutoResolve detects conflicts and attempts one repair per conflict. Time
// overlaps shift the later slot one hour forward, room clashes move to a free
// room, and staff clashes are never auto-repaired (manual reassignment only).
func (s *ConflictService) AutoResolve(ctx context.Context, req dto.ResolveConflictsRequest) (*dto.ResolutionResult, error) {
	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	conflicts, err := s.Detect(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		return &dto.ResolutionResult{
			Success: true,
			Message: "no conflicts to resolve",
		}, nil
	}
	if !req.AutoResolve {
		return &dto.ResolutionResult{
			Success:        false,
			Message:        fmt.Sprintf("%d conflicts detected, auto-resolve disabled", len(conflicts)),
			TotalConflicts: len(conflicts),
		}, nil
	}

	all, err := s.slots.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system timetable")
	}
	index := buildScheduleIndex(all)
	byID := make(map[string]*models.TimetableSlot, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	resolved := 0
	for _, conflict := range conflicts {
		var ok bool
		switch conflict.Type {
		case models.ConflictTimeOverlap:
			ok = s.resolveTimeOverlap(ctx, batch, index, byID, rooms, conflict)
		case models.ConflictRoom:
			ok = s.resolveRoomClash(ctx, index, byID, rooms, conflict)
		case models.ConflictStaff:
			// No reassignment strategy exists; staff overlaps stay for
			// manual review.
			ok = false
		default:
			ok = false
		}
		if ok {
			resolved++
		}
	}

	return &dto.ResolutionResult{
		Success:        resolved == len(conflicts),
		Message:        fmt.Sprintf("resolved %d of %d conflicts", resolved, len(conflicts)),
		ResolvedCount:  resolved,
		TotalConflicts: len(conflicts),
	}, nil
}

// resolveTimeOverlap shifts the later-starting slot of the pair one hour
// forward. The shift is accepted when the new interval stays inside the day's
// window and both the batch and a room are free there. Staff occupancy and
// availability are deliberately not re-checked on this path.
func (s *ConflictService) resolveTimeOverlap(
	ctx context.Context,
	batch *models.Batch,
	index *scheduleIndex,
	byID map[string]*models.TimetableSlot,
	rooms []models.Room,
	conflict models.Conflict,
) bool {
	slot := laterSlot(byID, conflict)
	if slot == nil {
		return false
	}

	newStart := addMinutes(slot.StartTime, blockMinutes)
	newEnd := addMinutes(slot.EndTime, blockMinutes)
	if !s.batchWindow(batch).fitsWindow(slot.DayOfWeek, newStart, newEnd) {
		return false
	}
	if index.BatchBusy(slot.BatchID, slot.DayOfWeek, newStart, newEnd, slot.ID) {
		return false
	}
	roomID := freeRoom(index, rooms, slot.DayOfWeek, newStart, newEnd, slot.ID, slot.RoomID)
	if roomID == "" {
		return false
	}

	return s.applyMove(ctx, index, slot, slot.DayOfWeek, newStart, newEnd, roomID)
}

// resolveRoomClash rebooks the second slot of the pair into another free
// active room at its existing time.
func (s *ConflictService) resolveRoomClash(
	ctx context.Context,
	index *scheduleIndex,
	byID map[string]*models.TimetableSlot,
	rooms []models.Room,
	conflict models.Conflict,
) bool {
	slot := byID[conflict.OtherID]
	if slot == nil {
		return false
	}
	for _, room := range rooms {
		if room.ID == slot.RoomID {
			continue
		}
		if index.RoomBusy(room.ID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.ID) {
			continue
		}
		return s.applyMove(ctx, index, slot, slot.DayOfWeek, slot.StartTime, slot.EndTime, room.ID)
	}
	return false
}

// applyMove persists the new position and keeps the in-memory index in step
// so later repairs in the same pass see it.
func (s *ConflictService) applyMove(ctx context.Context, index *scheduleIndex, slot *models.TimetableSlot, day, start, end, roomID string) bool {
	original := *slot
	index.Release(slot)
	slot.DayOfWeek = day
	slot.StartTime = start
	slot.EndTime = end
	slot.RoomID = roomID
	if err := s.slots.Update(ctx, slot); err != nil {
		*slot = original
		index.Occupy(slot)
		s.logger.Warn("failed to persist conflict repair", zap.String("slot_id", slot.ID), zap.Error(err))
		return false
	}
	index.Occupy(slot)
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionRepair, "timetable_slots", slot.ID,
			fmt.Sprintf("moved from %s %s-%s to %s %s-%s", original.DayOfWeek, original.StartTime, original.EndTime, day, start, end))
	}
	s.logger.Info("conflict repaired",
		zap.String("slot_id", slot.ID),
		zap.String("day", day),
		zap.String("start", start))
	return true
}

// batchWindow is the batch-scoped search window the resolver validates
// repairs against.
func (s *ConflictService) batchWindow(batch *models.Batch) timeGrid {
	return batchGrid(s.grid, batch)
}

// laterSlot picks the later-starting member of the conflicting pair.
func laterSlot(byID map[string]*models.TimetableSlot, conflict models.Conflict) *models.TimetableSlot {
	first := byID[conflict.SlotID]
	second := byID[conflict.OtherID]
	if first == nil || second == nil {
		if second != nil {
			return second
		}
		return first
	}
	if second.StartTime >= first.StartTime {
		return second
	}
	return first
}

// freeRoom returns the slot's current room if it is free at the target time,
// otherwise the first free active room.
func freeRoom(index *scheduleIndex, rooms []models.Room, day, start, end, excludeSlot, preferred string) string {
	if preferred != "" && !index.RoomBusy(preferred, day, start, end, excludeSlot) {
		return preferred
	}
	for _, room := range rooms {
		if !index.RoomBusy(room.ID, day, start, end, excludeSlot) {
			return room.ID
		}
	}
	return ""
}

// scanPairs flags every same-day overlapping pair sharing the same non-empty
// key (batch, staff member, or room). Each unordered pair is reported once.
func scanPairs(slots []models.TimetableSlot, conflictType models.ConflictType, keyOf func(models.TimetableSlot) string) []models.Conflict {
	groups := make(map[string][]models.TimetableSlot)
	var keys []string
	for _, slot := range slots {
		key := keyOf(slot)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], slot)
	}
	sort.Strings(keys)

	conflicts := make([]models.Conflict, 0)
	for _, key := range keys {
		group := groups[key]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.DayOfWeek != b.DayOfWeek {
					continue
				}
				if !overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
					continue
				}
				conflicts = append(conflicts, models.Conflict{
					Type:      conflictType,
					Message:   pairMessage(conflictType, a, b),
					SlotID:    a.ID,
					OtherID:   b.ID,
					BatchID:   a.BatchID,
					StaffID:   conflictStaff(conflictType, a),
					RoomID:    conflictRoom(conflictType, a),
					DayOfWeek: a.DayOfWeek,
					TimeRange: fmt.Sprintf("%s-%s / %s-%s", a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				})
			}
		}
	}
	return conflicts
}

func pairMessage(conflictType models.ConflictType, a, b models.TimetableSlot) string {
	switch conflictType {
	case models.ConflictStaff:
		return fmt.Sprintf("staff double-booked on %s: %s-%s overlaps %s-%s", a.DayOfWeek, a.StartTime, a.EndTime, b.StartTime, b.EndTime)
	case models.ConflictRoom:
		return fmt.Sprintf("room double-booked on %s: %s-%s overlaps %s-%s", a.DayOfWeek, a.StartTime, a.EndTime, b.StartTime, b.EndTime)
	default:
		return fmt.Sprintf("batch slots overlap on %s: %s-%s overlaps %s-%s", a.DayOfWeek, a.StartTime, a.EndTime, b.StartTime, b.EndTime)
	}
}

func conflictStaff(conflictType models.ConflictType, slot models.TimetableSlot) string {
	if conflictType == models.ConflictStaff {
		return slot.StaffID
	}
	return ""
}

func conflictRoom(conflictType models.ConflictType, slot models.TimetableSlot) string {
	if conflictType == models.ConflictRoom {
		return slot.RoomID
	}
	return ""
}

// sortSlots orders by day-of-week (Monday first) then start time.
func sortSlots(slots []models.TimetableSlot) {
	dayIndex := make(map[string]int, len(models.WeekDays))
	for i, day := range models.WeekDays {
		dayIndex[day] = i
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].DayOfWeek != slots[j].DayOfWeek {
			return dayIndex[slots[i].DayOfWeek] < dayIndex[slots[j].DayOfWeek]
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].ID < slots[j].ID
	})
}

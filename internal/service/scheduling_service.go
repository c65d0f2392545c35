package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/pkg/config"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type schedulerBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	ListActive(ctx context.Context) ([]models.Batch, error)
}

type schedulerSubjectReader interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error)
}

type schedulerAssignmentReader interface {
	ListActiveBySubject(ctx context.Context, subjectID string) ([]models.StaffAssignment, error)
}

type schedulerAvailabilityReader interface {
	ListByStaff(ctx context.Context, staffID string) ([]models.Availability, error)
}

type schedulerRoomReader interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type timetableStore interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.TimetableSlot, error)
	ListAll(ctx context.Context) ([]models.TimetableSlot, error)
	DeleteByBatchTx(ctx context.Context, tx *sqlx.Tx, batchID string) error
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, slots []models.TimetableSlot) error
}

type schedulerTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationNotifier interface {
	GenerationCompleted(batchID, batchName string, totalSlots, conflictCount int)
}

type auditSink interface {
	Record(ctx context.Context, action, table, recordID, details string)
}

// SchedulingService runs the greedy first-fit allocator that turns a batch's
// subject components into weekly timetable slots.
type SchedulingService struct {
	batches        schedulerBatchReader
	subjects       schedulerSubjectReader
	assignments    schedulerAssignmentReader
	availabilities schedulerAvailabilityReader
	rooms          schedulerRoomReader
	timetables     timetableStore
	tx             schedulerTxProvider
	notifier       generationNotifier
	audit          auditSink
	grid           timeGrid
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewSchedulingService wires allocator dependencies. The notifier and audit
// sink are optional.
func NewSchedulingService(
	batches schedulerBatchReader,
	subjects schedulerSubjectReader,
	assignments schedulerAssignmentReader,
	availabilities schedulerAvailabilityReader,
	rooms schedulerRoomReader,
	timetables timetableStore,
	tx schedulerTxProvider,
	notifier generationNotifier,
	audit auditSink,
	cfg config.SchedulerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulingService{
		batches:        batches,
		subjects:       subjects,
		assignments:    assignments,
		availabilities: availabilities,
		rooms:          rooms,
		timetables:     timetables,
		tx:             tx,
		notifier:       notifier,
		audit:          audit,
		grid:           newTimeGrid(cfg),
		validator:      validate,
		logger:         logger,
	}
}

// Generate builds and persists the weekly timetable for one batch. Business
// outcomes (existing timetable, no subjects, partial placement) are reported
// in the result; only infrastructure failures surface as errors.
func (s *SchedulingService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	existing, err := s.timetables.ListByBatch(ctx, req.BatchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing timetable")
	}
	if len(existing) > 0 && !req.ForceRegenerate {
		return &dto.GenerationResult{
			Success: false,
			Message: fmt.Sprintf("timetable already exists for batch %s; set forceRegenerate to rebuild", batch.Name),
		}, nil
	}

	subjects, err := s.subjects.ListByBatch(ctx, req.BatchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(subjects) == 0 {
		return &dto.GenerationResult{
			Success: false,
			Message: fmt.Sprintf("no subjects defined for batch %s", batch.Name),
		}, nil
	}
	prioritizeSubjects(subjects)

	run, err := s.newAllocation(ctx, batch)
	if err != nil {
		return nil, err
	}

	conflicts := make([]models.Conflict, 0)
	for i := range subjects {
		conflicts = append(conflicts, s.placeSubject(ctx, run, batch, &subjects[i])...)
	}

	regenerated := len(existing) > 0
	if err := s.persist(ctx, batch.ID, run.placed); err != nil {
		return nil, err
	}

	if s.audit != nil {
		if regenerated {
			s.audit.Record(ctx, models.AuditActionDelete, "timetable_slots", batch.ID,
				fmt.Sprintf("removed %d slots before regeneration", len(existing)))
		}
		s.audit.Record(ctx, models.AuditActionGenerate, "timetable_slots", batch.ID,
			fmt.Sprintf("generated %d slots with %d conflicts", len(run.placed), len(conflicts)))
	}

	// A run that placed nothing is a failure even though the (empty)
	// replacement was persisted; the conflicts explain what blocked it.
	success := len(run.placed) > 0
	message := fmt.Sprintf("timetable generated for batch %s", batch.Name)
	if !success {
		message = fmt.Sprintf("failed to generate timetable for batch %s due to conflicts", batch.Name)
	}
	result := &dto.GenerationResult{
		Success:    success,
		Message:    message,
		Slots:      run.placed,
		TotalSlots: len(run.placed),
		Conflicts:  conflicts,
	}
	s.logger.Info("timetable generated",
		zap.String("batch_id", batch.ID),
		zap.Int("slots", len(run.placed)),
		zap.Int("conflicts", len(conflicts)))
	if s.notifier != nil {
		s.notifier.GenerationCompleted(batch.ID, batch.Name, len(run.placed), len(conflicts))
	}
	return result, nil
}

// GenerateAll runs generation for every active batch sequentially, so each
// batch sees the occupancy created by its predecessors.
func (s *SchedulingService) GenerateAll(ctx context.Context, force bool) (*dto.GenerateAllResult, error) {
	batches, err := s.batches.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active batches")
	}
	if len(batches) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active batches to schedule")
	}

	sort.Slice(batches, func(i, j int) bool {
		if batches[i].AcademicYear == batches[j].AcademicYear {
			return batches[i].Semester < batches[j].Semester
		}
		return batches[i].AcademicYear < batches[j].AcademicYear
	})

	outcomes := make([]dto.BatchGenerationOutcome, 0, len(batches))
	succeeded := 0
	for _, batch := range batches {
		result, err := s.Generate(ctx, dto.GenerateTimetableRequest{BatchID: batch.ID, ForceRegenerate: force})
		if err != nil {
			result = &dto.GenerationResult{Success: false, Message: appErrors.FromError(err).Message}
		}
		if result.Success {
			succeeded++
		}
		outcomes = append(outcomes, dto.BatchGenerationOutcome{
			BatchID:   batch.ID,
			BatchName: batch.Name,
			Result:    *result,
		})
	}

	return &dto.GenerateAllResult{
		Message: fmt.Sprintf("generated timetables for %d of %d batches", succeeded, len(batches)),
		Results: outcomes,
	}, nil
}

// prioritizeSubjects orders subjects by the precedence of their leading
// taught component: lecture-first subjects schedule before tutorial-first,
// which schedule before lab-only. Ties keep input order.
func prioritizeSubjects(subjects []models.Subject) {
	leading := func(subject models.Subject) int {
		for i, component := range models.ComponentPrecedence {
			if subject.ComponentDuration(component) > 0 {
				return i
			}
		}
		return len(models.ComponentPrecedence)
	}
	sort.SliceStable(subjects, func(i, j int) bool {
		return leading(subjects[i]) < leading(subjects[j])
	})
}

// allocationRun carries the mutable state of one generation pass. The index
// starts from every other batch's persisted slots so cross-batch staff and
// room occupancy is respected, and grows with each placement. The grid is the
// batch-scoped search window shared with the conflict resolver.
type allocationRun struct {
	index        *scheduleIndex
	placed       []models.TimetableSlot
	rooms        []models.Room
	availability map[string][]models.Availability
	grid         timeGrid
}

func (s *SchedulingService) newAllocation(ctx context.Context, batch *models.Batch) (*allocationRun, error) {
	all, err := s.timetables.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system timetable")
	}
	others := make([]models.TimetableSlot, 0, len(all))
	for _, slot := range all {
		if slot.BatchID == batch.ID {
			continue
		}
		others = append(others, slot)
	}

	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	return &allocationRun{
		index:        buildScheduleIndex(others),
		placed:       make([]models.TimetableSlot, 0),
		rooms:        rooms,
		availability: make(map[string][]models.Availability),
		grid:         batchGrid(s.grid, batch),
	}, nil
}

// placeSubject schedules every taught component of a subject in precedence
// order. A subject with no active staff assignment is skipped whole; block
// failures are recorded and the remaining components still get their chance.
func (s *SchedulingService) placeSubject(ctx context.Context, run *allocationRun, batch *models.Batch, subject *models.Subject) []models.Conflict {
	conflicts := make([]models.Conflict, 0)

	staffIDs, err := s.rankedStaff(ctx, subject.ID)
	if err != nil {
		conflicts = append(conflicts, models.Conflict{
			Type:      models.ConflictNoStaff,
			Message:   fmt.Sprintf("failed to load staff assignments for %s", subject.Code),
			BatchID:   batch.ID,
			SubjectID: subject.ID,
		})
		return conflicts
	}
	if len(staffIDs) == 0 {
		conflicts = append(conflicts, models.Conflict{
			Type:      models.ConflictNoStaff,
			Message:   fmt.Sprintf("no active staff assigned to subject %s", subject.Code),
			BatchID:   batch.ID,
			SubjectID: subject.ID,
		})
		return conflicts
	}

	placedBefore := len(run.placed)
	for _, component := range models.ComponentPrecedence {
		duration := subject.ComponentDuration(component)
		if duration <= 0 {
			continue
		}
		blocks := requiredBlocks(duration)
		for block := 0; block < blocks; block++ {
			slot, ok := s.placeBlock(ctx, run, batch, subject, component, staffIDs, duration)
			if !ok {
				conflicts = append(conflicts, models.Conflict{
					Type:      models.ConflictComponentFailed,
					Message:   fmt.Sprintf("could not place %s %s block %d of %d", subject.Code, component, block+1, blocks),
					BatchID:   batch.ID,
					SubjectID: subject.ID,
					Component: string(component),
				})
				break
			}
			run.placed = append(run.placed, *slot)
			run.index.Occupy(slot)
		}
	}

	if len(run.placed) == placedBefore {
		conflicts = append(conflicts, models.Conflict{
			Type:      models.ConflictSchedulingFailed,
			Message:   fmt.Sprintf("no slots could be scheduled for subject %s", subject.Code),
			BatchID:   batch.ID,
			SubjectID: subject.ID,
		})
	}
	return conflicts
}

// rankedStaff returns every staff member actively assigned to a subject,
// ordered primary before secondary before assistant. The allocator falls
// through this list per candidate position, so a busy or unavailable primary
// does not sink the subject while an assistant could teach it.
func (s *SchedulingService) rankedStaff(ctx context.Context, subjectID string) ([]string, error) {
	assignments, err := s.assignments.ListActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	rank := map[models.AssignmentType]int{
		models.AssignmentPrimary:   0,
		models.AssignmentSecondary: 1,
		models.AssignmentAssistant: 2,
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		return rank[assignments[i].AssignmentType] < rank[assignments[j].AssignmentType]
	})
	staffIDs := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		staffIDs = append(staffIDs, assignment.StaffID)
	}
	return staffIDs, nil
}

// placeBlock finds the first grid position where the batch, one of the
// assigned staff, and a room are all free and that staff member has a
// covering availability window. When the plain scan fails it attempts one
// repair move before giving up.
func (s *SchedulingService) placeBlock(
	ctx context.Context,
	run *allocationRun,
	batch *models.Batch,
	subject *models.Subject,
	component models.ComponentType,
	staffIDs []string,
	duration int,
) (*models.TimetableSlot, bool) {
	if slot := s.scan(ctx, run, batch.ID, subject.ID, component, staffIDs, duration, "", ""); slot != nil {
		return slot, true
	}
	if slot := s.repairAndRetry(ctx, run, batch, subject, component, staffIDs, duration); slot != nil {
		return slot, true
	}
	return nil, false
}

// scan walks days Monday-first and hour blocks window-start-first, returning
// the first admissible position. Staff candidates are tried in preference
// order at each position, so a higher-ranked assignee wins when both fit.
// excludeSlot lets the repair step ignore the slot it is relocating; skipDay
// forces relocation onto a different day.
func (s *SchedulingService) scan(
	ctx context.Context,
	run *allocationRun,
	batchID, subjectID string,
	component models.ComponentType,
	staffIDs []string,
	duration int,
	excludeSlot, skipDay string,
) *models.TimetableSlot {
	for _, day := range models.WeekDays {
		if day == skipDay {
			continue
		}
		for _, block := range run.grid.hourBlocks(day) {
			start, end := block[0], block[1]
			if run.index.BatchBusy(batchID, day, start, end, excludeSlot) {
				continue
			}
			staffID := s.pickAssignee(ctx, run, staffIDs, day, start, end, excludeSlot)
			if staffID == "" {
				continue
			}
			roomID := s.pickRoom(run, component, day, start, end, excludeSlot)
			if roomID == "" {
				continue
			}
			return &models.TimetableSlot{
				ID:            uuid.NewString(),
				BatchID:       batchID,
				SubjectID:     subjectID,
				ComponentType: component,
				DayOfWeek:     day,
				StartTime:     start,
				EndTime:       end,
				RoomID:        roomID,
				StaffID:       staffID,
				Duration:      duration,
			}
		}
	}
	return nil
}

// repairAndRetry relocates the first movable slot already placed in this run
// to a different day, then retries the failed block once. Lectures are never
// moved, and only the first movable candidate is inspected.
func (s *SchedulingService) repairAndRetry(
	ctx context.Context,
	run *allocationRun,
	batch *models.Batch,
	subject *models.Subject,
	component models.ComponentType,
	staffIDs []string,
	duration int,
) *models.TimetableSlot {
	var candidate *models.TimetableSlot
	var candidateIdx int
	for i := range run.placed {
		if run.placed[i].Movable() {
			candidate = &run.placed[i]
			candidateIdx = i
			break
		}
	}
	if candidate == nil {
		return nil
	}

	// The victim keeps its assigned staff; only its position moves.
	moved := s.scan(ctx, run, batch.ID, candidate.SubjectID, candidate.ComponentType,
		[]string{candidate.StaffID}, candidate.Duration, candidate.ID, candidate.DayOfWeek)
	if moved == nil {
		return nil
	}

	original := *candidate
	run.index.Release(candidate)
	candidate.DayOfWeek = moved.DayOfWeek
	candidate.StartTime = moved.StartTime
	candidate.EndTime = moved.EndTime
	candidate.RoomID = moved.RoomID
	run.index.Occupy(candidate)

	slot := s.scan(ctx, run, batch.ID, subject.ID, component, staffIDs, duration, "", "")
	if slot != nil {
		s.logger.Debug("repair freed a position",
			zap.String("moved_slot", candidate.ID),
			zap.String("from", original.DayOfWeek+" "+original.StartTime),
			zap.String("to", candidate.DayOfWeek+" "+candidate.StartTime))
		if s.audit != nil {
			s.audit.Record(ctx, models.AuditActionRepair, "timetable_slots", candidate.ID,
				fmt.Sprintf("moved from %s %s to %s %s", original.DayOfWeek, original.StartTime, candidate.DayOfWeek, candidate.StartTime))
		}
		return slot
	}

	// The move did not help; put the victim back.
	run.index.Release(candidate)
	run.placed[candidateIdx] = original
	run.index.Occupy(&run.placed[candidateIdx])
	return nil
}

// pickAssignee returns the first candidate who is free at the position and
// has a covering availability window, or empty when nobody can take it.
func (s *SchedulingService) pickAssignee(ctx context.Context, run *allocationRun, staffIDs []string, day, start, end, excludeSlot string) string {
	for _, staffID := range staffIDs {
		if run.index.StaffBusy(staffID, day, start, end, excludeSlot) {
			continue
		}
		if !s.staffAvailable(ctx, run, staffID, day, start, end) {
			continue
		}
		return staffID
	}
	return ""
}

// staffAvailable reports whether the staff member declared a window covering
// [start, end) on the day. Staff without any declared windows cannot teach.
func (s *SchedulingService) staffAvailable(ctx context.Context, run *allocationRun, staffID, day, start, end string) bool {
	windows, ok := run.availability[staffID]
	if !ok {
		loaded, err := s.availabilities.ListByStaff(ctx, staffID)
		if err != nil {
			s.logger.Warn("failed to load staff availability", zap.String("staff_id", staffID), zap.Error(err))
			return false
		}
		windows = loaded
		run.availability[staffID] = windows
	}
	for _, window := range windows {
		if window.DayOfWeek == day && window.Covers(start, end) {
			return true
		}
	}
	return false
}

// pickRoom returns the first active room that is free and suits the
// component, or empty when none exists.
func (s *SchedulingService) pickRoom(run *allocationRun, component models.ComponentType, day, start, end, excludeSlot string) string {
	for _, room := range run.rooms {
		if !roomSatisfies(room, component) {
			continue
		}
		if run.index.RoomBusy(room.ID, day, start, end, excludeSlot) {
			continue
		}
		return room.ID
	}
	return ""
}

// roomSatisfies is the room suitability hook. Any active room currently
// qualifies for any component; capacity and room-type matching hang off here.
func roomSatisfies(room models.Room, component models.ComponentType) bool {
	return room.Active
}

// persist atomically replaces the batch's stored timetable with the run's
// slots.
func (s *SchedulingService) persist(ctx context.Context, batchID string, slots []models.TimetableSlot) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.DeleteByBatchTx(ctx, tx, batchID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear existing timetable")
		return err
	}
	if len(slots) > 0 {
		if err = s.timetables.BulkCreateWithTx(ctx, tx, slots); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable slots")
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return err
	}
	return nil
}

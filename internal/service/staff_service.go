package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type assignmentRepository interface {
	ReplaceForBatchTx(ctx context.Context, tx *sqlx.Tx, batchID string, assignments []models.StaffAssignment) error
	ListByStaff(ctx context.Context, staffID string) ([]models.StaffAssignmentDetail, error)
}

type availabilityRepository interface {
	ReplaceForStaffTx(ctx context.Context, tx *sqlx.Tx, staffID string, windows []models.Availability) error
	ListByStaff(ctx context.Context, staffID string) ([]models.Availability, error)
}

type staffUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type staffSubjectReader interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error)
}

type staffBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type staffSlotReader interface {
	ListDetailByStaff(ctx context.Context, staffID string) ([]models.TimetableSlotDetail, error)
}

type staffTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// StaffService manages staff-subject assignments, availability declarations,
// and the consolidated staff scheduling view.
type StaffService struct {
	assignments    assignmentRepository
	availabilities availabilityRepository
	users          staffUserReader
	subjects       staffSubjectReader
	batches        staffBatchReader
	slots          staffSlotReader
	tx             staffTxProvider
	audit          auditSink
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewStaffService wires staff management dependencies.
func NewStaffService(
	assignments assignmentRepository,
	availabilities availabilityRepository,
	users staffUserReader,
	subjects staffSubjectReader,
	batches staffBatchReader,
	slots staffSlotReader,
	tx staffTxProvider,
	audit auditSink,
	validate *validator.Validate,
	logger *zap.Logger,
) *StaffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{
		assignments:    assignments,
		availabilities: availabilities,
		users:          users,
		subjects:       subjects,
		batches:        batches,
		slots:          slots,
		tx:             tx,
		audit:          audit,
		validator:      validate,
		logger:         logger,
	}
}

// AssignStaff atomically replaces the staff assignments of a batch. Every
// referenced subject must belong to the batch, and every staff id must be an
// active staff user.
func (s *StaffService) AssignStaff(ctx context.Context, req dto.AssignStaffRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff assignment payload")
	}

	if _, err := s.batches.FindByID(ctx, req.BatchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	subjects, err := s.subjects.ListByBatch(ctx, req.BatchID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	subjectSet := make(map[string]bool, len(subjects))
	for _, subject := range subjects {
		subjectSet[subject.ID] = true
	}

	checkedStaff := make(map[string]bool)
	assignments := make([]models.StaffAssignment, 0, len(req.Assignments))
	for _, item := range req.Assignments {
		if !subjectSet[item.SubjectID] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s does not belong to the batch", item.SubjectID))
		}
		if !checkedStaff[item.StaffID] {
			staff, err := s.users.FindByID(ctx, item.StaffID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("staff %s not found", item.StaffID))
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
			}
			if staff.Role != models.RoleStaff || !staff.Active {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s is not an active staff member", item.StaffID))
			}
			checkedStaff[item.StaffID] = true
		}
		assignmentType := models.AssignmentType(item.AssignmentType)
		if assignmentType == "" {
			assignmentType = models.AssignmentPrimary
		}
		assignments = append(assignments, models.StaffAssignment{
			StaffID:        item.StaffID,
			SubjectID:      item.SubjectID,
			BatchID:        req.BatchID,
			AssignmentType: assignmentType,
			Active:         true,
		})
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

	if err = s.assignments.ReplaceForBatchTx(ctx, tx, req.BatchID, assignments); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace staff assignments")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignment transaction")
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionUpdate, "staff_assignments", req.BatchID,
			fmt.Sprintf("replaced assignments with %d entries", len(assignments)))
	}
	s.logger.Info("staff assignments replaced",
		zap.String("batch_id", req.BatchID),
		zap.Int("assignments", len(assignments)))
	return nil
}

// SetAvailability atomically replaces a staff member's weekly availability
// windows. One window per weekday; windows must be well-ordered.
func (s *StaffService) SetAvailability(ctx context.Context, req dto.SetAvailabilityRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	staff, err := s.users.FindByID(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	if staff.Role != models.RoleStaff {
		return appErrors.Clone(appErrors.ErrValidation, "availability can only be set for staff users")
	}

	seen := make(map[string]bool, len(req.Windows))
	windows := make([]models.Availability, 0, len(req.Windows))
	for _, window := range req.Windows {
		if seen[window.DayOfWeek] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate availability for %s", window.DayOfWeek))
		}
		seen[window.DayOfWeek] = true
		if window.StartTime >= window.EndTime {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window on %s must end after it starts", window.DayOfWeek))
		}
		windows = append(windows, models.Availability{
			StaffID:   req.StaffID,
			DayOfWeek: window.DayOfWeek,
			StartTime: window.StartTime,
			EndTime:   window.EndTime,
			Available: true,
		})
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

	if err = s.availabilities.ReplaceForStaffTx(ctx, tx, req.StaffID, windows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace availability")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit availability transaction")
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionUpdate, "staff_availability", req.StaffID,
			fmt.Sprintf("replaced availability with %d windows", len(windows)))
	}
	return nil
}

// Schedule returns the consolidated scheduling view for one staff member:
// assignments, declared availability, teaching slots, and workload.
func (s *StaffService) Schedule(ctx context.Context, staffID string) (*dto.StaffScheduleResponse, error) {
	if staffID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staff id is required")
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

	assignments, err := s.assignments.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	availability, err := s.availabilities.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	teaching, err := s.slots.ListDetailByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching schedule")
	}
	sortDetails(teaching)

	return &dto.StaffScheduleResponse{
		StaffID:          staffID,
		Assignments:      assignments,
		Availability:     availability,
		TeachingSchedule: teaching,
		Workload:         computeWorkload(teaching),
	}, nil
}

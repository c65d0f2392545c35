package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type batchRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	FindByName(ctx context.Context, name string) (*models.Batch, error)
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error)
	Update(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, id string) error
}

type subjectRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject) error
	ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error)
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
}

type batchTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// BatchService manages student cohorts and their subject catalogs. Creating a
// batch together with its subjects is atomic.
type BatchService struct {
	batches   batchRepository
	subjects  subjectRepository
	tx        batchTxProvider
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService wires batch management dependencies.
func NewBatchService(
	batches batchRepository,
	subjects subjectRepository,
	tx batchTxProvider,
	audit auditSink,
	validate *validator.Validate,
	logger *zap.Logger,
) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		batches:   batches,
		subjects:  subjects,
		tx:        tx,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Create persists a batch and its subjects in one transaction.
func (s *BatchService) Create(ctx context.Context, req dto.CreateBatchRequest) (*dto.CreateBatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
	}
	if !endDate.After(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be after startDate")
	}

	if existing, err := s.batches.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("batch %s already exists", req.Name))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check batch name")
	}

	batch := &models.Batch{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		StartDate:    startDate,
		EndDate:      endDate,
		WeekdayStart: req.WeekdayStart,
		WeekdayEnd:   req.WeekdayEnd,
		WeekendStart: req.WeekendStart,
		WeekendEnd:   req.WeekendEnd,
		Active:       true,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.batches.Create(ctx, tx, batch); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
		return nil, err
	}

	subjects := make([]models.Subject, 0, len(req.Subjects))
	for _, item := range req.Subjects {
		subject := models.Subject{
			BatchID:          batch.ID,
			Code:             item.Code,
			Name:             item.Name,
			Credits:          item.Credits,
			LectureDuration:  item.LectureDuration,
			TutorialDuration: item.TutorialDuration,
			LabDuration:      item.LabDuration,
		}
		if err = s.subjects.Create(ctx, tx, &subject); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
			return nil, err
		}
		subjects = append(subjects, subject)
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit batch transaction")
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionCreate, "batches", batch.ID,
			fmt.Sprintf("created batch %s with %d subjects", batch.Name, len(subjects)))
	}
	s.logger.Info("batch created", zap.String("batch_id", batch.ID), zap.Int("subjects", len(subjects)))

	return &dto.CreateBatchResponse{
		Message:  fmt.Sprintf("batch %s created", batch.Name),
		Batch:    batch,
		Subjects: subjects,
	}, nil
}

// Get returns a batch with its subjects.
func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, []models.Subject, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	subjects, err := s.subjects.ListByBatch(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	return batch, subjects, nil
}

// List returns batches matching the filter with pagination metadata.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	batches, total, err := s.batches.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return batches, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// SetActive toggles whether the batch participates in generate-all runs.
func (s *BatchService) SetActive(ctx context.Context, id string, active bool) (*models.Batch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if batch.Active == active {
		return batch, nil
	}
	batch.Active = active
	if err := s.batches.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionUpdate, "batches", batch.ID, fmt.Sprintf("active set to %t", active))
	}
	return batch, nil
}

// Delete removes an inactive batch. Active batches must be deactivated first
// so a running generate-all cannot race the removal.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if batch.Active {
		return appErrors.Clone(appErrors.ErrConflict, "deactivate the batch before deleting it")
	}
	if err := s.batches.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch")
	}
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionDelete, "batches", id, "batch deleted")
	}
	return nil
}

// ListSubjects returns subjects matching the filter.
func (s *BatchService) ListSubjects(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 50
	}
	subjects, total, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

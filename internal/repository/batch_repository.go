package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

const batchColumns = "id, name, academic_year, semester, start_date, end_date, weekday_start, weekday_end, weekend_start, weekend_end, active, created_at, updated_at"

// BatchRepository provides persistence for batches.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new batch repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a batch, optionally inside a caller-provided transaction.
func (r *BatchRepository) Create(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	const query = `
INSERT INTO batches (id, name, academic_year, semester, start_date, end_date, weekday_start, weekday_end, weekend_start, weekend_end, active, created_at, updated_at)
VALUES (:id, :name, :academic_year, :semester, :start_date, :end_date, :weekday_start, :weekday_end, :weekend_start, :weekend_end, :active, :created_at, :updated_at)`

	now := time.Now().UTC()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// FindByID loads one batch.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE id = $1", batchColumns)
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, fmt.Errorf("find batch by id: %w", err)
	}
	return &batch, nil
}

// FindByName loads one batch by its unique name.
func (r *BatchRepository) FindByName(ctx context.Context, name string) (*models.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE name = $1", batchColumns)
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, name); err != nil {
		return nil, fmt.Errorf("find batch by name: %w", err)
	}
	return &batch, nil
}

// ListActive returns active batches ordered for sequential generation.
func (r *BatchRepository) ListActive(ctx context.Context) ([]models.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE active = TRUE ORDER BY academic_year ASC, semester ASC, name ASC", batchColumns)
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list active batches: %w", err)
	}
	return batches, nil
}

// List returns batches with optional filtering and pagination.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error) {
	var conditions []string
	var args []interface{}

	if filter.AcademicYear > 0 {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM batches"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "academic_year": true, "semester": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "academic_year"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM batches%s ORDER BY %s %s LIMIT %d OFFSET %d",
		batchColumns, where, sortBy, order, size, offset)
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	return batches, total, nil
}

// Update rewrites the mutable fields of a batch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	const query = `
UPDATE batches
SET name = $1, academic_year = $2, semester = $3, start_date = $4, end_date = $5,
    weekday_start = $6, weekday_end = $7, weekend_start = $8, weekend_end = $9,
    active = $10, updated_at = $11
WHERE id = $12`
	batch.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		batch.Name, batch.AcademicYear, batch.Semester, batch.StartDate, batch.EndDate,
		batch.WeekdayStart, batch.WeekdayEnd, batch.WeekendStart, batch.WeekendEnd,
		batch.Active, batch.UpdatedAt, batch.ID)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update batch: batch %s not found", batch.ID)
	}
	return nil
}

// Delete removes a batch; dependent rows cascade at the schema level.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM batches WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

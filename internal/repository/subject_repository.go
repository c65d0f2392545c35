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

const subjectColumns = "id, batch_id, code, name, credits, lecture_duration, tutorial_duration, lab_duration, created_at, updated_at"

// SubjectRepository provides persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a subject, optionally inside a caller-provided transaction.
func (r *SubjectRepository) Create(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject) error {
	const query = `
INSERT INTO subjects (id, batch_id, code, name, credits, lecture_duration, tutorial_duration, lab_duration, created_at, updated_at)
VALUES (:id, :batch_id, :code, :name, :credits, :lecture_duration, :tutorial_duration, :lab_duration, :created_at, :updated_at)`

	now := time.Now().UTC()
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, subject); err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

// ListByBatch returns the batch's subjects in stable creation order.
func (r *SubjectRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE batch_id = $1 ORDER BY created_at ASC, code ASC", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, batchID); err != nil {
		return nil, fmt.Errorf("list subjects by batch: %w", err)
	}
	return subjects, nil
}

// List returns subjects with optional filtering and pagination.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	var conditions []string
	var args []interface{}

	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", len(args)+1, len(args)+2))
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subjects"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"code": true, "name": true, "credits": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "code"
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
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM subjects%s ORDER BY %s %s LIMIT %d OFFSET %d",
		subjectColumns, where, sortBy, order, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, total, nil
}

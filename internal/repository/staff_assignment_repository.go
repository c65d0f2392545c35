package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

const assignmentColumns = "id, staff_id, subject_id, batch_id, assignment_type, active, created_at"

// StaffAssignmentRepository provides persistence for staff-subject links.
type StaffAssignmentRepository struct {
	db *sqlx.DB
}

// NewStaffAssignmentRepository creates a new staff assignment repository.
func NewStaffAssignmentRepository(db *sqlx.DB) *StaffAssignmentRepository {
	return &StaffAssignmentRepository{db: db}
}

// ListActiveBySubject returns active assignments for a subject ordered by
// assignment type so primary carriers come first.
func (r *StaffAssignmentRepository) ListActiveBySubject(ctx context.Context, subjectID string) ([]models.StaffAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_assignments
WHERE subject_id = $1 AND active = TRUE
ORDER BY CASE assignment_type WHEN 'primary' THEN 0 WHEN 'secondary' THEN 1 ELSE 2 END, created_at ASC`, assignmentColumns)
	var assignments []models.StaffAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, subjectID); err != nil {
		return nil, fmt.Errorf("list active assignments by subject: %w", err)
	}
	return assignments, nil
}

// ReplaceForBatchTx deletes the batch's assignments and inserts the new set
// inside the transaction.
func (r *StaffAssignmentRepository) ReplaceForBatchTx(ctx context.Context, tx *sqlx.Tx, batchID string, assignments []models.StaffAssignment) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM staff_assignments WHERE batch_id = $1", batchID); err != nil {
		return fmt.Errorf("clear staff assignments: %w", err)
	}

	const query = `
INSERT INTO staff_assignments (id, staff_id, subject_id, batch_id, assignment_type, active, created_at)
VALUES (:id, :staff_id, :subject_id, :batch_id, :assignment_type, :active, :created_at)`

	now := time.Now().UTC()
	for i := range assignments {
		assignment := &assignments[i]
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		if assignment.CreatedAt.IsZero() {
			assignment.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, query, assignment); err != nil {
			return fmt.Errorf("insert staff assignment: %w", err)
		}
	}
	return nil
}

// ListByStaff returns a staff member's assignments with descriptive fields.
func (r *StaffAssignmentRepository) ListByStaff(ctx context.Context, staffID string) ([]models.StaffAssignmentDetail, error) {
	const query = `
SELECT a.id, a.staff_id, a.subject_id, a.batch_id, a.assignment_type, a.active, a.created_at,
       CONCAT(u.first_name, ' ', u.last_name) AS staff_name,
       s.name AS subject_name,
       b.name AS batch_name
FROM staff_assignments a
JOIN users u ON u.id = a.staff_id
JOIN subjects s ON s.id = a.subject_id
JOIN batches b ON b.id = a.batch_id
WHERE a.staff_id = $1
ORDER BY b.name ASC, s.code ASC`
	var assignments []models.StaffAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, staffID); err != nil {
		return nil, fmt.Errorf("list assignments by staff: %w", err)
	}
	return assignments, nil
}

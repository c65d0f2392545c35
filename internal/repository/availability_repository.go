package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

const availabilityColumns = "id, staff_id, day_of_week, start_time, end_time, available, created_at, updated_at"

// AvailabilityRepository provides persistence for staff availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByStaff returns the staff member's declared windows.
func (r *AvailabilityRepository) ListByStaff(ctx context.Context, staffID string) ([]models.Availability, error) {
	query := fmt.Sprintf("SELECT %s FROM staff_availability WHERE staff_id = $1 ORDER BY day_of_week ASC", availabilityColumns)
	var windows []models.Availability
	if err := r.db.SelectContext(ctx, &windows, query, staffID); err != nil {
		return nil, fmt.Errorf("list availability by staff: %w", err)
	}
	return windows, nil
}

// ReplaceForStaffTx deletes the staff member's windows and inserts the new
// set inside the transaction.
func (r *AvailabilityRepository) ReplaceForStaffTx(ctx context.Context, tx *sqlx.Tx, staffID string, windows []models.Availability) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM staff_availability WHERE staff_id = $1", staffID); err != nil {
		return fmt.Errorf("clear staff availability: %w", err)
	}

	const query = `
INSERT INTO staff_availability (id, staff_id, day_of_week, start_time, end_time, available, created_at, updated_at)
VALUES (:id, :staff_id, :day_of_week, :start_time, :end_time, :available, :created_at, :updated_at)`

	now := time.Now().UTC()
	for i := range windows {
		window := &windows[i]
		if window.ID == "" {
			window.ID = uuid.NewString()
		}
		if window.CreatedAt.IsZero() {
			window.CreatedAt = now
		}
		window.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, tx, query, window); err != nil {
			return fmt.Errorf("insert availability window: %w", err)
		}
	}
	return nil
}

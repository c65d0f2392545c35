package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/dto"
)

// AnalyticsRepository aggregates entity counts for the admin dashboard.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository creates a new analytics repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// EntityCounts returns system-wide totals in one round trip.
func (r *AnalyticsRepository) EntityCounts(ctx context.Context) (*dto.AnalyticsOverview, error) {
	const query = `
SELECT
  (SELECT COUNT(*) FROM batches)                          AS total_batches,
  (SELECT COUNT(*) FROM subjects)                         AS total_subjects,
  (SELECT COUNT(*) FROM users WHERE role = 'STAFF')       AS total_staff,
  (SELECT COUNT(*) FROM users WHERE role = 'STUDENT')     AS total_students,
  (SELECT COUNT(DISTINCT batch_id) FROM timetable_slots)  AS total_timetables,
  (SELECT COUNT(*) FROM rooms)                            AS total_rooms`

	var row struct {
		TotalBatches    int `db:"total_batches"`
		TotalSubjects   int `db:"total_subjects"`
		TotalStaff      int `db:"total_staff"`
		TotalStudents   int `db:"total_students"`
		TotalTimetables int `db:"total_timetables"`
		TotalRooms      int `db:"total_rooms"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("load entity counts: %w", err)
	}
	return &dto.AnalyticsOverview{
		TotalBatches:    row.TotalBatches,
		TotalSubjects:   row.TotalSubjects,
		TotalStaff:      row.TotalStaff,
		TotalStudents:   row.TotalStudents,
		TotalTimetables: row.TotalTimetables,
		TotalRooms:      row.TotalRooms,
	}, nil
}

// BatchSlotCounts returns scheduled slot totals per batch.
func (r *AnalyticsRepository) BatchSlotCounts(ctx context.Context) ([]dto.BatchSlotCount, error) {
	const query = `
SELECT b.id AS batch_id, b.name AS batch_name, COUNT(t.id) AS slot_count
FROM batches b
LEFT JOIN timetable_slots t ON t.batch_id = b.id
GROUP BY b.id, b.name
ORDER BY b.name ASC`
	var rows []dto.BatchSlotCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load batch slot counts: %w", err)
	}
	return rows, nil
}

// StaffUtilization returns teaching load per staff member, busiest first.
func (r *AnalyticsRepository) StaffUtilization(ctx context.Context) ([]dto.StaffUtilization, error) {
	const query = `
SELECT t.staff_id,
       CONCAT(u.first_name, ' ', u.last_name) AS staff_name,
       COUNT(*) AS total_classes,
       SUM(EXTRACT(EPOCH FROM (t.end_time::time - t.start_time::time)) / 3600.0) AS total_hours
FROM timetable_slots t
JOIN users u ON u.id = t.staff_id
GROUP BY t.staff_id, u.first_name, u.last_name
ORDER BY total_hours DESC`
	var rows []dto.StaffUtilization
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load staff utilization: %w", err)
	}
	return rows, nil
}

// ListActiveBatchIDs returns the ids of every active batch.
func (r *AnalyticsRepository) ListActiveBatchIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM batches WHERE active = TRUE ORDER BY academic_year ASC, semester ASC"); err != nil {
		return nil, fmt.Errorf("list active batch ids: %w", err)
	}
	return ids, nil
}

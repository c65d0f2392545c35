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

const timetableColumns = "id, batch_id, subject_id, component_type, day_of_week, start_time, end_time, room_id, staff_id, duration, created_at, updated_at"

const timetableDetailSelect = `
SELECT t.id, t.batch_id, t.subject_id, t.component_type, t.day_of_week, t.start_time, t.end_time,
       t.room_id, t.staff_id, t.duration, t.created_at, t.updated_at,
       s.code AS subject_code, s.name AS subject_name,
       b.name AS batch_name,
       r.name AS room_name,
       CONCAT(u.first_name, ' ', u.last_name) AS staff_name
FROM timetable_slots t
JOIN subjects s ON s.id = t.subject_id
JOIN batches b ON b.id = t.batch_id
LEFT JOIN rooms r ON r.id = t.room_id
LEFT JOIN users u ON u.id = t.staff_id`

// TimetableRepository provides persistence for timetable slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ListByBatch returns the batch's slots ordered by day then start time.
func (r *TimetableRepository) ListByBatch(ctx context.Context, batchID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE batch_id = $1 ORDER BY day_of_week ASC, start_time ASC", timetableColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, batchID); err != nil {
		return nil, fmt.Errorf("list timetable slots by batch: %w", err)
	}
	return slots, nil
}

// ListAll returns every persisted slot across all batches.
func (r *TimetableRepository) ListAll(ctx context.Context) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots ORDER BY batch_id ASC, day_of_week ASC, start_time ASC", timetableColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list all timetable slots: %w", err)
	}
	return slots, nil
}

// DeleteByBatchTx removes every slot of the batch inside the transaction.
func (r *TimetableRepository) DeleteByBatchTx(ctx context.Context, tx *sqlx.Tx, batchID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM timetable_slots WHERE batch_id = $1", batchID); err != nil {
		return fmt.Errorf("delete timetable slots by batch: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts the slots inside the transaction.
func (r *TimetableRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, slots []models.TimetableSlot) error {
	if len(slots) == 0 {
		return nil
	}
	const query = `
INSERT INTO timetable_slots (id, batch_id, subject_id, component_type, day_of_week, start_time, end_time, room_id, staff_id, duration, created_at, updated_at)
VALUES (:id, :batch_id, :subject_id, :component_type, :day_of_week, :start_time, :end_time, :room_id, :staff_id, :duration, :created_at, :updated_at)`

	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		slot.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, tx, query, slot); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}
	return nil
}

// Update rewrites the mutable position fields of one slot.
func (r *TimetableRepository) Update(ctx context.Context, slot *models.TimetableSlot) error {
	const query = `
UPDATE timetable_slots
SET day_of_week = $1, start_time = $2, end_time = $3, room_id = $4, staff_id = $5, updated_at = $6
WHERE id = $7`
	slot.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.RoomID, slot.StaffID, slot.UpdatedAt, slot.ID)
	if err != nil {
		return fmt.Errorf("update timetable slot: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update timetable slot: slot %s not found", slot.ID)
	}
	return nil
}

// ListDetail returns joined slot rows matching the filter with a total count.
func (r *TimetableRepository) ListDetail(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlotDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("t.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.StaffID != "" {
		conditions = append(conditions, fmt.Sprintf("t.staff_id = $%d", len(args)+1))
		args = append(args, filter.StaffID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("t.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("t.day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM timetable_slots t" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable slots: %w", err)
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

	query := fmt.Sprintf("%s%s ORDER BY t.day_of_week ASC, t.start_time ASC LIMIT %d OFFSET %d",
		timetableDetailSelect, where, size, offset)
	var rows []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable detail: %w", err)
	}
	return rows, total, nil
}

// ListDetailByBatch returns joined slot rows for one batch.
func (r *TimetableRepository) ListDetailByBatch(ctx context.Context, batchID string) ([]models.TimetableSlotDetail, error) {
	query := timetableDetailSelect + " WHERE t.batch_id = $1 ORDER BY t.day_of_week ASC, t.start_time ASC"
	var rows []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &rows, query, batchID); err != nil {
		return nil, fmt.Errorf("list timetable detail by batch: %w", err)
	}
	return rows, nil
}

// ListDetailByStaff returns joined slot rows taught by one staff member.
func (r *TimetableRepository) ListDetailByStaff(ctx context.Context, staffID string) ([]models.TimetableSlotDetail, error) {
	query := timetableDetailSelect + " WHERE t.staff_id = $1 ORDER BY t.day_of_week ASC, t.start_time ASC"
	var rows []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &rows, query, staffID); err != nil {
		return nil, fmt.Errorf("list timetable detail by staff: %w", err)
	}
	return rows, nil
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func timetableRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "batch_id", "subject_id", "component_type", "day_of_week",
		"start_time", "end_time", "room_id", "staff_id", "duration", "created_at", "updated_at",
	}).AddRow("slot-1", "batch-1", "sub-1", "lecture", "monday", "08:30", "09:30", "room-1", "staff-1", 60, now, now)
}

func TestTimetableRepositoryListByBatch(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, batch_id, subject_id, component_type, day_of_week, start_time, end_time, room_id, staff_id, duration, created_at, updated_at FROM timetable_slots WHERE batch_id = $1 ORDER BY day_of_week ASC, start_time ASC")).
		WithArgs("batch-1").
		WillReturnRows(timetableRows())

	slots, err := repo.ListByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-1", slots[0].ID)
	assert.Equal(t, models.ComponentLecture, slots[0].ComponentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceBatchInTx(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_slots WHERE batch_id = $1")).
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByBatchTx(context.Background(), tx, "batch-1"))

	slots := []models.TimetableSlot{
		{
			BatchID:       "batch-1",
			SubjectID:     "sub-1",
			ComponentType: models.ComponentLecture,
			DayOfWeek:     models.Monday,
			StartTime:     "08:30",
			EndTime:       "09:30",
			RoomID:        "room-1",
			StaffID:       "staff-1",
			Duration:      60,
		},
	}
	require.NoError(t, repo.BulkCreateWithTx(context.Background(), tx, slots))
	assert.NotEmpty(t, slots[0].ID, "missing ids are filled in")
	assert.False(t, slots[0].UpdatedAt.IsZero())

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateMissingSlot(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_slots")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.TimetableSlot{ID: "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListDetailFilters(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_slots t WHERE t.batch_id = $1 AND t.day_of_week = $2")).
		WithArgs("batch-1", "monday").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	detailRows := sqlmock.NewRows([]string{
		"id", "batch_id", "subject_id", "component_type", "day_of_week",
		"start_time", "end_time", "room_id", "staff_id", "duration", "created_at", "updated_at",
		"subject_code", "subject_name", "batch_name", "room_name", "staff_name",
	}).AddRow("slot-1", "batch-1", "sub-1", "lecture", "monday", "08:30", "09:30", "room-1", "staff-1", 60, now, now,
		"CS101", "Data Structures", "CSE Y1 S1", "Lecture Hall 1", "Jordan Lee")

	mock.ExpectQuery(`(?s)SELECT t\.id,.+FROM timetable_slots t`).
		WithArgs("batch-1", "monday").
		WillReturnRows(detailRows)

	rows, total, err := repo.ListDetail(context.Background(), models.TimetableFilter{
		BatchID:   "batch-1",
		DayOfWeek: "monday",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Data Structures", rows[0].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/pkg/config"
)

func TestSchedulingServiceGenerateSuccess(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", Name: "Programming", LectureDuration: 60, TutorialDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		availability: map[string][]models.Availability{
			"staff-1": {window("staff-1", models.Monday, "09:00", "12:00")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalSlots)
	assert.Empty(t, result.Conflicts)

	for _, slot := range result.Slots {
		assert.Equal(t, models.Monday, slot.DayOfWeek)
		assert.GreaterOrEqual(t, slot.StartTime, "09:00", "slot must respect the availability window")
		assert.LessOrEqual(t, slot.EndTime, "12:00")
		assert.Equal(t, "staff-1", slot.StaffID)
		assert.NotEmpty(t, slot.RoomID)
	}
	assert.Equal(t, result.Slots, fixture.store.saved)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestSchedulingServiceBlockCount(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS102", Name: "Systems", LectureDuration: 120, TutorialDuration: 90, LabDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		availability: map[string][]models.Availability{
			"staff-1": {window("staff-1", models.Monday, "08:30", "17:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	require.True(t, result.Success)

	// 120 minutes yields two blocks, 90 and 60 one block each.
	counts := map[models.ComponentType]int{}
	for _, slot := range result.Slots {
		counts[slot.ComponentType]++
	}
	assert.Equal(t, 2, counts[models.ComponentLecture])
	assert.Equal(t, 1, counts[models.ComponentTutorial])
	assert.Equal(t, 1, counts[models.ComponentLab])
}

func TestSchedulingServiceNoDoubleBooking(t *testing.T) {
	subjects := make([]models.Subject, 0, 4)
	assignments := map[string][]models.StaffAssignment{}
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("sub-%d", i)
		subjects = append(subjects, models.Subject{
			ID: id, BatchID: "batch-1", Code: fmt.Sprintf("CS%d", i),
			LectureDuration: 60, TutorialDuration: 60,
		})
		assignments[id] = []models.StaffAssignment{
			{StaffID: "staff-1", SubjectID: id, AssignmentType: models.AssignmentPrimary, Active: true},
		}
	}
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects:    subjects,
		assignments: assignments,
		availability: map[string][]models.Availability{
			"staff-1": {
				window("staff-1", models.Monday, "08:30", "17:30"),
				window("staff-1", models.Tuesday, "08:30", "17:30"),
			},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 8, result.TotalSlots)

	for i := 0; i < len(result.Slots); i++ {
		for j := i + 1; j < len(result.Slots); j++ {
			a, b := result.Slots[i], result.Slots[j]
			if a.DayOfWeek != b.DayOfWeek {
				continue
			}
			assert.False(t, overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				"slots %s and %s overlap on %s", a.ID, b.ID, a.DayOfWeek)
		}
	}
}

func TestSchedulingServiceNoStaffSkipsSubject(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	assert.False(t, result.Success, "a run that placed nothing is a failure")
	assert.Contains(t, result.Message, "failed to generate")
	assert.Zero(t, result.TotalSlots)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictNoStaff, result.Conflicts[0].Type)
}

func TestSchedulingServiceUnavailableStaffFailsComponent(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		// No availability rows: staff without declared windows cannot teach.
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Zero(t, result.TotalSlots)

	types := map[models.ConflictType]bool{}
	for _, conflict := range result.Conflicts {
		types[conflict.Type] = true
	}
	assert.True(t, types[models.ConflictComponentFailed])
	assert.True(t, types[models.ConflictSchedulingFailed])
}

func TestSchedulingServiceExistingTimetableWithoutForce(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		existing: []models.TimetableSlot{
			{ID: "old-1", BatchID: "batch-1", DayOfWeek: models.Monday, StartTime: "08:30", EndTime: "09:30"},
		},
	})

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "already exists")
	assert.Nil(t, fixture.store.saved, "nothing may be persisted")
}

func TestSchedulingServiceForceRegenerateReplaces(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		existing: []models.TimetableSlot{
			{ID: "old-1", BatchID: "batch-1", DayOfWeek: models.Monday, StartTime: "08:30", EndTime: "09:30"},
		},
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		availability: map[string][]models.Availability{
			"staff-1": {window("staff-1", models.Monday, "08:30", "17:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1", ForceRegenerate: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"batch-1"}, fixture.store.deleted)
	assert.Len(t, fixture.store.saved, 1)
	assert.Contains(t, fixture.audit.actions, models.AuditActionDelete)
	assert.Contains(t, fixture.audit.actions, models.AuditActionGenerate)
}

func TestSchedulingServicePrimaryStaffPreferred(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {
				{StaffID: "assistant-1", SubjectID: "sub-1", AssignmentType: models.AssignmentAssistant, Active: true},
				{StaffID: "primary-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true},
			},
		},
		availability: map[string][]models.Availability{
			"primary-1":   {window("primary-1", models.Monday, "08:30", "17:30")},
			"assistant-1": {window("assistant-1", models.Monday, "08:30", "17:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, "primary-1", result.Slots[0].StaffID)
}

func TestSchedulingServiceSecondaryStaffTeachesWhenPrimaryCannot(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {
				{StaffID: "primary-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true},
				{StaffID: "assistant-1", SubjectID: "sub-1", AssignmentType: models.AssignmentAssistant, Active: true},
			},
		},
		// The primary never declared availability; the assistant covers Monday.
		availability: map[string][]models.Availability{
			"assistant-1": {window("assistant-1", models.Monday, "08:30", "17:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Conflicts, "an available lower-ranked assignee must carry the subject")
	require.Len(t, result.Slots, 1)
	assert.Equal(t, "assistant-1", result.Slots[0].StaffID)
}

func TestSchedulingServiceHonorsBatchWindow(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		batch: &models.Batch{
			ID: "batch-1", Name: "Y1S1", AcademicYear: 1, Semester: 1, Active: true,
			WeekdayStart: "10:00", WeekdayEnd: "12:00",
		},
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		availability: map[string][]models.Availability{
			"staff-1": {window("staff-1", models.Monday, "08:30", "17:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, "10:00", result.Slots[0].StartTime, "the batch's own bounds narrow the configured grid")
	assert.Equal(t, "11:00", result.Slots[0].EndTime)
}

func TestSchedulingServiceCrossBatchOccupancy(t *testing.T) {
	foreign := models.TimetableSlot{
		ID: "f-1", BatchID: "batch-2", StaffID: "staff-1", RoomID: "room-1",
		DayOfWeek: models.Monday, StartTime: "08:30", EndTime: "09:30",
	}
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		all: []models.TimetableSlot{foreign},
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		availability: map[string][]models.Availability{
			"staff-1": {window("staff-1", models.Monday, "08:30", "17:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.NotEqual(t, "08:30", result.Slots[0].StartTime,
		"staff already teaches another batch at 08:30")
}

func TestSchedulingServiceRepairRelocatesMovableSlot(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", TutorialDuration: 60},
			{ID: "sub-2", BatchID: "batch-1", Code: "CS102", TutorialDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
			"sub-2": {{StaffID: "staff-2", SubjectID: "sub-2", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		availability: map[string][]models.Availability{
			"staff-1": {
				window("staff-1", models.Monday, "08:30", "09:30"),
				window("staff-1", models.Tuesday, "08:30", "09:30"),
			},
			// staff-2 can only teach the block staff-1's tutorial lands on first.
			"staff-2": {window("staff-2", models.Monday, "08:30", "09:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "batch-1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Conflicts)
	require.Len(t, result.Slots, 2)

	byStaff := map[string]models.TimetableSlot{}
	for _, slot := range result.Slots {
		byStaff[slot.StaffID] = slot
	}
	assert.Equal(t, models.Monday, byStaff["staff-2"].DayOfWeek, "repair must free Monday for staff-2")
	assert.Equal(t, models.Tuesday, byStaff["staff-1"].DayOfWeek, "the movable tutorial relocates to a different day")
	assert.Contains(t, fixture.audit.actions, models.AuditActionRepair)
}

func TestSchedulingServiceBatchNotFound(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{})

	_, err := fixture.service.Generate(context.Background(), dto.GenerateTimetableRequest{BatchID: "missing"})
	require.Error(t, err)
}

func TestSchedulingServiceGenerateAll(t *testing.T) {
	fixture := newSchedulerFixture(t, schedulerFixtureConfig{
		activeBatches: []models.Batch{
			{ID: "batch-2", Name: "Y2S1", AcademicYear: 2, Semester: 1, Active: true},
			{ID: "batch-1", Name: "Y1S1", AcademicYear: 1, Semester: 1, Active: true},
		},
		subjects: []models.Subject{
			{ID: "sub-1", BatchID: "batch-1", Code: "CS101", LectureDuration: 60},
		},
		assignments: map[string][]models.StaffAssignment{
			"sub-1": {{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: models.AssignmentPrimary, Active: true}},
		},
		availability: map[string][]models.Availability{
			"staff-1": {window("staff-1", models.Monday, "08:30", "17:30")},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	result, err := fixture.service.GenerateAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "batch-1", result.Results[0].BatchID, "lower academic year runs first")
	assert.True(t, result.Results[0].Result.Success)
	assert.False(t, result.Results[1].Result.Success, "batch without subjects cannot be scheduled")
	assert.Contains(t, result.Message, "1 of 2")
}

func TestPrioritizeSubjects(t *testing.T) {
	subjects := []models.Subject{
		{ID: "lab-only", LabDuration: 60},
		{ID: "tut-first", TutorialDuration: 60, LabDuration: 60},
		{ID: "lec-a", LectureDuration: 60},
		{ID: "lec-b", LectureDuration: 90},
	}
	prioritizeSubjects(subjects)

	ids := []string{subjects[0].ID, subjects[1].ID, subjects[2].ID, subjects[3].ID}
	assert.Equal(t, []string{"lec-a", "lec-b", "tut-first", "lab-only"}, ids,
		"lecture-first subjects lead, ties keep input order")
}

// --- Fixtures ---

type schedulerFixtureConfig struct {
	batch         *models.Batch
	activeBatches []models.Batch
	subjects      []models.Subject
	assignments   map[string][]models.StaffAssignment
	availability  map[string][]models.Availability
	rooms         []models.Room
	existing      []models.TimetableSlot
	all           []models.TimetableSlot
}

type schedulerFixture struct {
	service *SchedulingService
	store   *timetableStoreStub
	audit   *auditSinkStub
	mock    sqlmock.Sqlmock
}

func newSchedulerFixture(t *testing.T, cfg schedulerFixtureConfig) *schedulerFixture {
	batch := cfg.batch
	if batch == nil {
		batch = &models.Batch{ID: "batch-1", Name: "Y1S1", AcademicYear: 1, Semester: 1, Active: true}
	}
	batches := &batchReaderStub{
		byID:   map[string]*models.Batch{batch.ID: batch},
		active: cfg.activeBatches,
	}
	for i := range cfg.activeBatches {
		batches.byID[cfg.activeBatches[i].ID] = &cfg.activeBatches[i]
	}

	rooms := cfg.rooms
	if rooms == nil {
		rooms = []models.Room{{ID: "room-1", Name: "R101", Active: true}}
	}

	store := &timetableStoreStub{existing: cfg.existing, all: cfg.all}
	audit := &auditSinkStub{}
	txProvider, mock := newTxProviderMock(t)

	service := NewSchedulingService(
		batches,
		subjectReaderStub{subjects: cfg.subjects},
		assignmentReaderStub{bySubject: cfg.assignments},
		availabilityReaderStub{byStaff: cfg.availability},
		roomReaderStub{rooms: rooms},
		store,
		txProvider,
		nil,
		audit,
		config.SchedulerConfig{},
		nil,
		nil,
	)

	return &schedulerFixture{service: service, store: store, audit: audit, mock: mock}
}

func window(staffID, day, start, end string) models.Availability {
	return models.Availability{StaffID: staffID, DayOfWeek: day, StartTime: start, EndTime: end, Available: true}
}

type batchReaderStub struct {
	byID   map[string]*models.Batch
	active []models.Batch
}

func (s *batchReaderStub) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if batch, ok := s.byID[id]; ok {
		return batch, nil
	}
	return nil, sql.ErrNoRows
}

func (s *batchReaderStub) ListActive(ctx context.Context) ([]models.Batch, error) {
	return s.active, nil
}

type subjectReaderStub struct {
	subjects []models.Subject
}

func (s subjectReaderStub) ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error) {
	matched := make([]models.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		if subject.BatchID == batchID {
			matched = append(matched, subject)
		}
	}
	return matched, nil
}

type assignmentReaderStub struct {
	bySubject map[string][]models.StaffAssignment
}

func (s assignmentReaderStub) ListActiveBySubject(ctx context.Context, subjectID string) ([]models.StaffAssignment, error) {
	return s.bySubject[subjectID], nil
}

type availabilityReaderStub struct {
	byStaff map[string][]models.Availability
}

func (s availabilityReaderStub) ListByStaff(ctx context.Context, staffID string) ([]models.Availability, error) {
	return s.byStaff[staffID], nil
}

type roomReaderStub struct {
	rooms []models.Room
}

func (s roomReaderStub) ListActive(ctx context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

type timetableStoreStub struct {
	existing []models.TimetableSlot
	all      []models.TimetableSlot
	saved    []models.TimetableSlot
	deleted  []string
}

func (s *timetableStoreStub) ListByBatch(ctx context.Context, batchID string) ([]models.TimetableSlot, error) {
	matched := make([]models.TimetableSlot, 0)
	for _, slot := range s.existing {
		if slot.BatchID == batchID {
			matched = append(matched, slot)
		}
	}
	return matched, nil
}

func (s *timetableStoreStub) ListAll(ctx context.Context) ([]models.TimetableSlot, error) {
	return s.all, nil
}

func (s *timetableStoreStub) DeleteByBatchTx(ctx context.Context, tx *sqlx.Tx, batchID string) error {
	s.deleted = append(s.deleted, batchID)
	return nil
}

func (s *timetableStoreStub) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, slots []models.TimetableSlot) error {
	s.saved = append(s.saved, slots...)
	return nil
}

type auditSinkStub struct {
	actions []string
}

func (s *auditSinkStub) Record(ctx context.Context, action, table, recordID, details string) {
	s.actions = append(s.actions, action)
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

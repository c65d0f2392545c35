package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type assignmentRepoStub struct {
	byStaff  map[string][]models.StaffAssignmentDetail
	replaced []models.StaffAssignment
}

func (a *assignmentRepoStub) ReplaceForBatchTx(_ context.Context, _ *sqlx.Tx, _ string, assignments []models.StaffAssignment) error {
	a.replaced = assignments
	return nil
}

func (a *assignmentRepoStub) ListByStaff(_ context.Context, staffID string) ([]models.StaffAssignmentDetail, error) {
	return a.byStaff[staffID], nil
}

type availabilityRepoStub struct {
	byStaff  map[string][]models.Availability
	replaced []models.Availability
}

func (a *availabilityRepoStub) ReplaceForStaffTx(_ context.Context, _ *sqlx.Tx, _ string, windows []models.Availability) error {
	a.replaced = windows
	return nil
}

func (a *availabilityRepoStub) ListByStaff(_ context.Context, staffID string) ([]models.Availability, error) {
	return a.byStaff[staffID], nil
}

type staffFixture struct {
	service        *StaffService
	assignments    *assignmentRepoStub
	availabilities *availabilityRepoStub
	mock           sqlmock.Sqlmock
}

func newStaffFixture(t *testing.T) *staffFixture {
	assignments := &assignmentRepoStub{}
	availabilities := &availabilityRepoStub{}
	users := &userReaderStub{byID: map[string]*models.User{
		"staff-1": {ID: "staff-1", Role: models.RoleStaff, Active: true},
		"staff-2": {ID: "staff-2", Role: models.RoleStaff, Active: false},
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin, Active: true},
	}}
	subjects := &subjectRepoStub{byBatch: map[string][]models.Subject{
		"batch-1": {{ID: "sub-1", BatchID: "batch-1"}, {ID: "sub-2", BatchID: "batch-1"}},
	}}
	batches := &batchReaderStub{byID: map[string]*models.Batch{"batch-1": {ID: "batch-1"}}}
	slots := &detailReaderStub{byStaff: map[string][]models.TimetableSlotDetail{}}
	tx, mock := newTxProviderMock(t)

	service := NewStaffService(assignments, availabilities, users, subjects, batches, slots, tx, &auditSinkStub{}, nil, nil)
	return &staffFixture{
		service:        service,
		assignments:    assignments,
		availabilities: availabilities,
		mock:           mock,
	}
}

func TestStaffServiceAssignStaff(t *testing.T) {
	f := newStaffFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.service.AssignStaff(context.Background(), dto.AssignStaffRequest{
		BatchID: "batch-1",
		Assignments: []dto.StaffAssignmentRequest{
			{StaffID: "staff-1", SubjectID: "sub-1", AssignmentType: "primary"},
			{StaffID: "staff-1", SubjectID: "sub-2"},
		},
	})

	require.NoError(t, err)
	require.Len(t, f.assignments.replaced, 2)
	assert.Equal(t, models.AssignmentPrimary, f.assignments.replaced[1].AssignmentType, "missing type defaults to primary")
	assert.True(t, f.assignments.replaced[0].Active)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStaffServiceAssignStaffRejectsForeignSubject(t *testing.T) {
	f := newStaffFixture(t)

	err := f.service.AssignStaff(context.Background(), dto.AssignStaffRequest{
		BatchID: "batch-1",
		Assignments: []dto.StaffAssignmentRequest{
			{StaffID: "staff-1", SubjectID: "sub-other"},
		},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.assignments.replaced)
}

func TestStaffServiceAssignStaffRejectsInactiveStaff(t *testing.T) {
	f := newStaffFixture(t)

	err := f.service.AssignStaff(context.Background(), dto.AssignStaffRequest{
		BatchID: "batch-1",
		Assignments: []dto.StaffAssignmentRequest{
			{StaffID: "staff-2", SubjectID: "sub-1"},
		},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceAssignStaffUnknownStaff(t *testing.T) {
	f := newStaffFixture(t)

	err := f.service.AssignStaff(context.Background(), dto.AssignStaffRequest{
		BatchID: "batch-1",
		Assignments: []dto.StaffAssignmentRequest{
			{StaffID: "ghost", SubjectID: "sub-1"},
		},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceSetAvailability(t *testing.T) {
	f := newStaffFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.service.SetAvailability(context.Background(), dto.SetAvailabilityRequest{
		StaffID: "staff-1",
		Windows: []dto.AvailabilityWindow{
			{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: models.Tuesday, StartTime: "08:30", EndTime: "17:30"},
		},
	})

	require.NoError(t, err)
	require.Len(t, f.availabilities.replaced, 2)
	assert.True(t, f.availabilities.replaced[0].Available)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStaffServiceSetAvailabilityDuplicateDay(t *testing.T) {
	f := newStaffFixture(t)

	err := f.service.SetAvailability(context.Background(), dto.SetAvailabilityRequest{
		StaffID: "staff-1",
		Windows: []dto.AvailabilityWindow{
			{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: models.Monday, StartTime: "14:00", EndTime: "16:00"},
		},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.availabilities.replaced)
}

func TestStaffServiceSetAvailabilityInvertedWindow(t *testing.T) {
	f := newStaffFixture(t)

	err := f.service.SetAvailability(context.Background(), dto.SetAvailabilityRequest{
		StaffID: "staff-1",
		Windows: []dto.AvailabilityWindow{
			{DayOfWeek: models.Monday, StartTime: "12:00", EndTime: "09:00"},
		},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceSetAvailabilityRejectsAdmins(t *testing.T) {
	f := newStaffFixture(t)

	err := f.service.SetAvailability(context.Background(), dto.SetAvailabilityRequest{
		StaffID: "admin-1",
		Windows: []dto.AvailabilityWindow{
			{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"},
		},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceSchedule(t *testing.T) {
	f := newStaffFixture(t)
	f.assignments.byStaff = map[string][]models.StaffAssignmentDetail{
		"staff-1": {{StaffAssignment: models.StaffAssignment{ID: "as-1", StaffID: "staff-1"}}},
	}
	f.availabilities.byStaff = map[string][]models.Availability{
		"staff-1": {{StaffID: "staff-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"}},
	}

	resp, err := f.service.Schedule(context.Background(), "staff-1")

	require.NoError(t, err)
	assert.Equal(t, "staff-1", resp.StaffID)
	assert.Len(t, resp.Assignments, 1)
	assert.Len(t, resp.Availability, 1)
	assert.Zero(t, resp.Workload.TotalClasses)
}

func TestStaffServiceScheduleUnknownStaff(t *testing.T) {
	f := newStaffFixture(t)

	_, err := f.service.Schedule(context.Background(), "ghost")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

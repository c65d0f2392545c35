package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type roomRepoStub struct {
	byID    map[string]*models.Room
	created []*models.Room
	updated []*models.Room
}

func (r *roomRepoStub) Create(_ context.Context, room *models.Room) error {
	room.ID = "room-new"
	r.created = append(r.created, room)
	return nil
}

func (r *roomRepoStub) FindByID(_ context.Context, id string) (*models.Room, error) {
	room, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return room, nil
}

func (r *roomRepoStub) List(_ context.Context, _ models.RoomFilter) ([]models.Room, int, error) {
	return nil, 0, nil
}

func (r *roomRepoStub) Update(_ context.Context, room *models.Room) error {
	r.updated = append(r.updated, room)
	return nil
}

func TestRoomServiceCreateDefaultsToClassroom(t *testing.T) {
	repo := &roomRepoStub{}
	audit := &auditSinkStub{}
	svc := NewRoomService(repo, audit, nil, nil)

	room, err := svc.Create(context.Background(), dto.CreateRoomRequest{
		Name:     "Lecture Hall 1",
		Capacity: 120,
	})

	require.NoError(t, err)
	assert.Equal(t, "room-new", room.ID)
	assert.Equal(t, models.RoomClassroom, room.RoomType)
	assert.True(t, room.Active, "new rooms start active")
	assert.Contains(t, audit.actions, models.AuditActionCreate)
}

func TestRoomServiceCreateRejectsZeroCapacity(t *testing.T) {
	repo := &roomRepoStub{}
	svc := NewRoomService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateRoomRequest{Name: "Lab 2"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestRoomServiceGetNotFound(t *testing.T) {
	svc := NewRoomService(&roomRepoStub{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoomServiceSetActive(t *testing.T) {
	repo := &roomRepoStub{byID: map[string]*models.Room{
		"room-1": {ID: "room-1", Name: "Lab 1", Active: true},
	}}
	audit := &auditSinkStub{}
	svc := NewRoomService(repo, audit, nil, nil)

	room, err := svc.SetActive(context.Background(), "room-1", false)

	require.NoError(t, err)
	assert.False(t, room.Active)
	require.Len(t, repo.updated, 1)
	assert.Contains(t, audit.actions, models.AuditActionUpdate)
}

func TestRoomServiceSetActiveIsIdempotent(t *testing.T) {
	repo := &roomRepoStub{byID: map[string]*models.Room{
		"room-1": {ID: "room-1", Active: true},
	}}
	svc := NewRoomService(repo, nil, nil, nil)

	room, err := svc.SetActive(context.Background(), "room-1", true)

	require.NoError(t, err)
	assert.True(t, room.Active)
	assert.Empty(t, repo.updated, "no write when the flag already matches")
}

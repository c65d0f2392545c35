package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/service"
)

type roomRepoMock struct {
	byID    map[string]*models.Room
	created []*models.Room
	updated []*models.Room
}

func (r *roomRepoMock) Create(_ context.Context, room *models.Room) error {
	room.ID = "room-1"
	r.created = append(r.created, room)
	return nil
}

func (r *roomRepoMock) FindByID(_ context.Context, id string) (*models.Room, error) {
	room, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return room, nil
}

func (r *roomRepoMock) List(_ context.Context, _ models.RoomFilter) ([]models.Room, int, error) {
	return nil, 0, nil
}

func (r *roomRepoMock) Update(_ context.Context, room *models.Room) error {
	r.updated = append(r.updated, room)
	return nil
}

func newRoomHandlerFixture() (*RoomHandler, *roomRepoMock) {
	repo := &roomRepoMock{byID: map[string]*models.Room{}}
	return NewRoomHandler(service.NewRoomService(repo, nil, nil, nil)), repo
}

func TestRoomHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newRoomHandlerFixture()

	req, _ := http.NewRequest(http.MethodPost, "/rooms", bytes.NewReader([]byte(`{"name":"Lecture Hall 1","capacity":120}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)
	require.Equal(t, "Lecture Hall 1", repo.created[0].Name)
}

func TestRoomHandlerCreateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newRoomHandlerFixture()

	req, _ := http.NewRequest(http.MethodPost, "/rooms", bytes.NewReader([]byte(`{"name":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, repo.created)
}

func TestRoomHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newRoomHandlerFixture()

	router := gin.New()
	router.GET("/rooms/:id", handler.Get)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rooms/missing", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomHandlerSetActiveRequiresFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newRoomHandlerFixture()
	repo.byID["room-1"] = &models.Room{ID: "room-1", Active: true}

	router := gin.New()
	router.PATCH("/rooms/:id/active", handler.SetActive)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/rooms/room-1/active", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, repo.updated)
}

func TestRoomHandlerSetActive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newRoomHandlerFixture()
	repo.byID["room-1"] = &models.Room{ID: "room-1", Active: true}

	router := gin.New()
	router.PATCH("/rooms/:id/active", handler.SetActive)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/rooms/room-1/active", bytes.NewReader([]byte(`{"active":false}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.updated, 1)
	require.False(t, repo.updated[0].Active)
}

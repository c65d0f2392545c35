package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/service"
	"github.com/campuskit/timetable-api/pkg/config"
)

type timetableSlotRepoMock struct {
	byBatch map[string][]models.TimetableSlot
	updated []*models.TimetableSlot
}

func (r *timetableSlotRepoMock) ListByBatch(_ context.Context, batchID string) ([]models.TimetableSlot, error) {
	return r.byBatch[batchID], nil
}

func (r *timetableSlotRepoMock) ListAll(_ context.Context) ([]models.TimetableSlot, error) {
	var all []models.TimetableSlot
	for _, slots := range r.byBatch {
		all = append(all, slots...)
	}
	return all, nil
}

func (r *timetableSlotRepoMock) Update(_ context.Context, slot *models.TimetableSlot) error {
	r.updated = append(r.updated, slot)
	return nil
}

type timetableBatchReaderMock struct {
	byID map[string]*models.Batch
}

func (r *timetableBatchReaderMock) FindByID(_ context.Context, id string) (*models.Batch, error) {
	batch, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return batch, nil
}

type timetableRoomReaderMock struct {
	rooms []models.Room
}

func (r *timetableRoomReaderMock) ListActive(_ context.Context) ([]models.Room, error) {
	return r.rooms, nil
}

type timetableDetailReaderMock struct {
	byBatch map[string][]models.TimetableSlotDetail
}

func (r *timetableDetailReaderMock) ListDetail(_ context.Context, _ models.TimetableFilter) ([]models.TimetableSlotDetail, int, error) {
	return nil, 0, nil
}

func (r *timetableDetailReaderMock) ListDetailByBatch(_ context.Context, batchID string) ([]models.TimetableSlotDetail, error) {
	return r.byBatch[batchID], nil
}

func (r *timetableDetailReaderMock) ListDetailByStaff(_ context.Context, _ string) ([]models.TimetableSlotDetail, error) {
	return nil, nil
}

type timetableUserReaderMock struct{}

func (r *timetableUserReaderMock) FindByID(_ context.Context, _ string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func newTimetableHandlerFixture() (*TimetableHandler, *timetableSlotRepoMock, *timetableDetailReaderMock) {
	slots := &timetableSlotRepoMock{byBatch: map[string][]models.TimetableSlot{}}
	details := &timetableDetailReaderMock{byBatch: map[string][]models.TimetableSlotDetail{}}
	batches := &timetableBatchReaderMock{byID: map[string]*models.Batch{
		"batch-1": {
			ID:        "batch-1",
			Name:      "CSE Y1 S1",
			StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 5, 29, 0, 0, 0, 0, time.UTC),
			Active:    true,
		},
	}}

	conflicts := service.NewConflictService(slots, batches, &timetableRoomReaderMock{}, nil, config.SchedulerConfig{}, nil)
	timetables := service.NewTimetableService(details, batches, &timetableUserReaderMock{}, nil, 0, nil)
	exports := service.NewExportService(details, batches, nil, nil, nil, service.ExportServiceConfig{}, nil)

	return NewTimetableHandler(nil, conflicts, timetables, exports, nil), slots, details
}

func clashingSlots() []models.TimetableSlot {
	return []models.TimetableSlot{
		{
			ID:            "slot-1",
			BatchID:       "batch-1",
			SubjectID:     "sub-1",
			ComponentType: models.ComponentLecture,
			DayOfWeek:     "monday",
			StartTime:     "09:00",
			EndTime:       "10:00",
			RoomID:        "room-1",
			StaffID:       "staff-1",
		},
		{
			ID:            "slot-2",
			BatchID:       "batch-1",
			SubjectID:     "sub-2",
			ComponentType: models.ComponentTutorial,
			DayOfWeek:     "monday",
			StartTime:     "09:30",
			EndTime:       "10:30",
			RoomID:        "room-2",
			StaffID:       "staff-1",
		},
	}
}

func TestTimetableHandlerConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, slots, _ := newTimetableHandlerFixture()
	slots.byBatch["batch-1"] = clashingSlots()

	router := gin.New()
	router.GET("/timetable/conflicts/:batchId", handler.Conflicts)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/conflicts/batch-1", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "TIME_OVERLAP")
	require.Contains(t, w.Body.String(), "STAFF_CONFLICT")
	require.Contains(t, w.Body.String(), "2 conflicts detected")
}

func TestTimetableHandlerConflictsUnknownBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newTimetableHandlerFixture()

	router := gin.New()
	router.GET("/timetable/conflicts/:batchId", handler.Conflicts)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/conflicts/missing", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerResolveInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, slots, _ := newTimetableHandlerFixture()

	req, _ := http.NewRequest(http.MethodPost, "/timetable/conflicts/resolve", bytes.NewReader([]byte(`{"batchId":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Resolve(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, slots.updated)
}

func TestTimetableHandlerResolveDetectionOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, slots, _ := newTimetableHandlerFixture()
	slots.byBatch["batch-1"] = clashingSlots()

	router := gin.New()
	router.POST("/timetable/conflicts/resolve", handler.Resolve)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/conflicts/resolve", bytes.NewReader([]byte(`{"batchId":"batch-1","autoResolve":false}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "auto-resolve disabled")
	require.Empty(t, slots.updated)
}

func TestTimetableHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, details := newTimetableHandlerFixture()
	details.byBatch["batch-1"] = []models.TimetableSlotDetail{
		{
			TimetableSlot: models.TimetableSlot{
				ID:            "slot-1",
				BatchID:       "batch-1",
				ComponentType: models.ComponentLecture,
				DayOfWeek:     "monday",
				StartTime:     "09:00",
				EndTime:       "10:00",
			},
			SubjectCode: "CS101",
			SubjectName: "Data Structures",
			BatchName:   "CSE Y1 S1",
			RoomName:    "Lecture Hall 1",
			StaffName:   "Jordan Lee",
		},
	}

	router := gin.New()
	router.GET("/timetable/export/:batchId", handler.Export)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/export/batch-1?format=csv", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=")
	require.Contains(t, w.Body.String(), "Data Structures")
}

func TestTimetableHandlerExportEmptyTimetable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newTimetableHandlerFixture()

	router := gin.New()
	router.GET("/timetable/export/:batchId", handler.Export)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/export/batch-1?format=csv", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

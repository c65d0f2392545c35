package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

func newExportFixture(rows []models.TimetableSlotDetail) *ExportService {
	batches := &batchReaderStub{byID: map[string]*models.Batch{
		"batch-1": {
			ID:           "batch-1",
			Name:         "CSE Y1 S1",
			AcademicYear: 1,
			Semester:     1,
			StartDate:    time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2026, time.May, 29, 0, 0, 0, 0, time.UTC),
		},
	}}
	slots := &detailReaderStub{byBatch: map[string][]models.TimetableSlotDetail{"batch-1": rows}}
	return NewExportService(slots, batches, nil, nil, nil, ExportServiceConfig{InstitutionName: "CampusKit"}, nil)
}

func exportRows() []models.TimetableSlotDetail {
	return []models.TimetableSlotDetail{
		detailSlot("s1", "batch-1", "staff-1", models.Monday, "08:30", "09:30", models.ComponentLecture),
		detailSlot("s2", "batch-1", "staff-1", models.Tuesday, "10:30", "11:30", models.ComponentTutorial),
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := newExportFixture(exportRows())

	file, err := svc.Export(context.Background(), "batch-1", ExportFormatCSV)

	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "timetable_cse_y1_s1_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	body := string(file.Payload)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3, "header plus one line per slot")
	assert.Equal(t, "Day,Start,End,Subject,Component,Staff,Room", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Monday")
	assert.Contains(t, lines[1], "CS101 Data Structures")
	assert.Contains(t, lines[2], "Tuesday")
}

func TestExportServicePDF(t *testing.T) {
	svc := newExportFixture(exportRows())

	file, err := svc.Export(context.Background(), "batch-1", ExportFormatPDF)

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	require.True(t, len(file.Payload) > 4)
	assert.Equal(t, "%PDF", string(file.Payload[:4]))
}

func TestExportServiceICS(t *testing.T) {
	svc := newExportFixture(exportRows())

	file, err := svc.Export(context.Background(), "batch-1", ExportFormatICS)

	require.NoError(t, err)
	assert.Equal(t, "text/calendar", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".ics"))

	body := string(file.Payload)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Data Structures (lecture)")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;BYDAY=MO;UNTIL=20260529T235959Z")
	// Batch starts Monday 2026-01-05, so the lecture's first occurrence is that day.
	assert.Contains(t, body, "DTSTART:20260105T083000")
}

func TestExportServiceEmptyTimetable(t *testing.T) {
	svc := newExportFixture(nil)

	_, err := svc.Export(context.Background(), "batch-1", ExportFormatCSV)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestExportServiceBatchNotFound(t *testing.T) {
	svc := newExportFixture(exportRows())

	_, err := svc.Export(context.Background(), "missing", ExportFormatCSV)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := newExportFixture(exportRows())

	_, err := svc.Export(context.Background(), "batch-1", ExportFormat("xlsx"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

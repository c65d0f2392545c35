package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/export"
)

// ExportFormat names a supported timetable download format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
	ExportFormatICS ExportFormat = "ics"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type icsRenderer interface {
	Render(name string, events []export.ICSEvent) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportServiceConfig tunes exports.
type ExportServiceConfig struct {
	InstitutionName string
	ICSCalendarName string
}

// ExportService renders a batch's timetable as CSV, PDF, or an ICS calendar.
type ExportService struct {
	slots   timetableDetailReader
	batches timetableBatchReader
	csv     csvRenderer
	pdf     pdfRenderer
	ics     icsRenderer
	cfg     ExportServiceConfig
	logger  *zap.Logger
}

// NewExportService constructs an ExportService with default renderers for
// any left nil.
func NewExportService(
	slots timetableDetailReader,
	batches timetableBatchReader,
	csv csvRenderer,
	pdf pdfRenderer,
	ics icsRenderer,
	cfg ExportServiceConfig,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter("")
	}
	return &ExportService{
		slots:   slots,
		batches: batches,
		csv:     csv,
		pdf:     pdf,
		ics:     ics,
		cfg:     cfg,
		logger:  logger,
	}
}

// Export renders the batch timetable in the requested format.
func (s *ExportService) Export(ctx context.Context, batchID string, format ExportFormat) (*ExportFile, error) {
	if batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch id is required")
	}

	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	rows, err := s.slots.ListDetailByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch timetable")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "batch has no timetable to export")
	}
	sortDetails(rows)

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(buildDataset(rows))
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(buildDataset(rows), s.pdfTitle(batch))
		contentType = "application/pdf"
	case ExportFormatICS:
		payload, err = s.ics.Render(s.calendarName(batch), buildICSEvents(batch, rows))
		contentType = "text/calendar"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    exportFilename(batch.Name, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func (s *ExportService) pdfTitle(batch *models.Batch) string {
	title := fmt.Sprintf("Timetable %s (%d S%d)", batch.Name, batch.AcademicYear, batch.Semester)
	if s.cfg.InstitutionName != "" {
		title = s.cfg.InstitutionName + " - " + title
	}
	return title
}

func (s *ExportService) calendarName(batch *models.Batch) string {
	if s.cfg.ICSCalendarName != "" {
		return s.cfg.ICSCalendarName + " " + batch.Name
	}
	return "Timetable " + batch.Name
}

func buildDataset(rows []models.TimetableSlotDetail) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Subject", "Component", "Staff", "Room"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":       titleDay(row.DayOfWeek),
			"Start":     row.StartTime,
			"End":       row.EndTime,
			"Subject":   fmt.Sprintf("%s %s", row.SubjectCode, row.SubjectName),
			"Component": string(row.ComponentType),
			"Staff":     row.StaffName,
			"Room":      row.RoomName,
		})
	}
	return dataset
}

func titleDay(day string) string {
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + day[1:]
}

var icsWeekdays = map[string]time.Weekday{
	models.Monday:    time.Monday,
	models.Tuesday:   time.Tuesday,
	models.Wednesday: time.Wednesday,
	models.Thursday:  time.Thursday,
	models.Friday:    time.Friday,
	models.Saturday:  time.Saturday,
	models.Sunday:    time.Sunday,
}

func buildICSEvents(batch *models.Batch, rows []models.TimetableSlotDetail) []export.ICSEvent {
	events := make([]export.ICSEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, export.ICSEvent{
			Summary:     fmt.Sprintf("%s (%s)", row.SubjectName, row.ComponentType),
			Description: fmt.Sprintf("%s taught by %s", row.SubjectCode, row.StaffName),
			Location:    row.RoomName,
			Weekday:     icsWeekdays[row.DayOfWeek],
			StartClock:  row.StartTime,
			EndClock:    row.EndTime,
			RangeStart:  batch.StartDate,
			RangeEnd:    batch.EndDate,
		})
	}
	return events
}

func exportFilename(batchName string, format ExportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	name := strings.ToLower(strings.ReplaceAll(batchName, " ", "_"))
	return fmt.Sprintf("timetable_%s_%s.%s", name, timestamp, format)
}

package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ICSEvent describes one weekly recurring calendar entry.
type ICSEvent struct {
	Summary     string
	Description string
	Location    string
	// Weekday of the recurring session.
	Weekday time.Weekday
	// StartClock and EndClock are "HH:MM" wall-clock values.
	StartClock string
	EndClock   string
	// RangeStart and RangeEnd bound the recurrence (batch date range).
	RangeStart time.Time
	RangeEnd   time.Time
}

// ICSExporter renders RFC 5545 calendars with weekly RRULE events.
type ICSExporter struct {
	ProdID string
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter(prodID string) *ICSExporter {
	if prodID == "" {
		prodID = "-//Campuskit//Timetable//EN"
	}
	return &ICSExporter{ProdID: prodID}
}

var icsByDay = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// Render produces the calendar bytes for the given events.
func (e *ICSExporter) Render(name string, events []ICSEvent) ([]byte, error) {
	buf := &bytes.Buffer{}
	writeLine := func(line string) {
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:" + e.ProdID)
	if name != "" {
		writeLine("X-WR-CALNAME:" + escapeICSText(name))
	}

	for _, event := range events {
		first, err := firstOccurrence(event.RangeStart, event.Weekday)
		if err != nil {
			return nil, err
		}
		dtStart, err := icsDateTime(first, event.StartClock)
		if err != nil {
			return nil, fmt.Errorf("event %q start: %w", event.Summary, err)
		}
		dtEnd, err := icsDateTime(first, event.EndClock)
		if err != nil {
			return nil, fmt.Errorf("event %q end: %w", event.Summary, err)
		}

		writeLine("BEGIN:VEVENT")
		writeLine("UID:" + uuid.NewString())
		writeLine("SUMMARY:" + escapeICSText(event.Summary))
		if event.Description != "" {
			writeLine("DESCRIPTION:" + escapeICSText(event.Description))
		}
		if event.Location != "" {
			writeLine("LOCATION:" + escapeICSText(event.Location))
		}
		writeLine("DTSTART:" + dtStart)
		writeLine("DTEND:" + dtEnd)
		writeLine(fmt.Sprintf("RRULE:FREQ=WEEKLY;BYDAY=%s;UNTIL=%sT235959Z",
			icsByDay[event.Weekday], event.RangeEnd.Format("20060102")))
		writeLine("END:VEVENT")
	}

	writeLine("END:VCALENDAR")
	return buf.Bytes(), nil
}

// firstOccurrence returns the first date on or after start that falls on the weekday.
func firstOccurrence(start time.Time, weekday time.Weekday) (time.Time, error) {
	if start.IsZero() {
		return time.Time{}, fmt.Errorf("event range start is required")
	}
	delta := (int(weekday) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, delta), nil
}

func icsDateTime(date time.Time, clock string) (string, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("invalid clock value %q", clock)
	}
	return date.Format("20060102") + "T" + parsed.Format("150405"), nil
}

func escapeICSText(raw string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return replacer.Replace(raw)
}

package service

import (
	"fmt"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/pkg/config"
)

// blockMinutes is the fixed allocation unit: every scheduled slot occupies
// exactly one 1-hour block.
const blockMinutes = 60

// timeGrid holds the institutional teaching windows the allocator searches.
// Clock values are zero-padded "HH:MM" strings, so lexical comparison matches
// temporal comparison and map keys stay cheap.
type timeGrid struct {
	weekdayStart string
	weekdayEnd   string
	weekendStart string
	weekendEnd   string
}

func newTimeGrid(cfg config.SchedulerConfig) timeGrid {
	grid := timeGrid{
		weekdayStart: cfg.WeekdayStart,
		weekdayEnd:   cfg.WeekdayEnd,
		weekendStart: cfg.WeekendStart,
		weekendEnd:   cfg.WeekendEnd,
	}
	if grid.weekdayStart == "" {
		grid.weekdayStart = "08:30"
	}
	if grid.weekdayEnd == "" {
		grid.weekdayEnd = "17:30"
	}
	if grid.weekendStart == "" {
		grid.weekendStart = "08:30"
	}
	if grid.weekendEnd == "" {
		grid.weekendEnd = "20:00"
	}
	return grid
}

// batchGrid narrows the base grid to a batch's own stored bounds. Empty
// bounds keep the institutional default, so partially configured batches
// still get a full window.
func batchGrid(base timeGrid, batch *models.Batch) timeGrid {
	grid := base
	if batch.WeekdayStart != "" {
		grid.weekdayStart = batch.WeekdayStart
	}
	if batch.WeekdayEnd != "" {
		grid.weekdayEnd = batch.WeekdayEnd
	}
	if batch.WeekendStart != "" {
		grid.weekendStart = batch.WeekendStart
	}
	if batch.WeekendEnd != "" {
		grid.weekendEnd = batch.WeekendEnd
	}
	return grid
}

// window returns the search bounds for the given day-of-week.
func (g timeGrid) window(day string) (string, string) {
	if day == models.Saturday || day == models.Sunday {
		return g.weekendStart, g.weekendEnd
	}
	return g.weekdayStart, g.weekdayEnd
}

// hourBlocks returns the candidate [start, end) 1-hour blocks for a day,
// in search order from the window start.
func (g timeGrid) hourBlocks(day string) [][2]string {
	start, end := g.window(day)
	var blocks [][2]string
	for cur := start; cur < end; {
		next := addMinutes(cur, blockMinutes)
		if next > end {
			break
		}
		blocks = append(blocks, [2]string{cur, next})
		cur = next
	}
	return blocks
}

// fitsWindow reports whether [start, end) lies inside the day's window.
func (g timeGrid) fitsWindow(day, start, end string) bool {
	winStart, winEnd := g.window(day)
	return start >= winStart && end <= winEnd
}

// requiredBlocks maps a component duration in minutes to its 1-hour block
// count, clamped to [1, 2]. A 90-minute class still reserves a single block;
// this mirrors the institutional convention rather than rounding up.
func requiredBlocks(duration int) int {
	blocks := duration / 60
	if blocks < 1 {
		return 1
	}
	if blocks > 2 {
		return 2
	}
	return blocks
}

// overlaps applies the half-open interval predicate to two clock ranges.
func overlaps(start1, end1, start2, end2 string) bool {
	return start1 < end2 && end1 > start2
}

func clockToMinutes(clock string) int {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0
	}
	return h*60 + m
}

func minutesToClock(total int) string {
	total %= 24 * 60
	if total < 0 {
		total += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func addMinutes(clock string, delta int) string {
	return minutesToClock(clockToMinutes(clock) + delta)
}

// clockDiffHours returns the span of [start, end) in hours.
func clockDiffHours(start, end string) float64 {
	diff := clockToMinutes(end) - clockToMinutes(start)
	if diff < 0 {
		return 0
	}
	return float64(diff) / 60
}

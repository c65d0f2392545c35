package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/pkg/config"
)

func TestTimeGridWindows(t *testing.T) {
	grid := newTimeGrid(config.SchedulerConfig{})

	start, end := grid.window(models.Wednesday)
	assert.Equal(t, "08:30", start)
	assert.Equal(t, "17:30", end)

	start, end = grid.window(models.Saturday)
	assert.Equal(t, "08:30", start)
	assert.Equal(t, "20:00", end)
}

func TestTimeGridHourBlocks(t *testing.T) {
	grid := newTimeGrid(config.SchedulerConfig{})

	weekday := grid.hourBlocks(models.Monday)
	assert.Len(t, weekday, 9)
	assert.Equal(t, [2]string{"08:30", "09:30"}, weekday[0])
	assert.Equal(t, [2]string{"16:30", "17:30"}, weekday[len(weekday)-1])

	weekend := grid.hourBlocks(models.Sunday)
	assert.Len(t, weekend, 11)
	assert.Equal(t, [2]string{"18:30", "19:30"}, weekend[len(weekend)-1])
}

func TestRequiredBlocks(t *testing.T) {
	cases := []struct {
		duration int
		want     int
	}{
		{60, 1},
		{90, 1},
		{120, 2},
		{150, 2},
		{180, 2},
		{30, 1},
		{0, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, requiredBlocks(tc.duration), "duration %d", tc.duration)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	assert.True(t, overlaps("09:00", "10:00", "09:30", "10:30"))
	assert.True(t, overlaps("09:00", "11:00", "09:30", "10:30"))
	assert.False(t, overlaps("09:00", "10:00", "10:00", "11:00"), "touching intervals do not overlap")
	assert.False(t, overlaps("09:00", "10:00", "11:00", "12:00"))
}

func TestClockArithmetic(t *testing.T) {
	assert.Equal(t, "10:30", addMinutes("09:30", 60))
	assert.Equal(t, "09:00", addMinutes("08:30", 30))
	assert.InDelta(t, 1.5, clockDiffHours("09:00", "10:30"), 0.001)
}

func TestFitsWindow(t *testing.T) {
	grid := newTimeGrid(config.SchedulerConfig{})

	assert.True(t, grid.fitsWindow(models.Monday, "16:30", "17:30"))
	assert.False(t, grid.fitsWindow(models.Monday, "17:00", "18:00"))
	assert.True(t, grid.fitsWindow(models.Saturday, "19:00", "20:00"))
}

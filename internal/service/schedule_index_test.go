package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campuskit/timetable-api/internal/models"
)

func indexSlot(id, batch, staff, room, day, start, end string) models.TimetableSlot {
	return models.TimetableSlot{
		ID:        id,
		BatchID:   batch,
		StaffID:   staff,
		RoomID:    room,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
	}
}

func TestScheduleIndexOccupyAndBusy(t *testing.T) {
	slot := indexSlot("s1", "batch-1", "staff-1", "room-1", models.Monday, "09:30", "10:30")
	idx := buildScheduleIndex([]models.TimetableSlot{slot})

	assert.True(t, idx.BatchBusy("batch-1", models.Monday, "09:30", "10:30", ""))
	assert.True(t, idx.StaffBusy("staff-1", models.Monday, "10:00", "11:00", ""))
	assert.True(t, idx.RoomBusy("room-1", models.Monday, "09:00", "10:00", ""))

	assert.False(t, idx.BatchBusy("batch-1", models.Tuesday, "09:30", "10:30", ""), "other day is free")
	assert.False(t, idx.BatchBusy("batch-1", models.Monday, "10:30", "11:30", ""), "adjacent interval is free")
	assert.False(t, idx.BatchBusy("batch-2", models.Monday, "09:30", "10:30", ""), "other batch is free")
}

func TestScheduleIndexExcludeSlot(t *testing.T) {
	slot := indexSlot("s1", "batch-1", "staff-1", "room-1", models.Monday, "09:30", "10:30")
	idx := buildScheduleIndex([]models.TimetableSlot{slot})

	assert.False(t, idx.BatchBusy("batch-1", models.Monday, "09:30", "10:30", "s1"),
		"a slot does not collide with itself")
	assert.True(t, idx.BatchBusy("batch-1", models.Monday, "09:30", "10:30", "s2"))
}

func TestScheduleIndexRelease(t *testing.T) {
	slot := indexSlot("s1", "batch-1", "staff-1", "room-1", models.Monday, "09:30", "10:30")
	idx := buildScheduleIndex([]models.TimetableSlot{slot})

	idx.Release(&slot)
	assert.False(t, idx.BatchBusy("batch-1", models.Monday, "09:30", "10:30", ""))
	assert.False(t, idx.StaffBusy("staff-1", models.Monday, "09:30", "10:30", ""))
	assert.False(t, idx.RoomBusy("room-1", models.Monday, "09:30", "10:30", ""))
}

func TestScheduleIndexEmptyDimensionsSkipped(t *testing.T) {
	slot := indexSlot("s1", "batch-1", "", "", models.Monday, "09:30", "10:30")
	idx := buildScheduleIndex([]models.TimetableSlot{slot})

	assert.True(t, idx.BatchBusy("batch-1", models.Monday, "09:30", "10:30", ""))
	assert.False(t, idx.StaffBusy("", models.Monday, "09:30", "10:30", ""))
	assert.False(t, idx.RoomBusy("", models.Monday, "09:30", "10:30", ""))
}

func TestScheduleIndexMoveSlot(t *testing.T) {
	slot := indexSlot("s1", "batch-1", "staff-1", "room-1", models.Monday, "09:30", "10:30")
	idx := buildScheduleIndex([]models.TimetableSlot{slot})

	idx.Release(&slot)
	slot.DayOfWeek = models.Tuesday
	idx.Occupy(&slot)

	assert.False(t, idx.BatchBusy("batch-1", models.Monday, "09:30", "10:30", ""))
	assert.True(t, idx.BatchBusy("batch-1", models.Tuesday, "09:30", "10:30", ""))
}

package service

import "github.com/campuskit/timetable-api/internal/models"

// occupation is one reserved interval on a single day, tagged with the slot
// that owns it so the resolver can exclude a slot from its own lookups.
type occupation struct {
	SlotID string
	Start  string
	End    string
}

// scheduleIndex is the occupancy view the allocator, detector, and resolver
// all consult. It keys busy intervals three ways: per batch, per staff member,
// and per room, each bucketed by day-of-week. It is rebuilt from slots for a
// detection pass and mutated incrementally during generation so every
// placement sees all earlier placements.
type scheduleIndex struct {
	batch map[string]map[string][]occupation
	staff map[string]map[string][]occupation
	room  map[string]map[string][]occupation
}

func newScheduleIndex() *scheduleIndex {
	return &scheduleIndex{
		batch: make(map[string]map[string][]occupation),
		staff: make(map[string]map[string][]occupation),
		room:  make(map[string]map[string][]occupation),
	}
}

// buildScheduleIndex indexes the given slots. Slots with an empty staff or
// room reference simply skip that dimension.
func buildScheduleIndex(slots []models.TimetableSlot) *scheduleIndex {
	idx := newScheduleIndex()
	for i := range slots {
		idx.Occupy(&slots[i])
	}
	return idx
}

func occupy(dim map[string]map[string][]occupation, key string, slot *models.TimetableSlot) {
	if key == "" {
		return
	}
	days, ok := dim[key]
	if !ok {
		days = make(map[string][]occupation)
		dim[key] = days
	}
	days[slot.DayOfWeek] = append(days[slot.DayOfWeek], occupation{
		SlotID: slot.ID,
		Start:  slot.StartTime,
		End:    slot.EndTime,
	})
}

func release(dim map[string]map[string][]occupation, key string, slot *models.TimetableSlot) {
	if key == "" {
		return
	}
	days, ok := dim[key]
	if !ok {
		return
	}
	occs := days[slot.DayOfWeek]
	for i := range occs {
		if occs[i].SlotID == slot.ID && occs[i].Start == slot.StartTime && occs[i].End == slot.EndTime {
			days[slot.DayOfWeek] = append(occs[:i:i], occs[i+1:]...)
			return
		}
	}
}

// Occupy registers the slot's interval in every dimension it references.
func (x *scheduleIndex) Occupy(slot *models.TimetableSlot) {
	occupy(x.batch, slot.BatchID, slot)
	occupy(x.staff, slot.StaffID, slot)
	occupy(x.room, slot.RoomID, slot)
}

// Release removes the slot's interval from every dimension. Used by the
// resolver before re-registering a moved slot.
func (x *scheduleIndex) Release(slot *models.TimetableSlot) {
	release(x.batch, slot.BatchID, slot)
	release(x.staff, slot.StaffID, slot)
	release(x.room, slot.RoomID, slot)
}

func busy(dim map[string]map[string][]occupation, key, day, start, end, excludeSlot string) bool {
	days, ok := dim[key]
	if !ok {
		return false
	}
	for _, occ := range days[day] {
		if excludeSlot != "" && occ.SlotID == excludeSlot {
			continue
		}
		if overlaps(start, end, occ.Start, occ.End) {
			return true
		}
	}
	return false
}

// BatchBusy reports whether the batch has any occupation overlapping
// [start, end) on the given day, excluding the named slot if non-empty.
func (x *scheduleIndex) BatchBusy(batchID, day, start, end, excludeSlot string) bool {
	return busy(x.batch, batchID, day, start, end, excludeSlot)
}

func (x *scheduleIndex) StaffBusy(staffID, day, start, end, excludeSlot string) bool {
	return busy(x.staff, staffID, day, start, end, excludeSlot)
}

func (x *scheduleIndex) RoomBusy(roomID, day, start, end, excludeSlot string) bool {
	return busy(x.room, roomID, day, start, end, excludeSlot)
}

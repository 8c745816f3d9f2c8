package model

import (
	"fmt"
	"strconv"
	"strings"
)

type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (day Day) String() string {
	if day < Monday || day > Saturday {
		return fmt.Sprintf("Day(%d)", int(day))
	}
	return dayNames[day]
}

func (day Day) MarshalText() ([]byte, error) {
	if day < Monday || day > Saturday {
		return nil, fmt.Errorf("invalid day %d", int(day))
	}
	return []byte(dayNames[day]), nil
}

func (day *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*day = parsed
	return nil
}

func ParseDay(value string) (Day, error) {
	for i, name := range dayNames {
		if strings.EqualFold(name, value) || strings.EqualFold(name[:3], value) {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", value)
}

// Clock is a time of day in minutes since midnight.
type Clock int

func ParseClock(value string) (Clock, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("malformed time %q: expected HH:MM", value)
	}
	hours, err := strconv.Atoi(value[:2])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("malformed time %q: invalid hour", value)
	}
	minutes, err := strconv.Atoi(value[3:])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("malformed time %q: invalid minute", value)
	}
	return Clock(hours*60 + minutes), nil
}

func (clock Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(clock)/60, int(clock)%60)
}

func (clock Clock) MarshalText() ([]byte, error) {
	return []byte(clock.String()), nil
}

func (clock *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*clock = parsed
	return nil
}

// TimeSlot is one band of the weekly grid.
type TimeSlot struct {
	ID        string `json:"id"`
	Day       Day    `json:"day"`
	Index     int    `json:"index"`
	Start     Clock  `json:"start"`
	End       Clock  `json:"end"`
	Lunch     bool   `json:"lunch,omitempty"`
	Afternoon bool   `json:"afternoon,omitempty"`
}

func (slot TimeSlot) String() string {
	return fmt.Sprintf("%v %v", slot.Day, slot.ID)
}

func slotID(start, end Clock) string {
	return fmt.Sprintf("%v-%v", start, end)
}

const DefaultBandMinutes = 60

// Grid is the weekly grid of one generation run. Every working day shares the same bands.
type Grid struct {
	Days  []Day
	Bands []TimeSlot // Bands of a single day, Day is left as Monday
	Slots []TimeSlot // Day-major ordering of every band
}

// GenerateWeeklySlots is the ordered sequence of bands for every working day.
func GenerateWeeklySlots(constraints Constraints, bandMinutes int) ([]TimeSlot, error) {
	grid, err := NewGrid(constraints, bandMinutes)
	if err != nil {
		return nil, err
	}
	return grid.Slots, nil
}

func GenerateWeeklySlotsDefault(constraints Constraints) ([]TimeSlot, error) {
	return GenerateWeeklySlots(constraints, DefaultBandMinutes)
}

func NewGrid(constraints Constraints, bandMinutes int) (Grid, error) {
	if bandMinutes <= 0 {
		return Grid{}, &ValidationError{Field: "bandMinutes", Reason: "must be greater than 0"}
	}
	start, end, err := constraints.window()
	if err != nil {
		return Grid{}, err
	}
	if int(end-start) < bandMinutes {
		return Grid{}, &ValidationError{Field: "endTime", Reason: fmt.Sprintf("window %v-%v cannot hold a %d minute band", start, end, bandMinutes)}
	}

	//** Place the lunch band at the band start nearest the midpoint (ties go to the earlier one)
	band := Clock(bandMinutes)
	distance := (end - start) / 2
	steps := distance / band
	if (steps+1)*band-distance < distance-steps*band {
		steps++
	}
	lunchAt := start + steps*band
	lunchDuration := Clock(constraints.LunchBreakDuration)

	//** Build a single day's bands
	bands := make([]TimeSlot, 0)
	lunchDone := lunchDuration == 0
	for current := start; current < end; {
		if !lunchDone && current == lunchAt {
			lunchEnd := min(current+lunchDuration, end)
			bands = append(bands, TimeSlot{
				ID:    slotID(current, lunchEnd),
				Index: len(bands),
				Start: current,
				End:   lunchEnd,
				Lunch: true,
			})
			current = lunchEnd
			lunchDone = true
			continue
		}
		if current+band > end {
			break
		}
		bands = append(bands, TimeSlot{
			ID:        slotID(current, current+band),
			Index:     len(bands),
			Start:     current,
			End:       current + band,
			Afternoon: current >= lunchAt,
		})
		current += band
	}

	//** Replicate bands for every working day
	days := constraints.Days()
	slots := make([]TimeSlot, 0, len(days)*len(bands))
	for _, day := range days {
		for _, band := range bands {
			band.Day = day
			slots = append(slots, band)
		}
	}

	return Grid{Days: days, Bands: bands, Slots: slots}, nil
}

// Slot is the band at the given index of the given day.
func (grid Grid) Slot(day Day, index int) TimeSlot {
	slot := grid.Bands[index]
	slot.Day = day
	return slot
}

// Cell is the flat, day-major position of (day, band index), -1 if the day is not a working day.
func (grid Grid) Cell(day Day, index int) int {
	for i, working := range grid.Days {
		if working == day {
			return i*len(grid.Bands) + index
		}
	}
	return -1
}

func (grid Grid) FindBand(slotID string) (int, bool) {
	for i, band := range grid.Bands {
		if band.ID == slotID {
			return i, true
		}
	}
	return 0, false
}

// Resolve maps a SlotRef to its band index.
func (grid Grid) Resolve(ref SlotRef) (int, bool) {
	start, err := ParseClock(ref.Start)
	if err != nil {
		return 0, false
	}
	for i, band := range grid.Bands {
		if band.Start == start {
			return i, true
		}
	}
	return 0, false
}

// Contiguous reports whether a session of the given length may start at the band index
// without leaving the day or crossing the lunch band.
func (grid Grid) Contiguous(index, length int) bool {
	if index < 0 || index+length > len(grid.Bands) {
		return false
	}
	for i := index; i < index+length; i++ {
		if grid.Bands[i].Lunch {
			return false
		}
		if i > index && grid.Bands[i].Start != grid.Bands[i-1].End {
			return false
		}
	}
	return true
}

// BackToBack reports whether band index b directly follows band index a with a gap no longer than minBreak.
func (grid Grid) BackToBack(a, b int, minBreak int) bool {
	if a > b {
		a, b = b, a
	}
	if a < 0 || b >= len(grid.Bands) || b != a+1 {
		return false
	}
	first, second := grid.Bands[a], grid.Bands[b]
	if first.Lunch || second.Lunch {
		return false
	}
	return int(second.Start-first.End) <= minBreak
}

func (grid Grid) TeachingBands() int {
	count := 0
	for _, band := range grid.Bands {
		if !band.Lunch {
			count++
		}
	}
	return count
}

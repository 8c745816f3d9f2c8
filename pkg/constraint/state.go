package constraint

import (
	"fmt"

	"github.com/limaJavier/campus-timetabling/pkg/availability"
	"github.com/limaJavier/campus-timetabling/pkg/model"
)

// Placement assigns a demand item to a faculty member, a room and the span of bands starting at Band.
type Placement struct {
	Item      model.DemandItem
	FacultyID string
	RoomID    string
	Day       model.Day
	Band      int
}

func (placement Placement) String() string {
	return fmt.Sprintf("%v -> faculty %v, room %v, %v band %d", placement.Item, placement.FacultyID, placement.RoomID, placement.Day, placement.Band)
}

// Key identifies the placement regardless of the demand item.
func (placement Placement) Key() string {
	return fmt.Sprintf("%v|%v|%d|%d", placement.FacultyID, placement.RoomID, placement.Day, placement.Band)
}

// Slots lists the grid bands covered by the placement.
func (placement Placement) Slots(grid model.Grid) []model.TimeSlot {
	slots := make([]model.TimeSlot, 0, placement.Item.Length)
	for band := placement.Band; band < placement.Band+placement.Item.Length && band < len(grid.Bands); band++ {
		slots = append(slots, grid.Slot(placement.Day, band))
	}
	return slots
}

type dayKey struct {
	id  string
	day model.Day
}

type subjectDayKey struct {
	batch   string
	subject string
	day     model.Day
}

type courseKey struct {
	subject string
	batch   string
}

// State is the committed partial assignment of one generation run.
type State struct {
	grid  model.Grid
	index availability.Index

	facultyBands map[dayKey]map[int]bool
	batchBands   map[dayKey]map[int]string // Band to room
	facultyWeek  map[string]int
	batchWeek    map[string]int
	subjectDay   map[subjectDayKey]int
	teachers     map[courseKey]map[string]int
}

func NewState(grid model.Grid) *State {
	return &State{
		grid:         grid,
		index:        availability.NewIndex(),
		facultyBands: make(map[dayKey]map[int]bool),
		batchBands:   make(map[dayKey]map[int]string),
		facultyWeek:  make(map[string]int),
		batchWeek:    make(map[string]int),
		subjectDay:   make(map[subjectDayKey]int),
		teachers:     make(map[courseKey]map[string]int),
	}
}

func (state *State) Grid() model.Grid {
	return state.grid
}

func (state *State) Index() availability.Index {
	return state.index
}

// Commit reserves every band of the placement; on failure nothing stays reserved.
func (state *State) Commit(placement Placement) error {
	slots := placement.Slots(state.grid)
	if len(slots) != placement.Item.Length {
		return fmt.Errorf("placement %v leaves the grid", placement)
	}

	for i, slot := range slots {
		if err := state.index.Reserve(placement.FacultyID, placement.RoomID, placement.Item.BatchID, slot); err != nil {
			for _, reserved := range slots[:i] {
				state.index.Release(placement.FacultyID, placement.RoomID, placement.Item.BatchID, reserved)
			}
			return err
		}
	}

	facultyKey, batchKey := dayKey{placement.FacultyID, placement.Day}, dayKey{placement.Item.BatchID, placement.Day}
	if state.facultyBands[facultyKey] == nil {
		state.facultyBands[facultyKey] = make(map[int]bool)
	}
	if state.batchBands[batchKey] == nil {
		state.batchBands[batchKey] = make(map[int]string)
	}
	for _, slot := range slots {
		state.facultyBands[facultyKey][slot.Index] = true
		state.batchBands[batchKey][slot.Index] = placement.RoomID
	}
	state.facultyWeek[placement.FacultyID] += placement.Item.Length
	state.batchWeek[placement.Item.BatchID] += placement.Item.Length
	state.subjectDay[subjectDayKey{placement.Item.BatchID, placement.Item.SubjectID, placement.Day}]++

	course := courseKey{placement.Item.SubjectID, placement.Item.BatchID}
	if state.teachers[course] == nil {
		state.teachers[course] = make(map[string]int)
	}
	state.teachers[course][placement.FacultyID]++
	return nil
}

// Undo reverts a committed placement.
func (state *State) Undo(placement Placement) {
	facultyKey, batchKey := dayKey{placement.FacultyID, placement.Day}, dayKey{placement.Item.BatchID, placement.Day}
	for _, slot := range placement.Slots(state.grid) {
		state.index.Release(placement.FacultyID, placement.RoomID, placement.Item.BatchID, slot)
		delete(state.facultyBands[facultyKey], slot.Index)
		delete(state.batchBands[batchKey], slot.Index)
	}
	state.facultyWeek[placement.FacultyID] -= placement.Item.Length
	state.batchWeek[placement.Item.BatchID] -= placement.Item.Length
	state.subjectDay[subjectDayKey{placement.Item.BatchID, placement.Item.SubjectID, placement.Day}]--

	course := courseKey{placement.Item.SubjectID, placement.Item.BatchID}
	state.teachers[course][placement.FacultyID]--
	if state.teachers[course][placement.FacultyID] <= 0 {
		delete(state.teachers[course], placement.FacultyID)
	}
}

func (state *State) FacultyDayHours(facultyID string, day model.Day) int {
	return len(state.facultyBands[dayKey{facultyID, day}])
}

func (state *State) FacultyWeekHours(facultyID string) int {
	return state.facultyWeek[facultyID]
}

func (state *State) BatchDayClasses(batchID string, day model.Day) int {
	return len(state.batchBands[dayKey{batchID, day}])
}

func (state *State) BatchWeekClasses(batchID string) int {
	return state.batchWeek[batchID]
}

func (state *State) facultyTeaches(facultyID string, day model.Day, band int) bool {
	return state.facultyBands[dayKey{facultyID, day}][band]
}

func (state *State) batchRoom(batchID string, day model.Day, band int) (string, bool) {
	room, ok := state.batchBands[dayKey{batchID, day}][band]
	return room, ok
}

package constraint

import (
	"fmt"

	"github.com/limaJavier/campus-timetabling/pkg/model"
)

type ViolationCode string

const (
	UnknownReference   ViolationCode = "unknown_reference"
	CapacityExceeded   ViolationCode = "capacity_exceeded"
	RoomTypeMismatch   ViolationCode = "room_type_mismatch"
	OutsideGrid        ViolationCode = "outside_grid"
	LunchBand          ViolationCode = "lunch_band"
	FridayAfternoon    ViolationCode = "friday_afternoon"
	FacultyUnavailable ViolationCode = "faculty_unavailable"
	RoomMaintenance    ViolationCode = "room_maintenance"
	FacultyOccupied    ViolationCode = "faculty_occupied"
	RoomOccupied       ViolationCode = "room_occupied"
	BatchOccupied      ViolationCode = "batch_occupied"
	FacultyDailyCap    ViolationCode = "faculty_daily_cap"
	FacultyWeeklyCap   ViolationCode = "faculty_weekly_cap"
	BatchDailyCap      ViolationCode = "batch_daily_cap"
	BatchWeeklyCap     ViolationCode = "batch_weekly_cap"
	ConsecutiveHours   ViolationCode = "consecutive_hours"
)

type Violation struct {
	Code    ViolationCode
	Message string
}

func (violation Violation) String() string {
	return fmt.Sprintf("%v: %v", violation.Code, violation.Message)
}

type blockedKey struct {
	id   string
	day  model.Day
	band int
}

// Engine evaluates placements against the hard and soft constraints of one snapshot.
type Engine struct {
	lookup      model.Lookup
	constraints model.Constraints
	grid        model.Grid
	weights     Weights
	unavailable map[blockedKey]bool
	maintenance map[blockedKey]bool
}

func NewEngine(snapshot model.Snapshot, grid model.Grid) *Engine {
	return NewEngineWithWeights(snapshot, grid, DefaultWeights())
}

func NewEngineWithWeights(snapshot model.Snapshot, grid model.Grid, weights Weights) *Engine {
	engine := &Engine{
		lookup:      snapshot.Lookup(),
		constraints: snapshot.Constraints,
		grid:        grid,
		weights:     weights,
		unavailable: make(map[blockedKey]bool),
		maintenance: make(map[blockedKey]bool),
	}
	for _, member := range snapshot.Faculty {
		for _, ref := range member.Unavailable {
			if band, ok := grid.Resolve(ref); ok {
				engine.unavailable[blockedKey{member.ID, ref.Day, band}] = true
			}
		}
	}
	for _, classroom := range snapshot.Classrooms {
		for _, ref := range classroom.Maintenance {
			if band, ok := grid.Resolve(ref); ok {
				engine.maintenance[blockedKey{classroom.ID, ref.Day, band}] = true
			}
		}
	}
	return engine
}

func (engine *Engine) Grid() model.Grid {
	return engine.grid
}

func (engine *Engine) Constraints() model.Constraints {
	return engine.constraints
}

// IsFeasible reports whether the placement violates no hard constraint.
func (engine *Engine) IsFeasible(placement Placement, state *State) bool {
	return len(engine.check(placement, state, true)) == 0
}

// Violations lists every hard constraint the placement violates.
func (engine *Engine) Violations(placement Placement, state *State) []Violation {
	return engine.check(placement, state, false)
}

// StaticViolations checks the predicates that do not depend on other placements.
func (engine *Engine) StaticViolations(placement Placement) []Violation {
	return engine.static(placement, false)
}

func (engine *Engine) check(placement Placement, state *State, firstOnly bool) []Violation {
	violations := engine.static(placement, firstOnly)
	if len(violations) > 0 && (firstOnly || violations[0].Code == UnknownReference || violations[0].Code == OutsideGrid) {
		return violations
	}
	report := func(code ViolationCode, format string, args ...any) bool {
		violations = append(violations, Violation{Code: code, Message: fmt.Sprintf(format, args...)})
		return firstOnly
	}

	member := engine.lookup.Faculty[placement.FacultyID]
	item := placement.Item
	length := item.Length

	//** Occupancy, delegated to the availability index
	index := state.Index()
	for _, slot := range placement.Slots(engine.grid) {
		if !index.FacultyFree(placement.FacultyID, slot) && report(FacultyOccupied, "faculty %v already teaches at %v", placement.FacultyID, slot) {
			return violations
		}
		if !index.RoomFree(placement.RoomID, slot) && report(RoomOccupied, "room %v already booked at %v", placement.RoomID, slot) {
			return violations
		}
		if !index.BatchFree(item.BatchID, slot) && report(BatchOccupied, "batch %v already attends a class at %v", item.BatchID, slot) {
			return violations
		}
	}

	//** Load limits
	if dailyCap := member.DailyCap(engine.constraints); state.FacultyDayHours(member.ID, placement.Day)+length > dailyCap &&
		report(FacultyDailyCap, "faculty %v would exceed %d hours on %v", member.ID, dailyCap, placement.Day) {
		return violations
	}
	if state.FacultyWeekHours(member.ID)+length > member.MaxHoursPerWeek &&
		report(FacultyWeeklyCap, "faculty %v would exceed %d hours per week", member.ID, member.MaxHoursPerWeek) {
		return violations
	}
	if state.BatchDayClasses(item.BatchID, placement.Day)+length > engine.constraints.MaxClassesPerDay &&
		report(BatchDailyCap, "batch %v would exceed %d classes on %v", item.BatchID, engine.constraints.MaxClassesPerDay, placement.Day) {
		return violations
	}
	if state.BatchWeekClasses(item.BatchID)+length > engine.constraints.MaxClassesPerWeek &&
		report(BatchWeeklyCap, "batch %v would exceed %d classes per week", item.BatchID, engine.constraints.MaxClassesPerWeek) {
		return violations
	}
	if member.MaxConsecutiveHours > 0 {
		if run := engine.consecutiveRun(placement, state); run > member.MaxConsecutiveHours &&
			report(ConsecutiveHours, "faculty %v would teach %d consecutive hours", member.ID, run) {
			return violations
		}
	}

	return violations
}

func (engine *Engine) static(placement Placement, firstOnly bool) []Violation {
	violations := make([]Violation, 0)
	report := func(code ViolationCode, format string, args ...any) bool {
		violations = append(violations, Violation{Code: code, Message: fmt.Sprintf(format, args...)})
		return firstOnly
	}
	item := placement.Item

	//** Referential integrity
	subject, subjectOk := engine.lookup.Subjects[item.SubjectID]
	batch, batchOk := engine.lookup.Batches[item.BatchID]
	member, memberOk := engine.lookup.Faculty[placement.FacultyID]
	room, roomOk := engine.lookup.Classrooms[placement.RoomID]
	switch {
	case !subjectOk:
		report(UnknownReference, "subject %v does not exist", item.SubjectID)
		return violations
	case !batchOk:
		report(UnknownReference, "batch %v does not exist", item.BatchID)
		return violations
	case !memberOk:
		report(UnknownReference, "faculty %v does not exist", placement.FacultyID)
		return violations
	case !roomOk:
		report(UnknownReference, "room %v does not exist", placement.RoomID)
		return violations
	}

	//** Room suitability
	if room.Capacity < batch.Strength && report(CapacityExceeded, "room %v holds %d, batch %v has %d students", room.ID, room.Capacity, batch.ID, batch.Strength) {
		return violations
	}
	if !subject.RoomFits(room.Type) && report(RoomTypeMismatch, "%v session cannot be held in a %v room", subject.Type, room.Type) {
		return violations
	}

	//** Grid position
	if engine.grid.Cell(placement.Day, 0) < 0 || placement.Band < 0 || placement.Band+item.Length > len(engine.grid.Bands) {
		report(OutsideGrid, "%v band %d is not a working cell", placement.Day, placement.Band)
		return violations
	}
	if !engine.grid.Contiguous(placement.Band, item.Length) {
		code := OutsideGrid
		for band := placement.Band; band < placement.Band+item.Length; band++ {
			if engine.grid.Bands[band].Lunch {
				code = LunchBand
			}
		}
		report(code, "%v band %d cannot host %d contiguous bands", placement.Day, placement.Band, item.Length)
		return violations
	}
	for band := placement.Band; band < placement.Band+item.Length; band++ {
		slot := engine.grid.Slot(placement.Day, band)
		if engine.constraints.AvoidFridayAfternoon && slot.Day == model.Friday && slot.Afternoon &&
			report(FridayAfternoon, "%v is a Friday afternoon band", slot) {
			return violations
		}
		if engine.unavailable[blockedKey{member.ID, placement.Day, band}] &&
			report(FacultyUnavailable, "faculty %v is unavailable at %v", member.ID, slot) {
			return violations
		}
		if engine.maintenance[blockedKey{room.ID, placement.Day, band}] &&
			report(RoomMaintenance, "room %v is under maintenance at %v", room.ID, slot) {
			return violations
		}
	}

	return violations
}

// consecutiveRun is the length of the faculty member's uninterrupted teaching run containing the placement.
func (engine *Engine) consecutiveRun(placement Placement, state *State) int {
	run := placement.Item.Length
	for band := placement.Band - 1; band >= 0 && engine.grid.BackToBack(band, band+1, engine.constraints.MinBreakBetweenClasses); band-- {
		if !state.facultyTeaches(placement.FacultyID, placement.Day, band) {
			break
		}
		run++
	}
	last := placement.Band + placement.Item.Length - 1
	for band := last + 1; band < len(engine.grid.Bands) && engine.grid.BackToBack(band-1, band, engine.constraints.MinBreakBetweenClasses); band++ {
		if !state.facultyTeaches(placement.FacultyID, placement.Day, band) {
			break
		}
		run++
	}
	return run
}

package scheduler

import (
	"cmp"
	"maps"
	"slices"

	"github.com/limaJavier/campus-timetabling/pkg/constraint"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/limaJavier/campus-timetabling/pkg/sat"
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type exactTimetabler struct {
	options Options
}

// NewExactTimetabler encodes time assignment as a SAT instance and postpones room assignment to a
// bipartite matching per start cell. Room assignment may fail even when a solution exists; such items
// are reported as unplaced. Unsatisfiable instances fall back to the greedy search.
//
// Soft preferences do not shape the time assignment: start cells are whatever the SAT model picks.
// Only the room chosen within a start cell is ranked by score.
func NewExactTimetabler(options Options) Timetabler {
	return &exactTimetabler{options: options.withDefaults()}
}

type timeVariable struct {
	item    int
	faculty string
	start   start
}

type resourceCell struct {
	id   string
	day  model.Day
	band int
}

type resourceDay struct {
	id  string
	day model.Day
}

func (timetabler *exactTimetabler) Build(department string, semester int, snapshot model.Snapshot) (Result, error) {
	logger := timetabler.options.Logger
	problem, err := prepare(department, semester, snapshot, timetabler.options)
	if err != nil {
		return Result{}, err
	}

	//** Build SAT instance
	builder, variables, unplaceable := encode(problem)
	instance := builder.SAT()
	stats := Stats{Strategy: StrategyExact, Variables: instance.Variables, Clauses: len(instance.Clauses)}

	solution, err := timetabler.options.Solver.Solve(instance)
	if err != nil {
		return Result{}, err
	} else if solution == nil {
		logger.Info("unsatisfiable instance, falling back to greedy search",
			zap.Uint64("variables", instance.Variables),
			zap.Int("clauses", len(instance.Clauses)),
		)
		state := constraint.NewState(problem.grid)
		placements, unplaced, backtracks := search(problem, state, timetabler.options)
		stats.Backtracks, stats.Fallback = backtracks, true
		result := problem.result(placements, unplaced, stats, timetabler.options)
		logResult(logger, result)
		return result, nil
	}

	//** Decode the time assignment
	chosen := make(map[start][]timeVariable)
	for i, variable := range variables {
		if solution.Value(int64(i + 1)) {
			chosen[variable.start] = append(chosen[variable.start], variable)
		}
	}

	//** Assign rooms start cell by start cell, then commit through the constraint engine
	state := constraint.NewState(problem.grid)
	placements := make([]constraint.Placement, 0, len(problem.items))
	unplaced := slices.Clone(unplaceable)
	for _, day := range problem.grid.Days {
		for band := range problem.grid.Bands {
			cellVariables := chosen[start{day, band}]
			if len(cellVariables) == 0 {
				continue
			}
			slices.SortFunc(cellVariables, func(a, b timeVariable) int { return cmp.Compare(a.item, b.item) })

			assigned, err := assignRooms(problem, state, cellVariables)
			if err != nil {
				return Result{}, err
			}
			for _, variable := range cellVariables {
				roomID, ok := assigned[variable.item]
				placement := variable.placement(problem, roomID)
				if !ok || !problem.engine.IsFeasible(placement, state) || state.Commit(placement) != nil {
					logger.Debug("cannot assign room", zap.Stringer("item", placement.Item))
					unplaced = append(unplaced, variable.item)
					continue
				}
				placements = append(placements, placement)
			}
		}
	}

	result := problem.result(placements, unplaced, stats, timetabler.options)
	logResult(logger, result)
	return result, nil
}

func (timetabler *exactTimetabler) Verify(timetable model.Timetable, snapshot model.Snapshot) bool {
	return verify(timetable, snapshot)
}

// encode returns the SAT builder, the time variables in allocation order and the items without any variable.
func encode(problem *problem) (*sat.Builder, []timeVariable, []int) {
	builder := sat.NewBuilder()
	variables := make([]timeVariable, 0)
	unplaceable := make([]int, 0)
	constraints := problem.snapshot.Constraints
	emptyState := constraint.NewState(problem.grid)

	perItem := make([][]int64, len(problem.items))
	facultyCell := make(map[resourceCell][]int64)
	batchCell := make(map[resourceCell][]int64)
	facultyDay := make(map[resourceDay][]int64)
	batchDay := make(map[resourceDay][]int64)
	facultyWeek := make(map[string][]int64)
	batchWeek := make(map[string][]int64)
	labCell := make(map[resourceCell][]int64)
	hallCell := make(map[resourceCell][]int64)

	for i, item := range problem.items {
		candidates := problem.candidates[i]
		if !candidates.placeable {
			continue
		}
		for _, facultyID := range candidates.faculty {
			for _, start := range candidates.starts {
				// Keep the variable only if some room makes it statically feasible
				feasible := lo.SomeBy(candidates.rooms, func(roomID string) bool {
					return problem.engine.IsFeasible(constraint.Placement{
						Item: item, FacultyID: facultyID, RoomID: roomID, Day: start.day, Band: start.band,
					}, emptyState)
				})
				if !feasible {
					continue
				}

				variables = append(variables, timeVariable{item: i, faculty: facultyID, start: start})
				literal := builder.NewVariable()
				perItem[i] = append(perItem[i], literal)

				for part := range item.Length {
					cell := resourceCell{day: start.day, band: start.band + part}
					facultyCell[resourceCell{facultyID, cell.day, cell.band}] = append(facultyCell[resourceCell{facultyID, cell.day, cell.band}], literal)
					batchCell[resourceCell{item.BatchID, cell.day, cell.band}] = append(batchCell[resourceCell{item.BatchID, cell.day, cell.band}], literal)
					if item.SubjectType == model.SubjectPractical {
						labCell[cell] = append(labCell[cell], literal)
					} else {
						hallCell[cell] = append(hallCell[cell], literal)
					}
					facultyDay[resourceDay{facultyID, start.day}] = append(facultyDay[resourceDay{facultyID, start.day}], literal)
					batchDay[resourceDay{item.BatchID, start.day}] = append(batchDay[resourceDay{item.BatchID, start.day}], literal)
					facultyWeek[facultyID] = append(facultyWeek[facultyID], literal)
					batchWeek[item.BatchID] = append(batchWeek[item.BatchID], literal)
				}
			}
		}
	}

	// Literal allocation order equals variable order only while no auxiliary variable exists,
	// so every cardinality constraint is added after all time variables.
	for i, literals := range perItem {
		if len(literals) == 0 {
			unplaceable = append(unplaceable, i)
			continue
		}
		builder.ExactlyOne(literals)
	}
	for _, key := range sortedKeys(facultyCell) {
		builder.AtMostK(facultyCell[key], 1)
	}
	for _, key := range sortedKeys(batchCell) {
		builder.AtMostK(batchCell[key], 1)
	}
	for _, key := range sortedDayKeys(facultyDay) {
		builder.AtMostK(facultyDay[key], problem.lookup.Faculty[key.id].DailyCap(constraints))
	}
	for _, key := range sortedDayKeys(batchDay) {
		builder.AtMostK(batchDay[key], constraints.MaxClassesPerDay)
	}
	for _, id := range slices.Sorted(maps.Keys(facultyWeek)) {
		builder.AtMostK(facultyWeek[id], problem.lookup.Faculty[id].MaxHoursPerWeek)
	}
	for _, id := range slices.Sorted(maps.Keys(batchWeek)) {
		builder.AtMostK(batchWeek[id], constraints.MaxClassesPerWeek)
	}

	//** Sessions running in a cell cannot outnumber the rooms of their kind
	labs := lo.CountBy(problem.snapshot.Classrooms, func(classroom model.Classroom) bool { return classroom.Type == model.RoomLab })
	halls := len(problem.snapshot.Classrooms) - labs
	for _, key := range sortedKeys(labCell) {
		builder.AtMostK(labCell[key], labs)
	}
	for _, key := range sortedKeys(hallCell) {
		builder.AtMostK(hallCell[key], halls)
	}

	return builder, variables, unplaceable
}

// assignRooms finds a largest matching between the sessions starting in a cell and the rooms free for their whole span.
func assignRooms(problem *problem, state *constraint.State, cellVariables []timeVariable) (map[int]string, error) {
	rooms := make([]string, 0)
	for _, variable := range cellVariables {
		rooms = append(rooms, problem.candidates[variable.item].rooms...)
	}
	rooms = lo.Uniq(rooms)
	slices.Sort(rooms)
	assigned := make(map[int]string)
	if len(rooms) == 0 {
		return assigned, nil
	}

	fits := func(variable timeVariable, room string) bool {
		return problem.candidates[variable.item].roomSet[room] && problem.engine.IsFeasible(variable.placement(problem, room), state)
	}
	neighbors := func(variableAny any, roomAny any) (bool, error) {
		return fits(variableAny.(timeVariable), roomAny.(string)), nil
	}

	variablesAny, roomsAny := lo.Map(cellVariables, func(variable timeVariable, _ int) any { return variable }), lo.Map(rooms, func(room string, _ int) any { return room })
	graph, err := bipartitegraph.NewBipartiteGraph(variablesAny, roomsAny, neighbors)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool)
	for _, edge := range graph.LargestMatching() {
		variableIndex, roomIndex := edge.Node1, edge.Node2-len(cellVariables)
		assigned[cellVariables[variableIndex].item] = rooms[roomIndex]
		taken[rooms[roomIndex]] = true
	}

	//** Move each matched session to the best scored room left free
	for _, variable := range cellVariables {
		current, ok := assigned[variable.item]
		if !ok {
			continue
		}
		best := constraint.Scored{Placement: variable.placement(problem, current)}
		best.Score = problem.engine.Score(best.Placement, state)
		for _, room := range rooms {
			if taken[room] || !fits(variable, room) {
				continue
			}
			scored := constraint.Scored{Placement: variable.placement(problem, room)}
			scored.Score = problem.engine.Score(scored.Placement, state)
			if constraint.Compare(scored, best) < 0 {
				best = scored
			}
		}
		if best.RoomID != current {
			delete(taken, current)
			taken[best.RoomID] = true
			assigned[variable.item] = best.RoomID
		}
	}
	return assigned, nil
}

func (variable timeVariable) placement(problem *problem, roomID string) constraint.Placement {
	return constraint.Placement{
		Item:      problem.items[variable.item],
		FacultyID: variable.faculty,
		RoomID:    roomID,
		Day:       variable.start.day,
		Band:      variable.start.band,
	}
}

func sortedKeys(cells map[resourceCell][]int64) []resourceCell {
	keys := lo.Keys(cells)
	slices.SortFunc(keys, func(a, b resourceCell) int {
		return cmp.Or(cmp.Compare(a.id, b.id), cmp.Compare(a.day, b.day), cmp.Compare(a.band, b.band))
	})
	return keys
}

func sortedDayKeys(days map[resourceDay][]int64) []resourceDay {
	keys := lo.Keys(days)
	slices.SortFunc(keys, func(a, b resourceDay) int {
		return cmp.Or(cmp.Compare(a.id, b.id), cmp.Compare(a.day, b.day))
	})
	return keys
}

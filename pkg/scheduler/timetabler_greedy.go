package scheduler

import (
	"slices"

	"github.com/limaJavier/campus-timetabling/pkg/analyzer"
	"github.com/limaJavier/campus-timetabling/pkg/constraint"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"go.uber.org/zap"
)

type greedyTimetabler struct {
	options Options
}

// NewGreedyTimetabler places demand items one by one, best score first, and backtracks on dead ends.
func NewGreedyTimetabler(options Options) Timetabler {
	return &greedyTimetabler{options: options.withDefaults()}
}

func (timetabler *greedyTimetabler) Build(department string, semester int, snapshot model.Snapshot) (Result, error) {
	problem, err := prepare(department, semester, snapshot, timetabler.options)
	if err != nil {
		return Result{}, err
	}

	state := constraint.NewState(problem.grid)
	placements, unplaced, backtracks := search(problem, state, timetabler.options)

	result := problem.result(placements, unplaced, Stats{Strategy: StrategyGreedy, Backtracks: backtracks}, timetabler.options)
	logResult(timetabler.options.Logger, result)
	return result, nil
}

func (timetabler *greedyTimetabler) Verify(timetable model.Timetable, snapshot model.Snapshot) bool {
	return verify(timetable, snapshot)
}

type decision struct {
	item      int
	placement constraint.Placement
}

// search runs the iterative backtracking loop over an explicit decision stack.
func search(problem *problem, state *constraint.State, options Options) (placements []constraint.Placement, unplaced []int, backtracks int) {
	logger := options.Logger
	stack := make([]decision, 0, len(problem.items))
	excluded := make(map[int]map[string]bool)
	pending := make([]int, len(problem.items))
	for i := range pending {
		pending[i] = i
	}
	unplaced = make([]int, 0)

	for len(pending) > 0 {
		current := pending[0]

		//** No undo can help an item that fails on an empty state
		if !problem.candidates[current].placeable {
			logger.Debug("unplaceable", zap.Stringer("item", problem.items[current]))
			unplaced = append(unplaced, current)
			pending = pending[1:]
			continue
		}

		//** Commit the best feasible placement
		if placement, ok := problem.best(current, state, excluded[current]); ok {
			if err := state.Commit(placement); err != nil {
				// The index disagrees with the engine: exclude the cell and retry
				logger.Debug("commit rejected", zap.Stringer("placement", placement), zap.Error(err))
				exclude(excluded, current, placement)
				continue
			}
			stack = append(stack, decision{item: current, placement: placement})
			pending = pending[1:]
			continue
		}

		//** Dead end: undo the latest decision sharing a resource with the item
		if backtracks < options.BacktrackLimit {
			j := len(stack) - 1
			for j >= 0 && !problem.shares(current, stack[j].placement) {
				j--
			}
			if j >= 0 {
				undone := stack[j]
				state.Undo(undone.placement)
				stack = slices.Delete(stack, j, j+1)
				exclude(excluded, undone.item, undone.placement)
				backtracks++
				pending = append([]int{current, undone.item}, pending[1:]...)
				logger.Debug("backtrack",
					zap.Stringer("failing", problem.items[current]),
					zap.Stringer("undone", undone.placement),
					zap.Int("backtracks", backtracks),
				)
				continue
			}
		}

		logger.Debug("unplaced", zap.Stringer("item", problem.items[current]))
		unplaced = append(unplaced, current)
		pending = pending[1:]
	}

	placements = make([]constraint.Placement, 0, len(stack))
	for _, decision := range stack {
		placements = append(placements, decision.placement)
	}
	return placements, unplaced, backtracks
}

func exclude(excluded map[int]map[string]bool, item int, placement constraint.Placement) {
	if excluded[item] == nil {
		excluded[item] = make(map[string]bool)
	}
	excluded[item][placement.Key()] = true
}

func verify(timetable model.Timetable, snapshot model.Snapshot) bool {
	report := analyzer.AnalyzeWith(timetable, snapshot, analyzer.DefaultOptions())
	return len(report.Conflicts) == 0
}

func logResult(logger *zap.Logger, result Result) {
	logger.Info("timetable generated",
		zap.String("department", result.Timetable.Department),
		zap.Int("semester", result.Timetable.Semester),
		zap.String("strategy", result.Stats.Strategy),
		zap.Int("demand", result.Stats.Demand),
		zap.Int("placed", result.Stats.Placed),
		zap.Int("unplaced", len(result.Unplaced)),
		zap.Int("backtracks", result.Stats.Backtracks),
	)
}

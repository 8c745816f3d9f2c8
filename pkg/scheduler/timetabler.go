package scheduler

import (
	"fmt"
	"time"

	"github.com/limaJavier/campus-timetabling/pkg/constraint"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/limaJavier/campus-timetabling/pkg/sat"
	"go.uber.org/zap"
)

const (
	StrategyGreedy = "greedy"
	StrategyExact  = "exact"

	DefaultBacktrackLimit = 500
)

type Timetabler interface {
	// Builds the timetable of one department and semester
	Build(department string, semester int, snapshot model.Snapshot) (Result, error)

	// Checks that a timetable holds no hard conflict against the snapshot
	Verify(timetable model.Timetable, snapshot model.Snapshot) bool
}

type Options struct {
	Strategy       string
	BacktrackLimit int
	BandMinutes    int
	Solver         sat.SATSolver
	Weights        *constraint.Weights
	Clock          func() time.Time
	Logger         *zap.Logger
}

func (options Options) withDefaults() Options {
	if options.Strategy == "" {
		options.Strategy = StrategyGreedy
	}
	if options.BacktrackLimit <= 0 {
		options.BacktrackLimit = DefaultBacktrackLimit
	}
	if options.BandMinutes <= 0 {
		options.BandMinutes = model.DefaultBandMinutes
	}
	if options.Solver == nil {
		options.Solver = sat.NewGiniSolver()
	}
	if options.Clock == nil {
		options.Clock = func() time.Time { return time.Now().UTC() }
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}

type Stats struct {
	Strategy   string `json:"strategy"`
	Demand     int    `json:"demand"`
	Placed     int    `json:"placed"`
	Backtracks int    `json:"backtracks"`
	Variables  uint64 `json:"variables,omitempty"`
	Clauses    int    `json:"clauses,omitempty"`
	Fallback   bool   `json:"fallback,omitempty"`
}

type Result struct {
	Timetable  model.Timetable
	Placements []constraint.Placement
	Unplaced   []model.DemandItem
	Stats      Stats
}

// Incomplete reports the unplaced demand items, if any.
func (result Result) Incomplete() (model.GenerationIncomplete, bool) {
	if len(result.Unplaced) == 0 {
		return model.GenerationIncomplete{}, false
	}
	return model.GenerationIncomplete{Unplaced: result.Unplaced}, true
}

var timetablers = map[string]func(Options) Timetabler{
	StrategyGreedy: NewGreedyTimetabler,
	StrategyExact:  NewExactTimetabler,
}

// New returns the timetabler of the configured strategy.
func New(options Options) (Timetabler, error) {
	options = options.withDefaults()
	constructor, ok := timetablers[options.Strategy]
	if !ok {
		return nil, fmt.Errorf("%v is not a valid strategy", options.Strategy)
	}
	return constructor(options), nil
}

// Generate builds the timetable of one department and semester from a resource snapshot.
func Generate(department string, semester int, snapshot model.Snapshot, options Options) (Result, error) {
	timetabler, err := New(options)
	if err != nil {
		return Result{}, err
	}
	return timetabler.Build(department, semester, snapshot)
}

package constraint

import (
	"math"
	"slices"
	"strings"

	"github.com/limaJavier/campus-timetabling/pkg/model"
)

// Weights scale each soft constraint penalty.
type Weights struct {
	BackToBack float64
	Afternoon  float64
	RoomChange float64
	Variance   float64
	Spread     float64
	Continuity float64
}

func DefaultWeights() Weights {
	return Weights{
		BackToBack: 2,
		Afternoon:  1,
		RoomChange: 1,
		Variance:   1,
		Spread:     1.5,
		Continuity: 3,
	}
}

// Score rates a feasible placement, higher is better.
func (engine *Engine) Score(placement Placement, state *State) float64 {
	item := placement.Item
	first, last := placement.Band, placement.Band+item.Length-1
	minBreak := engine.constraints.MinBreakBetweenClasses
	score := 0.0

	//** Back-to-back classes of the same faculty member or batch
	if !engine.constraints.AllowBackToBackClasses {
		for _, neighbor := range [2][2]int{{first - 1, first}, {last + 1, last}} {
			if !engine.grid.BackToBack(neighbor[0], neighbor[1], minBreak) {
				continue
			}
			if state.facultyTeaches(placement.FacultyID, placement.Day, neighbor[0]) {
				score -= engine.weights.BackToBack
			}
			if _, ok := state.batchRoom(item.BatchID, placement.Day, neighbor[0]); ok {
				score -= engine.weights.BackToBack
			}
		}
	}

	//** Morning preference
	if engine.constraints.PreferMorningSlots {
		for band := first; band <= last; band++ {
			if engine.grid.Bands[band].Afternoon {
				score -= engine.weights.Afternoon
			}
		}
	}

	//** Room changes between consecutive classes of the batch
	for _, neighbor := range [2][2]int{{first - 1, first}, {last + 1, last}} {
		if !engine.grid.BackToBack(neighbor[0], neighbor[1], math.MaxInt32) {
			continue
		}
		if room, ok := state.batchRoom(item.BatchID, placement.Day, neighbor[0]); ok && room != placement.RoomID {
			score -= engine.weights.RoomChange
		}
	}

	//** Uneven daily load
	batchLoad := engine.dailyLoad(func(day model.Day) int { return state.BatchDayClasses(item.BatchID, day) })
	facultyLoad := engine.dailyLoad(func(day model.Day) int { return state.FacultyDayHours(placement.FacultyID, day) })
	score -= engine.weights.Variance * (varianceDelta(batchLoad, engine.dayPosition(placement.Day), item.Length) +
		varianceDelta(facultyLoad, engine.dayPosition(placement.Day), item.Length))

	//** Same subject repeated on a day
	score -= engine.weights.Spread * float64(state.subjectDay[subjectDayKey{item.BatchID, item.SubjectID, placement.Day}])

	//** One teacher per subject and batch
	teachers := state.teachers[courseKey{item.SubjectID, item.BatchID}]
	if len(teachers) > 0 && teachers[placement.FacultyID] == 0 {
		score -= engine.weights.Continuity
	}

	return math.Round(score*1e6) / 1e6
}

func (engine *Engine) dailyLoad(load func(model.Day) int) []float64 {
	loads := make([]float64, len(engine.grid.Days))
	for i, day := range engine.grid.Days {
		loads[i] = float64(load(day))
	}
	return loads
}

func (engine *Engine) dayPosition(day model.Day) int {
	return slices.Index(engine.grid.Days, day)
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, value := range values {
		mean += value
	}
	mean /= float64(len(values))
	total := 0.0
	for _, value := range values {
		total += (value - mean) * (value - mean)
	}
	return total / float64(len(values))
}

func varianceDelta(loads []float64, position, length int) float64 {
	if position < 0 {
		return 0
	}
	before := variance(loads)
	after := slices.Clone(loads)
	after[position] += float64(length)
	return variance(after) - before
}

// Scored is a feasible placement with its score.
type Scored struct {
	Placement
	Score float64
}

// Rank orders candidates by descending score, then earliest day, earliest band, lowest faculty id and lowest room id.
func Rank(candidates []Scored) {
	slices.SortStableFunc(candidates, Compare)
}

func Compare(a, b Scored) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	case a.Day != b.Day:
		return int(a.Day) - int(b.Day)
	case a.Band != b.Band:
		return a.Band - b.Band
	case a.FacultyID != b.FacultyID:
		return strings.Compare(a.FacultyID, b.FacultyID)
	default:
		return strings.Compare(a.RoomID, b.RoomID)
	}
}

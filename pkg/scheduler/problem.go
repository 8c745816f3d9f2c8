package scheduler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/limaJavier/campus-timetabling/pkg/constraint"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var timetableNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("campus-timetabling/timetable"))

type start struct {
	day  model.Day
	band int
}

// candidates holds the resources a demand item may use, each sorted for determinism
type candidates struct {
	faculty []string
	rooms   []string
	starts  []start

	facultySet map[string]bool
	roomSet    map[string]bool

	// placeable is false when no candidate is feasible even on an empty state
	placeable bool
}

type problem struct {
	department string
	semester   int
	snapshot   model.Snapshot
	lookup     model.Lookup
	grid       model.Grid
	engine     *constraint.Engine
	items      []model.DemandItem
	candidates []candidates
}

func prepare(department string, semester int, snapshot model.Snapshot, options Options) (*problem, error) {
	//** Re-validate the snapshot
	snapshot, err := model.NewSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	grid, err := model.NewGrid(snapshot.Constraints, options.BandMinutes)
	if err != nil {
		return nil, err
	}

	inputErr := func(format string, args ...any) error {
		return &model.SchedulingInputError{Department: department, Semester: semester, Reason: fmt.Sprintf(format, args...)}
	}

	//** Restrict resources to the scope
	subjects := lo.Filter(snapshot.Subjects, func(subject model.Subject, _ int) bool {
		return subject.Department == department && subject.Semester == semester
	})
	batches := lo.Filter(snapshot.Batches, func(batch model.Batch, _ int) bool {
		return batch.Department == department && batch.Semester == semester
	})
	faculty := lo.Filter(snapshot.Faculty, func(member model.FacultyMember, _ int) bool {
		return member.Department == department
	})
	slices.SortFunc(subjects, func(a, b model.Subject) int { return cmp.Or(strings.Compare(a.Code, b.Code), strings.Compare(a.ID, b.ID)) })
	slices.SortFunc(batches, func(a, b model.Batch) int { return strings.Compare(a.ID, b.ID) })
	slices.SortFunc(faculty, func(a, b model.FacultyMember) int { return strings.Compare(a.ID, b.ID) })
	classrooms := slices.Clone(snapshot.Classrooms)
	slices.SortFunc(classrooms, func(a, b model.Classroom) int { return strings.Compare(a.ID, b.ID) })

	switch {
	case len(subjects) == 0:
		return nil, inputErr("no subjects in scope")
	case len(batches) == 0:
		return nil, inputErr("no batches in scope")
	}
	for _, subject := range subjects {
		if subject.Type == model.SubjectPractical && !lo.SomeBy(classrooms, func(classroom model.Classroom) bool { return subject.RoomFits(classroom.Type) }) {
			return nil, inputErr("no lab room for practical subject %v", subject.Code)
		}
	}

	//** Expand and order the demand
	items := make([]model.DemandItem, 0)
	for _, subject := range subjects {
		levelBatches := lo.Filter(batches, func(batch model.Batch, _ int) bool { return batch.Level == subject.Level })
		if len(levelBatches) == 0 {
			options.Logger.Warn("subject has no batch of its level",
				zap.String("subject", subject.Code),
				zap.String("level", string(subject.Level)),
			)
		}
		for _, batch := range levelBatches {
			items = append(items, expand(subject, batch)...)
		}
	}
	slices.SortStableFunc(items, func(a, b model.DemandItem) int {
		aPractical, bPractical := a.SubjectType == model.SubjectPractical, b.SubjectType == model.SubjectPractical
		if aPractical != bPractical {
			return lo.Ternary(aPractical, -1, 1)
		}
		return cmp.Or(
			cmp.Compare(b.HoursPerWeek, a.HoursPerWeek),
			strings.Compare(a.SubjectCode, b.SubjectCode),
			strings.Compare(a.BatchID, b.BatchID),
			cmp.Compare(a.Session, b.Session),
		)
	})
	for i := range items {
		items[i].Index = i
	}

	var engine *constraint.Engine
	if options.Weights != nil {
		engine = constraint.NewEngineWithWeights(snapshot, grid, *options.Weights)
	} else {
		engine = constraint.NewEngine(snapshot, grid)
	}

	//** Enumerate candidates
	lookup := snapshot.Lookup()
	itemCandidates := make([]candidates, len(items))
	for i, item := range items {
		subject := lookup.Subjects[item.SubjectID]

		experts := lo.FilterMap(faculty, func(member model.FacultyMember, _ int) (string, bool) {
			return member.ID, member.Teaches(subject)
		})
		if len(experts) == 0 {
			experts = lo.Map(faculty, func(member model.FacultyMember, _ int) string { return member.ID })
		}
		rooms := lo.FilterMap(classrooms, func(classroom model.Classroom, _ int) (string, bool) {
			return classroom.ID, subject.RoomFits(classroom.Type) && classroom.Capacity >= item.Strength
		})
		starts := make([]start, 0)
		for _, day := range grid.Days {
			for band := range grid.Bands {
				if grid.Contiguous(band, item.Length) {
					starts = append(starts, start{day, band})
				}
			}
		}

		itemCandidates[i] = candidates{
			faculty:    experts,
			rooms:      rooms,
			starts:     starts,
			facultySet: lo.SliceToMap(experts, func(id string) (string, bool) { return id, true }),
			roomSet:    lo.SliceToMap(rooms, func(id string) (string, bool) { return id, true }),
		}
		itemCandidates[i].placeable = placeable(engine, lookup, item, itemCandidates[i], snapshot.Constraints)
	}

	return &problem{
		department: department,
		semester:   semester,
		snapshot:   snapshot,
		lookup:     lookup,
		grid:       grid,
		engine:     engine,
		items:      items,
		candidates: itemCandidates,
	}, nil
}

// expand splits a subject's weekly hours for a batch into sessions. Practical hours pair up into two-band sessions.
func expand(subject model.Subject, batch model.Batch) []model.DemandItem {
	lengths := make([]int, 0, subject.HoursPerWeek)
	if subject.SessionLength() == 2 {
		for range subject.HoursPerWeek / 2 {
			lengths = append(lengths, 2)
		}
		if subject.HoursPerWeek%2 == 1 {
			lengths = append(lengths, 1)
		}
	} else {
		for range subject.HoursPerWeek {
			lengths = append(lengths, 1)
		}
	}

	return lo.Map(lengths, func(length int, session int) model.DemandItem {
		return model.DemandItem{
			SubjectID:    subject.ID,
			SubjectCode:  subject.Code,
			SubjectType:  subject.Type,
			HoursPerWeek: subject.HoursPerWeek,
			BatchID:      batch.ID,
			Strength:     batch.Strength,
			Length:       length,
			Session:      session,
		}
	})
}

// placeable reports whether some candidate passes the static predicates and fits the member's load limits.
func placeable(engine *constraint.Engine, lookup model.Lookup, item model.DemandItem, candidates candidates, constraints model.Constraints) bool {
	if item.Length > constraints.MaxClassesPerDay || item.Length > constraints.MaxClassesPerWeek {
		return false
	}
	for _, facultyID := range candidates.faculty {
		member := lookup.Faculty[facultyID]
		if member.MaxHoursPerWeek < item.Length || member.DailyCap(constraints) < item.Length {
			continue
		}
		for _, roomID := range candidates.rooms {
			for _, start := range candidates.starts {
				placement := constraint.Placement{Item: item, FacultyID: facultyID, RoomID: roomID, Day: start.day, Band: start.band}
				if len(engine.StaticViolations(placement)) == 0 {
					return true
				}
			}
		}
	}
	return false
}

// best is the highest ranked feasible placement of the item outside the excluded set.
func (p *problem) best(item int, state *constraint.State, excluded map[string]bool) (constraint.Placement, bool) {
	var best constraint.Scored
	found := false
	candidates := p.candidates[item]
	for _, facultyID := range candidates.faculty {
		for _, roomID := range candidates.rooms {
			for _, start := range candidates.starts {
				placement := constraint.Placement{
					Item:      p.items[item],
					FacultyID: facultyID,
					RoomID:    roomID,
					Day:       start.day,
					Band:      start.band,
				}
				if excluded[placement.Key()] || !p.engine.IsFeasible(placement, state) {
					continue
				}
				scored := constraint.Scored{Placement: placement, Score: p.engine.Score(placement, state)}
				if !found || constraint.Compare(scored, best) < 0 {
					best, found = scored, true
				}
			}
		}
	}
	return best.Placement, found
}

// shares reports whether a committed placement holds a resource the item could use.
func (p *problem) shares(item int, placement constraint.Placement) bool {
	candidates := p.candidates[item]
	return placement.Item.BatchID == p.items[item].BatchID ||
		candidates.facultySet[placement.FacultyID] ||
		candidates.roomSet[placement.RoomID]
}

// result assembles the timetable from the committed placements.
func (p *problem) result(placements []constraint.Placement, unplaced []int, stats Stats, options Options) Result {
	placements = slices.Clone(placements)
	slices.SortFunc(placements, func(a, b constraint.Placement) int { return cmp.Compare(a.Item.Index, b.Item.Index) })
	slices.Sort(unplaced)

	//** Fill cells
	type cellKey struct {
		day  model.Day
		band int
	}
	entries := make(map[cellKey][]model.ScheduleSlot)
	for _, placement := range placements {
		for part := range placement.Item.Length {
			key := cellKey{placement.Day, placement.Band + part}
			entries[key] = append(entries[key], model.ClassSlot(model.ClassSession{
				SubjectID:   placement.Item.SubjectID,
				FacultyID:   placement.FacultyID,
				RoomID:      placement.RoomID,
				BatchID:     placement.Item.BatchID,
				SubjectType: placement.Item.SubjectType,
				Session:     placement.Item.Index,
				Part:        part,
			}))
		}
	}

	schedule := make([]model.DaySchedule, 0, len(p.grid.Days))
	for _, day := range p.grid.Days {
		cells := make([]model.Cell, 0, len(p.grid.Bands))
		for band := range p.grid.Bands {
			slot := p.grid.Slot(day, band)
			cell := model.Cell{Slot: slot}
			switch classes := entries[cellKey{day, band}]; {
			case slot.Lunch:
				cell.Entries = []model.ScheduleSlot{model.BreakSlot(model.LunchLabel)}
			case len(classes) == 0:
				cell.Entries = []model.ScheduleSlot{model.FreeSlot()}
			default:
				slices.SortFunc(classes, func(a, b model.ScheduleSlot) int {
					return cmp.Or(strings.Compare(a.Class.BatchID, b.Class.BatchID), cmp.Compare(a.Class.Session, b.Class.Session))
				})
				cell.Entries = classes
			}
			cells = append(cells, cell)
		}
		schedule = append(schedule, model.DaySchedule{Day: day, Cells: cells})
	}

	//** Derive a stable id from the scope and the assignment
	var fingerprint strings.Builder
	fmt.Fprintf(&fingerprint, "%v|%d", p.department, p.semester)
	for _, placement := range placements {
		fmt.Fprintf(&fingerprint, "|%v:%v:%d:%v", placement.Item.SubjectID, placement.Item.BatchID, placement.Item.Session, placement.Key())
	}

	stats.Demand = len(p.items)
	stats.Placed = len(placements)
	return Result{
		Timetable: model.Timetable{
			ID:          uuid.NewSHA1(timetableNamespace, []byte(fingerprint.String())).String(),
			Department:  p.department,
			Semester:    p.semester,
			GeneratedAt: options.Clock().UTC(),
			Status:      model.StatusPendingReview,
			Schedule:    schedule,
		},
		Placements: placements,
		Unplaced:   lo.Map(unplaced, func(item int, _ int) model.DemandItem { return p.items[item] }),
		Stats:      stats,
	}
}

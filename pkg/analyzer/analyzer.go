package analyzer

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/limaJavier/campus-timetabling/pkg/availability"
	"github.com/limaJavier/campus-timetabling/pkg/constraint"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

const (
	FacultyConflict = "faculty_conflict"
	RoomConflict    = "room_conflict"
	BatchConflict   = "batch_conflict"
	LunchConflict   = "lunch_conflict"
	WorkloadHigh    = "workload_high"
	WorkloadLow     = "workload_low"
	BackToBack      = "back_to_back"
)

type Issue struct {
	Type       string   `json:"type"`
	Severity   Severity `json:"severity"`
	ResourceID string   `json:"resourceId,omitempty"`
	Message    string   `json:"message"`
	Cells      []string `json:"cells,omitempty"`
}

type Suggestion struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ConflictReport struct {
	Conflicts   []Issue      `json:"conflicts"`
	Warnings    []Issue      `json:"warnings"`
	Suggestions []Suggestion `json:"suggestions"`
}

// HasConflicts reports whether any hard conflict was found.
func (report ConflictReport) HasConflicts() bool {
	return len(report.Conflicts) > 0
}

type Options struct {
	WorkloadHigh    int `mapstructure:"workload_high"`
	WorkloadLow     int `mapstructure:"workload_low"`
	BackToBackLimit int `mapstructure:"back_to_back_limit"`
}

func DefaultOptions() Options {
	return Options{WorkloadHigh: 20, WorkloadLow: 5, BackToBackLimit: 10}
}

// Analyze validates a timetable on its own. It never mutates the timetable.
func Analyze(timetable model.Timetable) ConflictReport {
	return analyze(timetable, nil, DefaultOptions())
}

func AnalyzeWithOptions(timetable model.Timetable, options Options) ConflictReport {
	return analyze(timetable, nil, options)
}

// AnalyzeWith also checks the timetable against the resources it references.
func AnalyzeWith(timetable model.Timetable, snapshot model.Snapshot, options Options) ConflictReport {
	return analyze(timetable, &snapshot, options)
}

type resourceKey struct {
	kind model.ResourceKind
	id   string
}

var conflictTypes = map[model.ResourceKind]string{
	model.ResourceFaculty: FacultyConflict,
	model.ResourceRoom:    RoomConflict,
	model.ResourceBatch:   BatchConflict,
}

func analyze(timetable model.Timetable, snapshot *model.Snapshot, options Options) ConflictReport {
	report := ConflictReport{
		Conflicts:   make([]Issue, 0),
		Warnings:    make([]Issue, 0),
		Suggestions: make([]Suggestion, 0),
	}
	names := newNamer(snapshot)
	classes := timetable.Classes()

	//** Re-derive occupancy and collect double bookings
	index := availability.NewIndex()
	clashes := make(map[resourceKey][]string)
	for _, class := range classes {
		resources := [3]resourceKey{
			{model.ResourceFaculty, class.Class.FacultyID},
			{model.ResourceRoom, class.Class.RoomID},
			{model.ResourceBatch, class.Class.BatchID},
		}
		for _, resource := range resources {
			var occupiedErr *model.AlreadyOccupiedError
			if err := index.Book(resource.kind, resource.id, class.Slot); errors.As(err, &occupiedErr) {
				cell := class.Slot.String()
				if !slices.Contains(clashes[resource], cell) {
					clashes[resource] = append(clashes[resource], cell)
				}
			}
		}
	}
	for resource, cells := range clashes {
		report.Conflicts = append(report.Conflicts, Issue{
			Type:       conflictTypes[resource.kind],
			Severity:   SeverityHigh,
			ResourceID: resource.id,
			Message:    fmt.Sprintf("%v %v is booked more than once at %v", resource.kind, names.of(resource.kind, resource.id), strings.Join(cells, ", ")),
			Cells:      cells,
		})
	}

	//** Classes inside the lunch band
	for _, class := range classes {
		if class.Slot.Lunch {
			report.Conflicts = append(report.Conflicts, Issue{
				Type:       LunchConflict,
				Severity:   SeverityHigh,
				ResourceID: class.Class.BatchID,
				Message:    fmt.Sprintf("batch %v has a class during the lunch band %v", names.of(model.ResourceBatch, class.Class.BatchID), class.Slot),
				Cells:      []string{class.Slot.String()},
			})
		}
	}

	//** Checks against the resource snapshot
	if snapshot != nil {
		report.Conflicts = append(report.Conflicts, snapshotConflicts(timetable, *snapshot, classes)...)
	}

	//** Workload warnings
	workload := lo.CountValuesBy(classes, func(class model.ScheduledClass) string { return class.Class.FacultyID })
	for facultyID, count := range workload {
		switch {
		case count > options.WorkloadHigh:
			report.Warnings = append(report.Warnings, Issue{
				Type:       WorkloadHigh,
				Severity:   SeverityMedium,
				ResourceID: facultyID,
				Message:    fmt.Sprintf("%v has %d classes per week, more than %d", names.of(model.ResourceFaculty, facultyID), count, options.WorkloadHigh),
			})
		case count < options.WorkloadLow:
			report.Warnings = append(report.Warnings, Issue{
				Type:       WorkloadLow,
				Severity:   SeverityLow,
				ResourceID: facultyID,
				Message:    fmt.Sprintf("%v has %d classes per week, fewer than %d", names.of(model.ResourceFaculty, facultyID), count, options.WorkloadLow),
			})
		}
	}

	//** Back-to-back pairs
	if pairs := backToBackPairs(timetable); pairs > options.BackToBackLimit {
		report.Warnings = append(report.Warnings, Issue{
			Type:     BackToBack,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%d back-to-back class pairs, more than %d", pairs, options.BackToBackLimit),
		})
	}

	sortIssues(report.Conflicts)
	sortIssues(report.Warnings)

	//** Suggestions
	if len(report.Conflicts) == 0 {
		report.Suggestions = append(report.Suggestions, Suggestion{Type: "optimization", Message: "Consider balancing morning and afternoon slots"})
	}
	if lo.SomeBy(report.Warnings, func(issue Issue) bool { return issue.Type == WorkloadHigh }) {
		report.Suggestions = append(report.Suggestions, Suggestion{Type: "workload", Message: "Redistribute classes to balance faculty workload"})
	}

	return report
}

// snapshotConflicts re-runs the placement-independent hard predicates on every class entry.
func snapshotConflicts(timetable model.Timetable, snapshot model.Snapshot, classes []model.ScheduledClass) []Issue {
	grid := timetable.Grid()
	if len(grid.Bands) == 0 {
		return nil
	}
	engine := constraint.NewEngine(snapshot, grid)
	lookup := snapshot.Lookup()

	issues := make([]Issue, 0)
	seen := make(map[string]bool)
	for _, class := range classes {
		band, ok := grid.FindBand(class.Slot.ID)
		if !ok {
			continue
		}
		placement := constraint.Placement{
			Item: model.DemandItem{
				SubjectID:   class.Class.SubjectID,
				SubjectType: class.Class.SubjectType,
				BatchID:     class.Class.BatchID,
				Strength:    lookup.Batches[class.Class.BatchID].Strength,
				Length:      1,
			},
			FacultyID: class.Class.FacultyID,
			RoomID:    class.Class.RoomID,
			Day:       class.Slot.Day,
			Band:      band,
		}
		for _, violation := range engine.StaticViolations(placement) {
			if violation.Code == constraint.LunchBand || seen[violation.String()] {
				continue
			}
			seen[violation.String()] = true
			issues = append(issues, Issue{
				Type:       string(violation.Code),
				Severity:   SeverityHigh,
				ResourceID: resourceOf(violation.Code, placement),
				Message:    violation.Message,
				Cells:      []string{class.Slot.String()},
			})
		}
	}
	return issues
}

func resourceOf(code constraint.ViolationCode, placement constraint.Placement) string {
	switch code {
	case constraint.CapacityExceeded, constraint.RoomTypeMismatch, constraint.RoomMaintenance:
		return placement.RoomID
	case constraint.FacultyUnavailable:
		return placement.FacultyID
	default:
		return placement.Item.BatchID
	}
}

// backToBackPairs counts, per batch and day, adjacent bands that both hold a class of the batch.
func backToBackPairs(timetable model.Timetable) int {
	pairs := 0
	for _, daySchedule := range timetable.Schedule {
		previous := make(map[string]bool)
		for i, cell := range daySchedule.Cells {
			current := make(map[string]bool)
			for _, entry := range cell.Entries {
				if entry.Kind == model.SlotClass && entry.Class != nil {
					current[entry.Class.BatchID] = true
				}
			}
			adjacent := i > 0 && daySchedule.Cells[i-1].Slot.End == cell.Slot.Start
			if adjacent {
				for batch := range current {
					if previous[batch] {
						pairs++
					}
				}
			}
			previous = current
		}
	}
	return pairs
}

func sortIssues(issues []Issue) {
	slices.SortFunc(issues, func(a, b Issue) int {
		return cmp.Or(
			strings.Compare(a.Type, b.Type),
			strings.Compare(a.ResourceID, b.ResourceID),
			strings.Compare(a.Message, b.Message),
		)
	})
}

type namer struct {
	lookup *model.Lookup
}

func newNamer(snapshot *model.Snapshot) namer {
	if snapshot == nil {
		return namer{}
	}
	lookup := snapshot.Lookup()
	return namer{lookup: &lookup}
}

func (names namer) of(kind model.ResourceKind, id string) string {
	if names.lookup == nil {
		return id
	}
	switch kind {
	case model.ResourceFaculty:
		if member, ok := names.lookup.Faculty[id]; ok {
			return member.Name
		}
	case model.ResourceRoom:
		if room, ok := names.lookup.Classrooms[id]; ok {
			return room.Name
		}
	case model.ResourceBatch:
		if batch, ok := names.lookup.Batches[id]; ok {
			return batch.Name
		}
	}
	return id
}

package analyzer

import (
	"testing"

	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type placed struct {
	day   model.Day
	band  int
	class model.ClassSession
}

func class(subject, faculty, room, batch string) model.ClassSession {
	return model.ClassSession{SubjectID: subject, FacultyID: faculty, RoomID: room, BatchID: batch, SubjectType: model.SubjectTheory}
}

func timetableOf(t *testing.T, classes ...placed) model.Timetable {
	t.Helper()
	grid, err := model.NewGrid(model.DefaultConstraints(), model.DefaultBandMinutes)
	require.NoError(t, err)

	schedule := make([]model.DaySchedule, 0, len(grid.Days))
	for _, day := range grid.Days {
		cells := make([]model.Cell, 0, len(grid.Bands))
		for band := range grid.Bands {
			slot := grid.Slot(day, band)
			entries := make([]model.ScheduleSlot, 0)
			for _, p := range classes {
				if p.day == day && p.band == band {
					entries = append(entries, model.ClassSlot(p.class))
				}
			}
			if len(entries) == 0 {
				entries = append(entries, lo.Ternary(slot.Lunch, model.BreakSlot(model.LunchLabel), model.FreeSlot()))
			}
			cells = append(cells, model.Cell{Slot: slot, Entries: entries})
		}
		schedule = append(schedule, model.DaySchedule{Day: day, Cells: cells})
	}
	return model.Timetable{ID: "T1", Department: "CS", Semester: 1, Status: model.StatusPendingReview, Schedule: schedule}
}

func types(issues []Issue) []string {
	return lo.Map(issues, func(issue Issue, _ int) string { return issue.Type })
}

func snapshot() model.Snapshot {
	return model.Snapshot{
		Classrooms: []model.Classroom{
			{ID: "R1", Name: "Hall 1", Type: model.RoomLecture, Capacity: 60, Department: "CS"},
			{ID: "R2", Name: "Hall 2", Type: model.RoomLecture, Capacity: 10, Department: "CS"},
		},
		Faculty: []model.FacultyMember{
			{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS", Designation: "Professor", MaxHoursPerWeek: 20},
			{ID: "F2", Name: "Dr. Jones", Email: "jones@uni.edu", Department: "CS", Designation: "Lecturer", MaxHoursPerWeek: 20},
		},
		Subjects: []model.Subject{
			{ID: "S1", Name: "Programming", Code: "CS101", Department: "CS", Semester: 1, Credits: 4,
				Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 3},
		},
		Batches: []model.Batch{
			{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1, Strength: 40, Level: model.LevelUG},
			{ID: "B2", Name: "CS-B", Department: "CS", Program: "BSc", Semester: 1, Strength: 8, Level: model.LevelUG},
		},
		Constraints: model.DefaultConstraints(),
	}
}

func TestDoubleBooking(t *testing.T) {
	//** Arrange
	timetable := timetableOf(t,
		placed{model.Monday, 0, class("S1", "F1", "R1", "B1")},
		placed{model.Monday, 0, class("S1", "F1", "R2", "B2")},
	)

	//** Act
	report := Analyze(timetable)

	//** Assert
	require.Len(t, report.Conflicts, 1)
	conflict := report.Conflicts[0]
	assert.Equal(t, FacultyConflict, conflict.Type)
	assert.Equal(t, SeverityHigh, conflict.Severity)
	assert.Equal(t, "F1", conflict.ResourceID)
	assert.Equal(t, []string{"Monday 09:00-10:00"}, conflict.Cells)
	assert.True(t, report.HasConflicts())
	assert.NotContains(t, lo.Map(report.Suggestions, func(s Suggestion, _ int) string { return s.Type }), "optimization")
}

func TestDoubleBookingEveryResource(t *testing.T) {
	timetable := timetableOf(t,
		placed{model.Tuesday, 1, class("S1", "F1", "R1", "B1")},
		placed{model.Tuesday, 1, class("S1", "F1", "R1", "B1")},
	)

	report := Analyze(timetable)

	assert.Equal(t, []string{BatchConflict, FacultyConflict, RoomConflict}, types(report.Conflicts))
}

func TestCleanTimetable(t *testing.T) {
	timetable := timetableOf(t,
		placed{model.Monday, 0, class("S1", "F1", "R1", "B1")},
		placed{model.Tuesday, 0, class("S1", "F1", "R1", "B1")},
	)

	report := Analyze(timetable)

	assert.Empty(t, report.Conflicts)
	assert.Equal(t, []string{WorkloadLow}, types(report.Warnings))
	assert.Equal(t, SeverityLow, report.Warnings[0].Severity)
	assert.Equal(t, []Suggestion{{Type: "optimization", Message: "Consider balancing morning and afternoon slots"}}, report.Suggestions)
}

func TestEmptyTimetable(t *testing.T) {
	report := Analyze(timetableOf(t))

	assert.NotNil(t, report.Conflicts)
	assert.NotNil(t, report.Warnings)
	assert.Empty(t, report.Conflicts)
	assert.Empty(t, report.Warnings)
	assert.Len(t, report.Suggestions, 1)
}

func TestLunchConflict(t *testing.T) {
	timetable := timetableOf(t, placed{model.Wednesday, 4, class("S1", "F1", "R1", "B1")})
	cell, ok := timetable.Cell(model.Wednesday, "13:00-14:00")
	require.True(t, ok)
	require.True(t, cell.Slot.Lunch)

	report := Analyze(timetable)

	assert.Equal(t, []string{LunchConflict}, types(report.Conflicts))
	assert.Equal(t, "B1", report.Conflicts[0].ResourceID)
}

func TestWarnings(t *testing.T) {
	t.Run("High workload adds a suggestion", func(t *testing.T) {
		timetable := timetableOf(t,
			placed{model.Monday, 0, class("S1", "F1", "R1", "B1")},
			placed{model.Tuesday, 0, class("S1", "F1", "R1", "B1")},
			placed{model.Wednesday, 0, class("S1", "F1", "R1", "B1")},
		)

		report := AnalyzeWithOptions(timetable, Options{WorkloadHigh: 2, WorkloadLow: 0, BackToBackLimit: 10})

		assert.Equal(t, []string{WorkloadHigh}, types(report.Warnings))
		assert.Equal(t, SeverityMedium, report.Warnings[0].Severity)
		assert.Equal(t, []string{"optimization", "workload"}, lo.Map(report.Suggestions, func(s Suggestion, _ int) string { return s.Type }))
	})

	t.Run("Back-to-back pairs over the limit", func(t *testing.T) {
		timetable := timetableOf(t,
			placed{model.Monday, 0, class("S1", "F1", "R1", "B1")},
			placed{model.Monday, 1, class("S1", "F2", "R1", "B1")},
			placed{model.Monday, 2, class("S1", "F1", "R1", "B1")},
			placed{model.Monday, 2, class("S1", "F2", "R2", "B2")},
		)

		report := AnalyzeWithOptions(timetable, Options{WorkloadHigh: 20, WorkloadLow: 0, BackToBackLimit: 1})

		assert.Equal(t, []string{BackToBack}, types(report.Warnings))
		assert.Contains(t, report.Warnings[0].Message, "2 back-to-back")
	})

	t.Run("Classes around lunch are not back-to-back", func(t *testing.T) {
		timetable := timetableOf(t,
			placed{model.Monday, 3, class("S1", "F1", "R1", "B1")},
			placed{model.Monday, 5, class("S1", "F1", "R1", "B1")},
		)

		report := AnalyzeWithOptions(timetable, Options{WorkloadHigh: 20, WorkloadLow: 0, BackToBackLimit: 0})

		assert.Empty(t, report.Warnings)
	})
}

func TestAnalyzeWithSnapshot(t *testing.T) {
	t.Run("Capacity and unknown references", func(t *testing.T) {
		timetable := timetableOf(t,
			placed{model.Monday, 0, class("S1", "F1", "R2", "B1")},
			placed{model.Monday, 1, class("S1", "F9", "R1", "B1")},
		)

		report := AnalyzeWith(timetable, snapshot(), DefaultOptions())

		assert.Equal(t, []string{"capacity_exceeded", "unknown_reference"}, types(report.Conflicts))
		assert.Equal(t, "R2", report.Conflicts[0].ResourceID)
		assert.Contains(t, report.Conflicts[1].Message, "F9")
	})

	t.Run("Names resources in messages", func(t *testing.T) {
		timetable := timetableOf(t,
			placed{model.Monday, 0, class("S1", "F1", "R1", "B1")},
			placed{model.Monday, 0, class("S1", "F1", "R2", "B2")},
		)

		report := AnalyzeWith(timetable, snapshot(), DefaultOptions())

		require.Len(t, report.Conflicts, 1)
		assert.Contains(t, report.Conflicts[0].Message, "Dr. Smith")
	})

	t.Run("Friday afternoon is reported", func(t *testing.T) {
		timetable := timetableOf(t, placed{model.Friday, 6, class("S1", "F1", "R1", "B1")})

		report := AnalyzeWith(timetable, snapshot(), DefaultOptions())

		assert.Equal(t, []string{"friday_afternoon"}, types(report.Conflicts))
	})
}

func TestAnalyzeIsPure(t *testing.T) {
	//** Arrange
	timetable := timetableOf(t,
		placed{model.Monday, 0, class("S1", "F1", "R1", "B1")},
		placed{model.Monday, 0, class("S1", "F1", "R2", "B2")},
		placed{model.Thursday, 2, class("S1", "F2", "R1", "B1")},
	)
	expected := Analyze(timetable)

	//** Act
	reports := make([]ConflictReport, 8)
	var group errgroup.Group
	for i := range reports {
		group.Go(func() error {
			reports[i] = Analyze(timetable)
			return nil
		})
	}
	require.NoError(t, group.Wait())

	//** Assert
	for _, report := range reports {
		assert.Equal(t, expected, report)
	}
	assert.Equal(t, timetableOf(t,
		placed{model.Monday, 0, class("S1", "F1", "R1", "B1")},
		placed{model.Monday, 0, class("S1", "F1", "R2", "B2")},
		placed{model.Thursday, 2, class("S1", "F2", "R1", "B1")},
	), timetable)
}

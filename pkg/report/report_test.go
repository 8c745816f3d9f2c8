package report

import (
	"testing"

	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timetable(t *testing.T) model.Timetable {
	t.Helper()
	grid, err := model.NewGrid(model.DefaultConstraints(), model.DefaultBandMinutes)
	require.NoError(t, err)

	type placed struct {
		day   model.Day
		band  int
		class model.ClassSession
	}
	class := func(faculty, room, batch string) model.ClassSession {
		return model.ClassSession{SubjectID: "S1", FacultyID: faculty, RoomID: room, BatchID: batch, SubjectType: model.SubjectTheory}
	}
	classes := []placed{
		{model.Monday, 0, class("F1", "R1", "B1")},
		{model.Tuesday, 0, class("F1", "R1", "B1")},
		{model.Wednesday, 1, class("F1", "R1", "B1")},
		{model.Monday, 0, class("F2", "R2", "B2")},
	}

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

func snapshot() model.Snapshot {
	return model.Snapshot{
		Classrooms: []model.Classroom{
			{ID: "R2", Name: "Hall 2", Type: model.RoomLecture, Capacity: 10, Department: "CS"},
			{ID: "R1", Name: "Hall 1", Type: model.RoomLecture, Capacity: 60, Department: "CS"},
		},
		Faculty: []model.FacultyMember{
			{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS", Designation: "Professor", MaxHoursPerWeek: 20},
			{ID: "F2", Name: "Dr. Jones", Email: "jones@uni.edu", Department: "MA", Designation: "Lecturer", MaxHoursPerWeek: 0},
			{ID: "F3", Name: "Dr. Brown", Email: "brown@uni.edu", Department: "MA", Designation: "Lecturer", MaxHoursPerWeek: 10},
		},
		Subjects: []model.Subject{
			{ID: "S1", Name: "Programming", Code: "CS101", Department: "CS", Semester: 1, Credits: 4,
				Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 3},
			{ID: "S2", Name: "Number Theory", Code: "MA210", Department: "MA", Semester: 1, Credits: 3,
				Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryElective, HoursPerWeek: 2},
		},
		Batches: []model.Batch{
			{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1, Strength: 40, Level: model.LevelUG},
			{ID: "B2", Name: "CS-B", Department: "CS", Program: "BSc", Semester: 1, Strength: 8, Level: model.LevelUG},
		},
		Constraints: model.DefaultConstraints(),
	}
}

func TestRoomUtilization(t *testing.T) {
	//** Act
	summary := RoomUtilization(timetable(t), snapshot())

	//** Assert
	require.Len(t, summary.Rooms, 2)
	r1, r2 := summary.Rooms[0], summary.Rooms[1]
	assert.Equal(t, "R1", r1.RoomID)
	assert.Equal(t, 3, r1.Booked)
	assert.Equal(t, 35, r1.Available)
	assert.Equal(t, 8.57, r1.Utilization)
	assert.Equal(t, 66.67, r1.AverageFill)
	assert.Equal(t, "R2", r2.RoomID)
	assert.Equal(t, 2.86, r2.Utilization)
	assert.Equal(t, 80.0, r2.AverageFill)

	assert.Equal(t, 2, summary.TotalRooms)
	assert.Equal(t, 2, summary.Underutilized)
	assert.Zero(t, summary.Overutilized)
	assert.InDelta(t, 5.72, summary.AverageUtilization, 0.011)
}

func TestFacultyWorkload(t *testing.T) {
	summary := FacultyWorkload(timetable(t), snapshot())

	// F3 is outside the department and teaches nothing
	require.Equal(t, []string{"F1", "F2"}, lo.Map(summary.Faculty, func(load FacultyLoad, _ int) string { return load.FacultyID }))
	assert.Equal(t, 3, summary.Faculty[0].Hours)
	assert.Equal(t, map[string]int{"Monday": 1, "Tuesday": 1, "Wednesday": 1}, summary.Faculty[0].PerDay)
	assert.Equal(t, 1, summary.Faculty[1].Hours)
	assert.Equal(t, 2, summary.TotalFaculty)
	assert.Equal(t, 1, summary.Overloaded)
	assert.Equal(t, 1, summary.Underutilized)
	assert.Equal(t, 2.0, summary.AverageHours)
}

func TestBandDistribution(t *testing.T) {
	t.Run("Counts every teaching band", func(t *testing.T) {
		summary := BandDistribution(timetable(t))

		require.Len(t, summary.Bands, 7)
		assert.Equal(t, BandCount{SlotID: "09:00-10:00", Classes: 3}, summary.Bands[0])
		assert.Equal(t, BandCount{SlotID: "10:00-11:00", Classes: 1}, summary.Bands[1])
		assert.Equal(t, "09:00-10:00", summary.PeakHour)
		assert.Equal(t, 35, summary.TotalSlots)
		assert.Equal(t, 32, summary.FreeSlots)
		assert.Equal(t, 0.57, summary.AverageClasses)
	})

	t.Run("Empty timetable", func(t *testing.T) {
		summary := BandDistribution(model.Timetable{})

		assert.Empty(t, summary.Bands)
		assert.Empty(t, summary.PeakHour)
		assert.Zero(t, summary.TotalSlots)
	})
}

func TestSubjectDistribution(t *testing.T) {
	summary := SubjectDistribution(timetable(t), snapshot())

	assert.Equal(t, []SubjectLoad{
		{SubjectID: "S1", Code: "CS101", BatchID: "B1", Required: 3, Scheduled: 3, Days: []string{"Monday", "Tuesday", "Wednesday"}},
		{SubjectID: "S1", Code: "CS101", BatchID: "B2", Required: 3, Scheduled: 1, Days: []string{"Monday"}},
	}, summary.Subjects)
	assert.Equal(t, []DepartmentCount{{"CS", 1}, {"MA", 1}}, summary.Departments)
	assert.Equal(t, 2, summary.TotalSubjects)
	assert.Equal(t, 1.0, summary.AveragePerDept)
	assert.Equal(t, 1, summary.ElectiveSubjects)
}

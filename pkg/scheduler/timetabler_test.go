package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/limaJavier/campus-timetabling/pkg/analyzer"
	"github.com/limaJavier/campus-timetabling/pkg/constraint"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedClock = func() time.Time { return time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC) }

func feasibleSnapshot() model.Snapshot {
	return model.Snapshot{
		Classrooms: []model.Classroom{
			{ID: "R1", Name: "Hall 1", Type: model.RoomLecture, Capacity: 60, Department: "CS"},
			{ID: "R2", Name: "Hall 2", Type: model.RoomSeminar, Capacity: 35, Department: "CS"},
			{ID: "L1", Name: "Lab 1", Type: model.RoomLab, Capacity: 40, Department: "CS"},
		},
		Faculty: []model.FacultyMember{
			{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS", Designation: "Professor",
				Expertise: []string{"CS101"}, MaxHoursPerWeek: 20},
			{ID: "F2", Name: "Dr. Jones", Email: "jones@uni.edu", Department: "CS", Designation: "Lecturer",
				Expertise: []string{"CS102L"}, MaxHoursPerWeek: 20},
		},
		Subjects: []model.Subject{
			{ID: "S1", Name: "Programming", Code: "CS101", Department: "CS", Semester: 1, Credits: 4,
				Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 3},
			{ID: "S2", Name: "Programming Lab", Code: "CS102L", Department: "CS", Semester: 1, Credits: 2,
				Type: model.SubjectPractical, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 2},
		},
		Batches: []model.Batch{
			{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1, Strength: 40, Level: model.LevelUG},
			{ID: "B2", Name: "CS-B", Department: "CS", Program: "BSc", Semester: 1, Strength: 30, Level: model.LevelUG},
		},
		Constraints: model.DefaultConstraints(),
	}
}

func assertSound(t *testing.T, result Result, snapshot model.Snapshot) {
	t.Helper()
	lookup := snapshot.Lookup()

	report := analyzer.AnalyzeWith(result.Timetable, snapshot, analyzer.DefaultOptions())
	assert.Empty(t, report.Conflicts)

	for _, class := range result.Timetable.Classes() {
		assert.False(t, class.Slot.Lunch, "class in lunch band at %v", class.Slot)
		assert.GreaterOrEqual(t, lookup.Classrooms[class.Class.RoomID].Capacity, lookup.Batches[class.Class.BatchID].Strength)
		assert.False(t, class.Slot.Day == model.Friday && class.Slot.Afternoon, "class on Friday afternoon at %v", class.Slot)
	}
	for _, daySchedule := range result.Timetable.Schedule {
		for _, cell := range daySchedule.Cells {
			require.NotEmpty(t, cell.Entries)
			if cell.Slot.Lunch {
				assert.Equal(t, []model.ScheduleSlot{model.BreakSlot(model.LunchLabel)}, cell.Entries)
			}
		}
	}
}

func TestGreedyTimetabler(t *testing.T) {
	t.Run("Feasible input is fully placed", func(t *testing.T) {
		//** Arrange
		snapshot := feasibleSnapshot()

		//** Act
		result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})

		//** Assert
		require.NoError(t, err)
		_, incomplete := result.Incomplete()
		assert.False(t, incomplete)
		assert.Equal(t, 8, result.Stats.Demand)
		assert.Equal(t, 8, result.Stats.Placed)
		assert.Len(t, result.Timetable.Classes(), 10)
		assert.Equal(t, model.StatusPendingReview, result.Timetable.Status)
		assert.Equal(t, fixedClock(), result.Timetable.GeneratedAt)
		assertSound(t, result, snapshot)
		assert.True(t, NewGreedyTimetabler(Options{}).Verify(result.Timetable, snapshot))
	})

	t.Run("Practical sessions hold two contiguous bands in one room", func(t *testing.T) {
		snapshot := feasibleSnapshot()
		grid, err := model.NewGrid(snapshot.Constraints, model.DefaultBandMinutes)
		require.NoError(t, err)

		result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})
		require.NoError(t, err)

		practicals := lo.Filter(result.Placements, func(placement constraint.Placement, _ int) bool {
			return placement.Item.SubjectType == model.SubjectPractical
		})
		require.Len(t, practicals, 2)
		for _, placement := range practicals {
			assert.Equal(t, "L1", placement.RoomID)
			for part := range 2 {
				cell, ok := result.Timetable.Cell(placement.Day, grid.Bands[placement.Band+part].ID)
				require.True(t, ok)
				entry, found := lo.Find(cell.Entries, func(entry model.ScheduleSlot) bool {
					return entry.Class != nil && entry.Class.BatchID == placement.Item.BatchID
				})
				require.True(t, found)
				assert.Equal(t, placement.RoomID, entry.Class.RoomID)
				assert.Equal(t, part, entry.Class.Part)
			}
		}
	})

	t.Run("Output is deterministic", func(t *testing.T) {
		first, err := Generate("CS", 1, feasibleSnapshot(), Options{Clock: fixedClock})
		require.NoError(t, err)
		second, err := Generate("CS", 1, feasibleSnapshot(), Options{Clock: fixedClock})
		require.NoError(t, err)

		firstJson, err := json.Marshal(first.Timetable)
		require.NoError(t, err)
		secondJson, err := json.Marshal(second.Timetable)
		require.NoError(t, err)
		assert.Equal(t, string(firstJson), string(secondJson))
		assert.Equal(t, first.Timetable.ID, second.Timetable.ID)
	})

	t.Run("Oversized batch leaves its sessions unplaced", func(t *testing.T) {
		snapshot := model.Snapshot{
			Classrooms: []model.Classroom{{ID: "R1", Name: "Tiny", Type: model.RoomLecture, Capacity: 10, Department: "CS"}},
			Faculty: []model.FacultyMember{{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS",
				Designation: "Professor", MaxHoursPerWeek: 20}},
			Subjects: []model.Subject{{ID: "S1", Name: "Programming", Code: "CS101", Department: "CS", Semester: 1,
				Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 3}},
			Batches: []model.Batch{{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1,
				Strength: 50, Level: model.LevelUG}},
			Constraints: model.DefaultConstraints(),
		}

		result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})

		require.NoError(t, err)
		incomplete, ok := result.Incomplete()
		require.True(t, ok)
		assert.Len(t, incomplete.Unplaced, 3)
		assert.Empty(t, result.Timetable.Classes())
		assert.Contains(t, incomplete.String(), "CS101")
	})

	t.Run("Dead end is resolved by backtracking", func(t *testing.T) {
		//** Arrange
		constraints := model.DefaultConstraints()
		constraints.StartTime, constraints.EndTime, constraints.LunchBreakDuration = "09:00", "11:00", 0
		unavailable := []model.SlotRef{{Day: model.Monday, Start: "10:00"}}
		for _, day := range []model.Day{model.Tuesday, model.Wednesday, model.Thursday, model.Friday} {
			unavailable = append(unavailable, model.SlotRef{Day: day, Start: "09:00"}, model.SlotRef{Day: day, Start: "10:00"})
		}
		snapshot := model.Snapshot{
			Classrooms: []model.Classroom{{ID: "R1", Name: "Hall 1", Type: model.RoomLecture, Capacity: 60, Department: "CS"}},
			Faculty: []model.FacultyMember{
				{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS", Designation: "Professor",
					Expertise: []string{"A"}, MaxHoursPerWeek: 20},
				{ID: "F2", Name: "Dr. Jones", Email: "jones@uni.edu", Department: "CS", Designation: "Lecturer",
					Expertise: []string{"B"}, MaxHoursPerWeek: 20, Unavailable: unavailable},
			},
			Subjects: []model.Subject{
				{ID: "SA", Name: "Subject A", Code: "A", Department: "CS", Semester: 1,
					Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 2},
				{ID: "SB", Name: "Subject B", Code: "B", Department: "CS", Semester: 1,
					Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 1},
			},
			Batches: []model.Batch{{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1,
				Strength: 30, Level: model.LevelUG}},
			Constraints: constraints,
		}

		//** Act
		result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})

		//** Assert
		require.NoError(t, err)
		assert.Empty(t, result.Unplaced)
		assert.Greater(t, result.Stats.Backtracks, 0)
		cell, ok := result.Timetable.Cell(model.Monday, "09:00-10:00")
		require.True(t, ok)
		require.Len(t, cell.Entries, 1)
		assert.Equal(t, "F2", cell.Entries[0].Class.FacultyID)
		assertSound(t, result, snapshot)
	})

	t.Run("Backtracking stops at the limit", func(t *testing.T) {
		//** Arrange
		constraints := model.DefaultConstraints()
		constraints.StartTime, constraints.EndTime, constraints.LunchBreakDuration = "09:00", "11:00", 0
		unavailable := []model.SlotRef{{Day: model.Monday, Start: "10:00"}}
		for _, day := range []model.Day{model.Tuesday, model.Wednesday, model.Thursday, model.Friday} {
			unavailable = append(unavailable, model.SlotRef{Day: day, Start: "09:00"}, model.SlotRef{Day: day, Start: "10:00"})
		}
		snapshot := model.Snapshot{
			Classrooms: []model.Classroom{{ID: "R1", Name: "Hall 1", Type: model.RoomLecture, Capacity: 60, Department: "CS"}},
			Faculty: []model.FacultyMember{
				{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS", Designation: "Professor",
					Expertise: []string{"A"}, MaxHoursPerWeek: 20},
				{ID: "F2", Name: "Dr. Jones", Email: "jones@uni.edu", Department: "CS", Designation: "Lecturer",
					Expertise: []string{"B"}, MaxHoursPerWeek: 20, Unavailable: unavailable},
			},
			Subjects: []model.Subject{
				{ID: "SA", Name: "Subject A", Code: "A", Department: "CS", Semester: 1,
					Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 3},
				{ID: "SB", Name: "Subject B", Code: "B", Department: "CS", Semester: 1,
					Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 1},
			},
			Batches: []model.Batch{{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1,
				Strength: 30, Level: model.LevelUG}},
			Constraints: constraints,
		}

		//** Act
		result, err := Generate("CS", 1, snapshot, Options{BacktrackLimit: 2, Clock: fixedClock})

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, 2, result.Stats.Backtracks)
		incomplete, ok := result.Incomplete()
		require.True(t, ok)
		require.Len(t, incomplete.Unplaced, 1)
		assert.Equal(t, "B", incomplete.Unplaced[0].SubjectCode)
		assert.Len(t, result.Timetable.Classes(), 3)
		assertSound(t, result, snapshot)
	})

	t.Run("Subject without a suitable room is left unplaced", func(t *testing.T) {
		//** Arrange
		snapshot := model.Snapshot{
			Classrooms: []model.Classroom{{ID: "L1", Name: "Lab 1", Type: model.RoomLab, Capacity: 10, Department: "CS"}},
			Faculty: []model.FacultyMember{{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS",
				Designation: "Professor", Expertise: []string{"A"}, MaxHoursPerWeek: 20}},
			Subjects: []model.Subject{{ID: "SA", Name: "Subject A", Code: "A", Department: "CS", Semester: 1,
				Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 3}},
			Batches: []model.Batch{{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1,
				Strength: 50, Level: model.LevelUG}},
			Constraints: model.DefaultConstraints(),
		}

		//** Act
		result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})

		//** Assert
		require.NoError(t, err)
		incomplete, ok := result.Incomplete()
		require.True(t, ok)
		assert.Len(t, incomplete.Unplaced, 3)
		assert.Empty(t, result.Timetable.Classes())
		assert.Zero(t, result.Stats.Backtracks)
	})

	t.Run("Item infeasible on an empty timetable does not backtrack", func(t *testing.T) {
		//** Arrange
		snapshot := model.Snapshot{
			Classrooms: []model.Classroom{{ID: "R1", Name: "Hall 1", Type: model.RoomLecture, Capacity: 60, Department: "CS"}},
			Faculty: []model.FacultyMember{
				{ID: "F1", Name: "Dr. Smith", Email: "smith@uni.edu", Department: "CS", Designation: "Professor",
					Expertise: []string{"A"}, MaxHoursPerWeek: 20},
				{ID: "F2", Name: "Dr. Jones", Email: "jones@uni.edu", Department: "CS", Designation: "Lecturer",
					Expertise: []string{"Z"}, MaxHoursPerWeek: 0},
			},
			Subjects: []model.Subject{
				{ID: "SA", Name: "Subject A", Code: "A", Department: "CS", Semester: 1,
					Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 20},
				{ID: "SZ", Name: "Subject Z", Code: "Z", Department: "CS", Semester: 1,
					Type: model.SubjectTheory, Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 1},
			},
			Batches: []model.Batch{{ID: "B1", Name: "CS-A", Department: "CS", Program: "BSc", Semester: 1,
				Strength: 30, Level: model.LevelUG}},
			Constraints: model.DefaultConstraints(),
		}

		//** Act
		result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})

		//** Assert
		require.NoError(t, err)
		assert.Zero(t, result.Stats.Backtracks)
		assert.Equal(t, 20, result.Stats.Placed)
		require.Len(t, result.Unplaced, 1)
		assert.Equal(t, "Z", result.Unplaced[0].SubjectCode)
		assertSound(t, result, snapshot)
	})

	t.Run("Subject without a batch of its level has no demand", func(t *testing.T) {
		snapshot := feasibleSnapshot()
		snapshot.Subjects[0].Level = model.LevelPG

		result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Stats.Demand)
		assert.Empty(t, result.Unplaced)
		for _, class := range result.Timetable.Classes() {
			assert.Equal(t, "S2", class.Class.SubjectID)
		}
	})
}

func TestSchedulingInputErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.Snapshot)
		semester int
	}{
		{"no subjects in scope", func(*model.Snapshot) {}, 2},
		{"no batches in scope", func(snapshot *model.Snapshot) { snapshot.Batches = nil }, 1},
		{"practical subject without a lab", func(snapshot *model.Snapshot) {
			snapshot.Classrooms = lo.Reject(snapshot.Classrooms, func(classroom model.Classroom, _ int) bool {
				return classroom.Type == model.RoomLab
			})
		}, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			snapshot := feasibleSnapshot()
			test.mutate(&snapshot)

			_, err := Generate("CS", test.semester, snapshot, Options{Clock: fixedClock})

			var inputErr *model.SchedulingInputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.Equal(t, "CS", inputErr.Department)
		})
	}

	t.Run("Invalid snapshot is rejected before scheduling", func(t *testing.T) {
		snapshot := feasibleSnapshot()
		snapshot.Batches[0].Strength = 0

		_, err := Generate("CS", 1, snapshot, Options{})

		var validationErr *model.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "batches[0].strength", validationErr.Field)
	})

	t.Run("Unknown strategy", func(t *testing.T) {
		_, err := New(Options{Strategy: "genetic"})
		assert.Error(t, err)
	})
}

func TestFridayAfternoonIsAvoided(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	for run := range 50 {
		t.Run(fmt.Sprintf("Run %d", run), func(t *testing.T) {
			snapshot := feasibleSnapshot()
			snapshot.Subjects = nil
			for i := range 1 + random.Intn(4) {
				snapshot.Subjects = append(snapshot.Subjects, model.Subject{
					ID: fmt.Sprintf("S%d", i), Name: fmt.Sprintf("Subject %d", i), Code: fmt.Sprintf("CS%d", 100+i),
					Department: "CS", Semester: 1, Type: lo.Ternary(random.Intn(3) == 0, model.SubjectPractical, model.SubjectTheory),
					Level: model.LevelUG, Category: model.CategoryCompulsory, HoursPerWeek: 1 + random.Intn(4),
				})
			}
			snapshot.Constraints.PreferMorningSlots = random.Intn(2) == 0

			result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})

			require.NoError(t, err)
			for _, class := range result.Timetable.Classes() {
				assert.False(t, class.Slot.Day == model.Friday && class.Slot.Afternoon, "class on Friday afternoon at %v", class.Slot)
			}
		})
	}
}

func TestExactTimetabler(t *testing.T) {
	//** Arrange
	snapshot := feasibleSnapshot()
	timetabler, err := New(Options{Strategy: StrategyExact, Clock: fixedClock})
	require.NoError(t, err)

	//** Act
	result, err := timetabler.Build("CS", 1, snapshot)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, result.Stats.Strategy)
	assert.False(t, result.Stats.Fallback)
	assert.Greater(t, result.Stats.Variables, uint64(0))
	assert.Empty(t, result.Unplaced)
	assertSound(t, result, snapshot)
	assert.True(t, timetabler.Verify(result.Timetable, snapshot))
}

func TestAssignRoomsPrefersBetterScore(t *testing.T) {
	//** Arrange
	snapshot := feasibleSnapshot()
	snapshot.Classrooms = []model.Classroom{
		{ID: "R1", Name: "Hall 1", Type: model.RoomLecture, Capacity: 60, Department: "CS"},
		{ID: "R2", Name: "Hall 2", Type: model.RoomLecture, Capacity: 60, Department: "CS"},
		{ID: "L1", Name: "Lab 1", Type: model.RoomLab, Capacity: 40, Department: "CS"},
	}
	problem, err := prepare("CS", 1, snapshot, Options{}.withDefaults())
	require.NoError(t, err)
	theory := lo.Filter(lo.Range(len(problem.items)), func(i int, _ int) bool {
		return problem.items[i].SubjectID == "S1" && problem.items[i].BatchID == "B1"
	})
	require.Len(t, theory, 3)

	//** The batch already sits in R2 right before the cell being matched
	state := constraint.NewState(problem.grid)
	require.NoError(t, state.Commit(constraint.Placement{
		Item: problem.items[theory[0]], FacultyID: "F1", RoomID: "R2", Day: model.Monday, Band: 0,
	}))
	cellVariables := []timeVariable{{item: theory[1], faculty: "F1", start: start{model.Monday, 1}}}

	//** Act
	assigned, err := assignRooms(problem, state, cellVariables)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, map[int]string{theory[1]: "R2"}, assigned)
}

func TestVerifyRejectsDoubleBooking(t *testing.T) {
	snapshot := feasibleSnapshot()
	result, err := Generate("CS", 1, snapshot, Options{Clock: fixedClock})
	require.NoError(t, err)

	//** Duplicate the first class entry into the same cell
	tampered := result.Timetable
	tampered.Schedule = make([]model.DaySchedule, len(result.Timetable.Schedule))
	for i, daySchedule := range result.Timetable.Schedule {
		tampered.Schedule[i] = model.DaySchedule{Day: daySchedule.Day, Cells: make([]model.Cell, len(daySchedule.Cells))}
		copy(tampered.Schedule[i].Cells, daySchedule.Cells)
	}
	first := result.Timetable.Classes()[0]
	for d, daySchedule := range tampered.Schedule {
		for i, cell := range daySchedule.Cells {
			if daySchedule.Day == first.Slot.Day && cell.Slot.ID == first.Slot.ID {
				tampered.Schedule[d].Cells[i].Entries = append(append([]model.ScheduleSlot{}, cell.Entries...), model.ClassSlot(first.Class))
			}
		}
	}

	assert.True(t, NewGreedyTimetabler(Options{}).Verify(result.Timetable, snapshot))
	assert.False(t, NewGreedyTimetabler(Options{}).Verify(tampered, snapshot))
}

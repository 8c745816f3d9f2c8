package report

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
)

const (
	UnderutilizedBelow = 50.0 // Percent
	OverutilizedAbove  = 90.0 // Percent
)

type RoomUsage struct {
	RoomID      string  `json:"roomId"`
	Name        string  `json:"name"`
	Capacity    int     `json:"capacity"`
	Booked      int     `json:"booked"`
	Available   int     `json:"available"`
	Utilization float64 `json:"utilization"` // Percent of teaching cells booked
	AverageFill float64 `json:"averageFill"` // Percent of seats taken while booked
}

type RoomSummary struct {
	Rooms              []RoomUsage `json:"rooms"`
	AverageUtilization float64     `json:"averageUtilization"`
	TotalRooms         int         `json:"totalRooms"`
	Underutilized      int         `json:"underutilized"`
	Overutilized       int         `json:"overutilized"`
}

// RoomUtilization reports how many teaching cells of the week each room is booked.
func RoomUtilization(timetable model.Timetable, snapshot model.Snapshot) RoomSummary {
	lookup := snapshot.Lookup()
	available := teachingCells(timetable)
	classes := timetable.Classes()
	byRoom := lo.GroupBy(classes, func(class model.ScheduledClass) string { return class.Class.RoomID })

	rooms := slices.Clone(snapshot.Classrooms)
	slices.SortFunc(rooms, func(a, b model.Classroom) int { return strings.Compare(a.ID, b.ID) })
	summary := RoomSummary{Rooms: make([]RoomUsage, 0, len(rooms)), TotalRooms: len(rooms)}
	for _, room := range rooms {
		booked := byRoom[room.ID]
		usage := RoomUsage{
			RoomID:      room.ID,
			Name:        room.Name,
			Capacity:    room.Capacity,
			Booked:      len(booked),
			Available:   available,
			Utilization: percent(len(booked), available),
		}
		if len(booked) > 0 {
			fill := lo.SumBy(booked, func(class model.ScheduledClass) float64 {
				return percent(lookup.Batches[class.Class.BatchID].Strength, room.Capacity)
			})
			usage.AverageFill = round(fill / float64(len(booked)))
		}
		switch {
		case usage.Utilization < UnderutilizedBelow:
			summary.Underutilized++
		case usage.Utilization > OverutilizedAbove:
			summary.Overutilized++
		}
		summary.Rooms = append(summary.Rooms, usage)
	}
	if len(summary.Rooms) > 0 {
		summary.AverageUtilization = round(lo.SumBy(summary.Rooms, func(usage RoomUsage) float64 { return usage.Utilization }) / float64(len(summary.Rooms)))
	}
	return summary
}

type FacultyLoad struct {
	FacultyID       string         `json:"facultyId"`
	Name            string         `json:"name"`
	Hours           int            `json:"hours"`
	MaxHoursPerWeek int            `json:"maxHours"`
	PerDay          map[string]int `json:"perDay"`
}

type WorkloadSummary struct {
	Faculty       []FacultyLoad `json:"faculty"`
	AverageHours  float64       `json:"averageHours"`
	TotalFaculty  int           `json:"totalFaculty"`
	Overloaded    int           `json:"overloaded"`
	Underutilized int           `json:"underutilized"` // Teaching less than half their weekly maximum
}

// FacultyWorkload reports the hours of every faculty member of the timetable's department.
func FacultyWorkload(timetable model.Timetable, snapshot model.Snapshot) WorkloadSummary {
	classes := timetable.Classes()
	byFaculty := lo.GroupBy(classes, func(class model.ScheduledClass) string { return class.Class.FacultyID })

	members := lo.Filter(snapshot.Faculty, func(member model.FacultyMember, _ int) bool {
		return member.Department == timetable.Department || len(byFaculty[member.ID]) > 0
	})
	slices.SortFunc(members, func(a, b model.FacultyMember) int { return strings.Compare(a.ID, b.ID) })

	summary := WorkloadSummary{Faculty: make([]FacultyLoad, 0, len(members)), TotalFaculty: len(members)}
	for _, member := range members {
		taught := byFaculty[member.ID]
		load := FacultyLoad{
			FacultyID:       member.ID,
			Name:            member.Name,
			Hours:           len(taught),
			MaxHoursPerWeek: member.MaxHoursPerWeek,
			PerDay:          lo.CountValuesBy(taught, func(class model.ScheduledClass) string { return class.Slot.Day.String() }),
		}
		if load.Hours > member.MaxHoursPerWeek {
			summary.Overloaded++
		} else if 2*load.Hours < member.MaxHoursPerWeek {
			summary.Underutilized++
		}
		summary.Faculty = append(summary.Faculty, load)
	}
	if len(summary.Faculty) > 0 {
		summary.AverageHours = round(float64(lo.SumBy(summary.Faculty, func(load FacultyLoad) int { return load.Hours })) / float64(len(summary.Faculty)))
	}
	return summary
}

type BandCount struct {
	SlotID  string `json:"slotId"`
	Classes int    `json:"classes"`
}

type BandSummary struct {
	Bands          []BandCount `json:"bands"`
	PeakHour       string      `json:"peakHour"`
	TotalSlots     int         `json:"totalSlots"`
	AverageClasses float64     `json:"averageClasses"`
	FreeSlots      int         `json:"freeSlots"`
}

// BandDistribution counts class entries per teaching band over the week. The peak is the earliest busiest band.
func BandDistribution(timetable model.Timetable) BandSummary {
	summary := BandSummary{Bands: make([]BandCount, 0)}
	if len(timetable.Schedule) == 0 {
		return summary
	}

	counts := make(map[string]int)
	for _, daySchedule := range timetable.Schedule {
		for _, cell := range daySchedule.Cells {
			if cell.Slot.Lunch {
				continue
			}
			summary.TotalSlots++
			classes := lo.CountBy(cell.Entries, func(entry model.ScheduleSlot) bool { return entry.Kind == model.SlotClass })
			if classes == 0 {
				summary.FreeSlots++
			}
			counts[cell.Slot.ID] += classes
		}
	}

	peak := -1
	for _, cell := range timetable.Schedule[0].Cells {
		if cell.Slot.Lunch {
			continue
		}
		count := BandCount{SlotID: cell.Slot.ID, Classes: counts[cell.Slot.ID]}
		summary.Bands = append(summary.Bands, count)
		if count.Classes > peak {
			peak, summary.PeakHour = count.Classes, count.SlotID
		}
	}
	if len(summary.Bands) > 0 {
		summary.AverageClasses = round(float64(lo.SumBy(summary.Bands, func(count BandCount) int { return count.Classes })) / float64(len(summary.Bands)))
	}
	return summary
}

type SubjectLoad struct {
	SubjectID string   `json:"subjectId"`
	Code      string   `json:"code"`
	BatchID   string   `json:"batchId"`
	Required  int      `json:"required"`
	Scheduled int      `json:"scheduled"`
	Days      []string `json:"days"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Subjects   int    `json:"subjects"`
}

type SubjectSummary struct {
	Subjects         []SubjectLoad     `json:"subjects"`
	Departments      []DepartmentCount `json:"departments"`
	TotalSubjects    int               `json:"totalSubjects"`
	AveragePerDept   float64           `json:"averagePerDept"`
	ElectiveSubjects int               `json:"electiveSubjects"`
}

// SubjectDistribution compares scheduled and required hours per subject and batch of the timetable's scope,
// and counts the snapshot's subjects per department.
func SubjectDistribution(timetable model.Timetable, snapshot model.Snapshot) SubjectSummary {
	type courseKey struct {
		subject string
		batch   string
	}
	scheduled := lo.GroupBy(timetable.Classes(), func(class model.ScheduledClass) courseKey {
		return courseKey{class.Class.SubjectID, class.Class.BatchID}
	})
	inScope := func(department string, semester int) bool {
		return department == timetable.Department && semester == timetable.Semester
	}

	summary := SubjectSummary{Subjects: make([]SubjectLoad, 0), TotalSubjects: len(snapshot.Subjects)}
	for _, subject := range snapshot.Subjects {
		if !inScope(subject.Department, subject.Semester) {
			continue
		}
		for _, batch := range snapshot.Batches {
			if !inScope(batch.Department, batch.Semester) || batch.Level != subject.Level {
				continue
			}
			classes := scheduled[courseKey{subject.ID, batch.ID}]
			days := lo.Uniq(lo.Map(classes, func(class model.ScheduledClass, _ int) model.Day { return class.Slot.Day }))
			slices.Sort(days)
			summary.Subjects = append(summary.Subjects, SubjectLoad{
				SubjectID: subject.ID,
				Code:      subject.Code,
				BatchID:   batch.ID,
				Required:  subject.HoursPerWeek,
				Scheduled: len(classes),
				Days:      lo.Map(days, func(day model.Day, _ int) string { return day.String() }),
			})
		}
	}
	slices.SortFunc(summary.Subjects, func(a, b SubjectLoad) int {
		return cmp.Or(strings.Compare(a.Code, b.Code), strings.Compare(a.BatchID, b.BatchID))
	})

	perDepartment := lo.CountValuesBy(snapshot.Subjects, func(subject model.Subject) string { return subject.Department })
	departments := lo.Keys(perDepartment)
	slices.Sort(departments)
	for _, department := range departments {
		summary.Departments = append(summary.Departments, DepartmentCount{Department: department, Subjects: perDepartment[department]})
	}
	if len(summary.Departments) > 0 {
		summary.AveragePerDept = round(float64(summary.TotalSubjects) / float64(len(summary.Departments)))
	}
	summary.ElectiveSubjects = lo.CountBy(snapshot.Subjects, func(subject model.Subject) bool { return subject.Category == model.CategoryElective })
	return summary
}

func teachingCells(timetable model.Timetable) int {
	return lo.SumBy(timetable.Schedule, func(daySchedule model.DaySchedule) int {
		return lo.CountBy(daySchedule.Cells, func(cell model.Cell) bool { return !cell.Slot.Lunch })
	})
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return round(100 * float64(part) / float64(whole))
}

func round(value float64) float64 {
	return math.Round(value*100) / 100
}

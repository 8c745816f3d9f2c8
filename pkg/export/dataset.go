package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
)

const (
	TimeHeader = "Time"
	FreeLabel  = "Free"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Grid lays out one batch's week: a row per band, a column per working day.
func Grid(timetable model.Timetable, batchID string, lookup model.Lookup) Dataset {
	headers := []string{TimeHeader}
	for _, daySchedule := range timetable.Schedule {
		headers = append(headers, daySchedule.Day.String())
	}
	data := Dataset{Headers: headers, Rows: make([]map[string]string, 0)}
	if len(timetable.Schedule) == 0 {
		return data
	}

	for band, cell := range timetable.Schedule[0].Cells {
		row := map[string]string{TimeHeader: cell.Slot.ID}
		for _, daySchedule := range timetable.Schedule {
			if band >= len(daySchedule.Cells) {
				continue
			}
			row[daySchedule.Day.String()] = label(daySchedule.Cells[band], batchID, lookup)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

func label(cell model.Cell, batchID string, lookup model.Lookup) string {
	for _, entry := range cell.Entries {
		switch entry.Kind {
		case model.SlotBreak:
			return entry.Label
		case model.SlotClass:
			if entry.Class != nil && entry.Class.BatchID == batchID {
				return describe(*entry.Class, lookup)
			}
		}
	}
	return FreeLabel
}

// describe renders a class as "<code> - <faculty> - <room>", falling back to ids for unknown resources.
func describe(class model.ClassSession, lookup model.Lookup) string {
	code, faculty, room := class.SubjectID, class.FacultyID, class.RoomID
	if subject, ok := lookup.Subjects[class.SubjectID]; ok {
		code = subject.Code
	}
	if member, ok := lookup.Faculty[class.FacultyID]; ok {
		faculty = member.Name
	}
	if classroom, ok := lookup.Classrooms[class.RoomID]; ok {
		room = classroom.Name
	}
	return fmt.Sprintf("%v - %v - %v", code, faculty, room)
}

// Batches lists the batches of the timetable's scope, plus any batch it schedules, sorted by id.
func Batches(timetable model.Timetable, lookup model.Lookup) []string {
	ids := lo.FilterMap(lo.Values(lookup.Batches), func(batch model.Batch, _ int) (string, bool) {
		return batch.ID, batch.Department == timetable.Department && batch.Semester == timetable.Semester
	})
	for _, class := range timetable.Classes() {
		ids = append(ids, class.Class.BatchID)
	}
	ids = lo.Uniq(ids)
	slices.Sort(ids)
	return ids
}

// batchName is the display name of a batch, its id when unknown.
func batchName(batchID string, lookup model.Lookup) string {
	if batch, ok := lookup.Batches[batchID]; ok && strings.TrimSpace(batch.Name) != "" {
		return batch.Name
	}
	return batchID
}

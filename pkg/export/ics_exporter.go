package export

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/limaJavier/campus-timetabling/pkg/model"
)

const DefaultWeekStart = "2025-01-06"

var byDay = map[model.Day]string{
	model.Monday:    "MO",
	model.Tuesday:   "TU",
	model.Wednesday: "WE",
	model.Thursday:  "TH",
	model.Friday:    "FR",
	model.Saturday:  "SA",
}

// ICSExporter publishes class sessions as weekly recurring events anchored at a Monday.
type ICSExporter struct {
	weekStart time.Time
	stamp     time.Time
}

// NewICSExporter parses weekStart (YYYY-MM-DD, a Monday) in the named IANA time zone.
func NewICSExporter(weekStart, timezone string, stamp time.Time) (*ICSExporter, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", timezone, err)
	}
	start, err := time.ParseInLocation(time.DateOnly, weekStart, location)
	if err != nil {
		return nil, fmt.Errorf("parse week start %q: %w", weekStart, err)
	}
	if start.Weekday() != time.Monday {
		return nil, fmt.Errorf("week start %v is a %v, not a Monday", weekStart, start.Weekday())
	}
	return &ICSExporter{weekStart: start, stamp: stamp.UTC()}, nil
}

type occurrence struct {
	class model.ClassSession
	day   model.Day
	start model.Clock
	end   model.Clock
}

// Render emits one event per session of the batch, or of every batch when batchID is empty.
func (e *ICSExporter) Render(timetable model.Timetable, lookup model.Lookup, batchID string) ([]byte, error) {
	//** Merge the parts of a session into one event
	type sessionKey struct {
		batch   string
		session int
		day     model.Day
	}
	events := make(map[sessionKey]*occurrence)
	for _, class := range timetable.Classes() {
		if batchID != "" && class.Class.BatchID != batchID {
			continue
		}
		key := sessionKey{class.Class.BatchID, class.Class.Session, class.Slot.Day}
		if existing, ok := events[key]; ok {
			existing.start = min(existing.start, class.Slot.Start)
			existing.end = max(existing.end, class.Slot.End)
			continue
		}
		events[key] = &occurrence{class: class.Class, day: class.Slot.Day, start: class.Slot.Start, end: class.Slot.End}
	}
	ordered := make([]*occurrence, 0, len(events))
	for _, event := range events {
		ordered = append(ordered, event)
	}
	slices.SortFunc(ordered, func(a, b *occurrence) int {
		return cmp.Or(cmp.Compare(a.day, b.day), cmp.Compare(a.start, b.start), strings.Compare(a.class.BatchID, b.class.BatchID))
	})

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//campus-timetabling//timetable//EN")
	cal.SetName(fmt.Sprintf("%v semester %d", timetable.Department, timetable.Semester))

	for _, event := range ordered {
		vevent := cal.AddEvent(fmt.Sprintf("%v-%v-%d-%v@campus-timetabling", timetable.ID, event.class.BatchID, event.class.Session, strings.ToLower(byDay[event.day])))
		vevent.SetDtStampTime(e.stamp)
		vevent.SetStartAt(e.at(event.day, event.start))
		vevent.SetEndAt(e.at(event.day, event.end))
		vevent.SetSummary(summary(event.class, lookup))
		if classroom, ok := lookup.Classrooms[event.class.RoomID]; ok {
			vevent.SetLocation(classroom.Name)
		} else {
			vevent.SetLocation(event.class.RoomID)
		}
		vevent.SetDescription(describe(event.class, lookup))
		vevent.AddRrule("FREQ=WEEKLY;BYDAY=" + byDay[event.day])
	}

	return []byte(cal.Serialize()), nil
}

func (e *ICSExporter) at(day model.Day, clock model.Clock) time.Time {
	date := e.weekStart.AddDate(0, 0, int(day))
	return time.Date(date.Year(), date.Month(), date.Day(), int(clock)/60, int(clock)%60, 0, 0, date.Location())
}

func summary(class model.ClassSession, lookup model.Lookup) string {
	name := class.SubjectID
	if subject, ok := lookup.Subjects[class.SubjectID]; ok {
		name = fmt.Sprintf("%v %v", subject.Code, subject.Name)
	}
	return fmt.Sprintf("%v (%v)", name, batchName(class.BatchID, lookup))
}

package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

type SlotKind string

const (
	SlotClass SlotKind = "class"
	SlotBreak SlotKind = "break"
	SlotFree  SlotKind = "free"
)

const LunchLabel = "Lunch Break"

// ClassSession is the payload of a class entry. Part is 1 on the second band of a two-band session.
type ClassSession struct {
	SubjectID   string      `json:"subjectId"`
	FacultyID   string      `json:"facultyId"`
	RoomID      string      `json:"roomId"`
	BatchID     string      `json:"batchId"`
	SubjectType SubjectType `json:"subjectType"`
	Session     int         `json:"session"`
	Part        int         `json:"part,omitempty"`
}

// ScheduleSlot is a tagged union: Class is set only for SlotClass, Label only for SlotBreak.
type ScheduleSlot struct {
	Kind  SlotKind      `json:"kind"`
	Class *ClassSession `json:"class,omitempty"`
	Label string        `json:"label,omitempty"`
}

func ClassSlot(session ClassSession) ScheduleSlot {
	return ScheduleSlot{Kind: SlotClass, Class: &session}
}

func BreakSlot(label string) ScheduleSlot {
	return ScheduleSlot{Kind: SlotBreak, Label: label}
}

func FreeSlot() ScheduleSlot {
	return ScheduleSlot{Kind: SlotFree}
}

// Cell holds a single break or free entry, or one class entry per batch placed in the band.
type Cell struct {
	Slot    TimeSlot       `json:"slot"`
	Entries []ScheduleSlot `json:"entries"`
}

type DaySchedule struct {
	Day   Day    `json:"day"`
	Cells []Cell `json:"cells"`
}

// ScheduledClass is a class entry together with the cell it occupies.
type ScheduledClass struct {
	Slot  TimeSlot
	Class ClassSession
}

type Timetable struct {
	ID             string        `json:"id"`
	Department     string        `json:"department"`
	Semester       int           `json:"semester"`
	GeneratedAt    time.Time     `json:"generatedAt"`
	Status         Status        `json:"status"`
	Schedule       []DaySchedule `json:"schedule"`
	ReviewedAt     *time.Time    `json:"reviewedAt,omitempty"`
	ReviewComments string        `json:"reviewComments,omitempty"`
}

// Cell looks a cell up by day and slot id.
func (timetable Timetable) Cell(day Day, slotID string) (Cell, bool) {
	for _, daySchedule := range timetable.Schedule {
		if daySchedule.Day != day {
			continue
		}
		for _, cell := range daySchedule.Cells {
			if cell.Slot.ID == slotID {
				return cell, true
			}
		}
	}
	return Cell{}, false
}

// Classes flattens every class entry in day then band order.
func (timetable Timetable) Classes() []ScheduledClass {
	classes := make([]ScheduledClass, 0)
	for _, daySchedule := range timetable.Schedule {
		for _, cell := range daySchedule.Cells {
			for _, entry := range cell.Entries {
				if entry.Kind != SlotClass || entry.Class == nil {
					continue
				}
				slot := cell.Slot
				slot.Day = daySchedule.Day
				classes = append(classes, ScheduledClass{Slot: slot, Class: *entry.Class})
			}
		}
	}
	return classes
}

func (timetable *Timetable) Approve(comments string, at time.Time) error {
	return timetable.review(StatusApproved, comments, at)
}

// Reject requires a non-empty comment explaining the decision.
func (timetable *Timetable) Reject(comments string, at time.Time) error {
	if strings.TrimSpace(comments) == "" {
		return &ValidationError{Field: "reviewComments", Reason: "must not be empty when rejecting"}
	}
	return timetable.review(StatusRejected, comments, at)
}

func (timetable *Timetable) review(status Status, comments string, at time.Time) error {
	if timetable.Status != StatusPendingReview {
		return &ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot move from %v to %v", timetable.Status, status),
			Err:    ErrInvalidTransition,
		}
	}
	at = at.UTC()
	timetable.Status = status
	timetable.ReviewedAt = &at
	timetable.ReviewComments = strings.TrimSpace(comments)
	return nil
}

// DemandItem is one session a batch needs for a subject.
type DemandItem struct {
	Index        int         `json:"index"`
	SubjectID    string      `json:"subjectId"`
	SubjectCode  string      `json:"subjectCode"`
	SubjectType  SubjectType `json:"subjectType"`
	HoursPerWeek int         `json:"hoursPerWeek"`
	BatchID      string      `json:"batchId"`
	Strength     int         `json:"strength"`
	Length       int         `json:"length"`
	Session      int         `json:"session"`
}

func (item DemandItem) String() string {
	return fmt.Sprintf("%v (%v) for batch %v, session %d, %d band(s)", item.SubjectCode, item.SubjectType, item.BatchID, item.Session+1, item.Length)
}

// Grid rebuilds the weekly grid the timetable was generated on.
func (timetable Timetable) Grid() Grid {
	grid := Grid{Days: make([]Day, 0, len(timetable.Schedule))}
	for i, daySchedule := range timetable.Schedule {
		grid.Days = append(grid.Days, daySchedule.Day)
		for _, cell := range daySchedule.Cells {
			slot := cell.Slot
			slot.Day = daySchedule.Day
			grid.Slots = append(grid.Slots, slot)
			if i == 0 {
				slot.Day = Monday
				grid.Bands = append(grid.Bands, slot)
			}
		}
	}
	return grid
}

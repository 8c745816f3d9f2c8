package model

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

type RoomType string

const (
	RoomLecture RoomType = "lecture"
	RoomLab     RoomType = "lab"
	RoomSeminar RoomType = "seminar"
)

type SubjectType string

const (
	SubjectTheory    SubjectType = "theory"
	SubjectPractical SubjectType = "practical"
	SubjectTutorial  SubjectType = "tutorial"
)

type Level string

const (
	LevelUG Level = "UG"
	LevelPG Level = "PG"
)

type Category string

const (
	CategoryCompulsory Category = "compulsory"
	CategoryElective   Category = "elective"
)

type ResourceKind string

const (
	ResourceFaculty ResourceKind = "faculty"
	ResourceRoom    ResourceKind = "room"
	ResourceBatch   ResourceKind = "batch"
)

// SlotRef names a grid cell by day and band start (HH:MM).
type SlotRef struct {
	Day   Day    `json:"day" mapstructure:"day" validate:"gte=0,lte=5"`
	Start string `json:"start" mapstructure:"start" validate:"required,clock"`
}

type Classroom struct {
	ID          string    `json:"id" mapstructure:"id" validate:"required"`
	Name        string    `json:"name" mapstructure:"name" validate:"required"`
	Type        RoomType  `json:"type" mapstructure:"type" validate:"oneof=lecture lab seminar"`
	Capacity    int       `json:"capacity" mapstructure:"capacity" validate:"gt=0"`
	Department  string    `json:"department" mapstructure:"department" validate:"required"`
	Equipment   []string  `json:"equipment,omitempty" mapstructure:"equipment" validate:"dive,required"`
	Maintenance []SlotRef `json:"maintenance,omitempty" mapstructure:"maintenance" validate:"dive"`
}

type FacultyMember struct {
	ID                  string    `json:"id" mapstructure:"id" validate:"required"`
	Name                string    `json:"name" mapstructure:"name" validate:"required"`
	Email               string    `json:"email" mapstructure:"email" validate:"required,email"`
	Department          string    `json:"department" mapstructure:"department" validate:"required"`
	Designation         string    `json:"designation" mapstructure:"designation" validate:"required"`
	Expertise           []string  `json:"expertise,omitempty" mapstructure:"expertise" validate:"dive,required"`
	MaxHoursPerWeek     int       `json:"maxHoursPerWeek" mapstructure:"maxHoursPerWeek" validate:"gte=0"`
	AvgLeavesPerMonth   int       `json:"avgLeavesPerMonth" mapstructure:"avgLeavesPerMonth" validate:"gte=0"`
	MaxDailyHours       int       `json:"maxDailyHours,omitempty" mapstructure:"maxDailyHours" validate:"gte=0"`
	MaxConsecutiveHours int       `json:"maxConsecutiveHours,omitempty" mapstructure:"maxConsecutiveHours" validate:"gte=0"`
	Unavailable         []SlotRef `json:"unavailable,omitempty" mapstructure:"unavailable" validate:"dive"`
}

type Subject struct {
	ID           string      `json:"id" mapstructure:"id" validate:"required"`
	Name         string      `json:"name" mapstructure:"name" validate:"required"`
	Code         string      `json:"code" mapstructure:"code" validate:"required"`
	Department   string      `json:"department" mapstructure:"department" validate:"required"`
	Semester     int         `json:"semester" mapstructure:"semester" validate:"min=1,max=8"`
	Credits      int         `json:"credits" mapstructure:"credits" validate:"gte=0"`
	Type         SubjectType `json:"type" mapstructure:"type" validate:"oneof=theory practical tutorial"`
	Level        Level       `json:"level" mapstructure:"level" validate:"oneof=UG PG"`
	Category     Category    `json:"category" mapstructure:"category" validate:"oneof=compulsory elective"`
	HoursPerWeek int         `json:"hoursPerWeek" mapstructure:"hoursPerWeek" validate:"gt=0"`
}

type Batch struct {
	ID         string `json:"id" mapstructure:"id" validate:"required"`
	Name       string `json:"name" mapstructure:"name" validate:"required"`
	Department string `json:"department" mapstructure:"department" validate:"required"`
	Program    string `json:"program" mapstructure:"program" validate:"required"`
	Semester   int    `json:"semester" mapstructure:"semester" validate:"min=1,max=8"`
	Strength   int    `json:"strength" mapstructure:"strength" validate:"gt=0"`
	Level      Level  `json:"level" mapstructure:"level" validate:"oneof=UG PG"`
	Section    string `json:"section,omitempty" mapstructure:"section"`
}

// NewClassroom normalizes and validates a classroom.
func NewClassroom(classroom Classroom) (Classroom, error) {
	classroom.ID = strings.TrimSpace(classroom.ID)
	classroom.Name = strings.TrimSpace(classroom.Name)
	classroom.Department = strings.TrimSpace(classroom.Department)
	classroom.Equipment = normalizeSet(classroom.Equipment)
	if err := validate(classroom); err != nil {
		return Classroom{}, err
	}
	return classroom, nil
}

// NewFacultyMember normalizes and validates a faculty member; expertise is kept as a sorted set.
func NewFacultyMember(member FacultyMember) (FacultyMember, error) {
	member.ID = strings.TrimSpace(member.ID)
	member.Name = strings.TrimSpace(member.Name)
	member.Email = strings.ToLower(strings.TrimSpace(member.Email))
	member.Department = strings.TrimSpace(member.Department)
	member.Designation = strings.TrimSpace(member.Designation)
	member.Expertise = normalizeSet(member.Expertise)
	if err := validate(member); err != nil {
		return FacultyMember{}, err
	}
	return member, nil
}

func NewSubject(subject Subject) (Subject, error) {
	subject.ID = strings.TrimSpace(subject.ID)
	subject.Name = strings.TrimSpace(subject.Name)
	subject.Code = strings.TrimSpace(subject.Code)
	subject.Department = strings.TrimSpace(subject.Department)
	if err := validate(subject); err != nil {
		return Subject{}, err
	}
	return subject, nil
}

func NewBatch(batch Batch) (Batch, error) {
	batch.ID = strings.TrimSpace(batch.ID)
	batch.Name = strings.TrimSpace(batch.Name)
	batch.Department = strings.TrimSpace(batch.Department)
	batch.Program = strings.TrimSpace(batch.Program)
	batch.Section = strings.TrimSpace(batch.Section)
	if err := validate(batch); err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// Teaches reports whether the member's expertise or designation names the subject by code, id or name.
func (member FacultyMember) Teaches(subject Subject) bool {
	return lo.SomeBy(append([]string{member.Designation}, member.Expertise...), func(tag string) bool {
		return strings.EqualFold(tag, subject.Code) ||
			strings.EqualFold(tag, subject.ID) ||
			strings.EqualFold(tag, subject.Name)
	})
}

// DailyCap is the number of bands the member may teach on one day.
func (member FacultyMember) DailyCap(constraints Constraints) int {
	if member.MaxDailyHours > 0 {
		return member.MaxDailyHours
	}
	return constraints.MaxClassesPerDay
}

// SessionLength is the number of contiguous bands a single session of the subject occupies.
func (subject Subject) SessionLength() int {
	if subject.Type == SubjectPractical {
		return 2
	}
	return 1
}

// RoomFits reports whether a room of the given type can host the subject.
func (subject Subject) RoomFits(roomType RoomType) bool {
	if subject.Type == SubjectPractical {
		return roomType == RoomLab
	}
	return roomType == RoomLecture || roomType == RoomSeminar
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := lo.Uniq(lo.FilterMap(values, func(value string, _ int) (string, bool) {
		value = strings.TrimSpace(value)
		return value, value != ""
	}))
	slices.Sort(set)
	return set
}

package model

import (
	"fmt"

	"github.com/samber/lo"
)

// Snapshot is the read-only resource set handed to one generation run.
type Snapshot struct {
	Classrooms  []Classroom     `json:"classrooms" mapstructure:"classrooms"`
	Faculty     []FacultyMember `json:"faculty" mapstructure:"faculty"`
	Subjects    []Subject       `json:"subjects" mapstructure:"subjects"`
	Batches     []Batch         `json:"batches" mapstructure:"batches"`
	Constraints Constraints     `json:"constraints" mapstructure:"constraints"`
}

// NewSnapshot re-validates every entity and the cross-entity invariants.
func NewSnapshot(snapshot Snapshot) (Snapshot, error) {
	validated := Snapshot{
		Classrooms: make([]Classroom, 0, len(snapshot.Classrooms)),
		Faculty:    make([]FacultyMember, 0, len(snapshot.Faculty)),
		Subjects:   make([]Subject, 0, len(snapshot.Subjects)),
		Batches:    make([]Batch, 0, len(snapshot.Batches)),
	}

	for i, classroom := range snapshot.Classrooms {
		classroom, err := NewClassroom(classroom)
		if err != nil {
			return Snapshot{}, prefixed(fmt.Sprintf("classrooms[%d]", i), err)
		}
		validated.Classrooms = append(validated.Classrooms, classroom)
	}
	for i, member := range snapshot.Faculty {
		member, err := NewFacultyMember(member)
		if err != nil {
			return Snapshot{}, prefixed(fmt.Sprintf("faculty[%d]", i), err)
		}
		validated.Faculty = append(validated.Faculty, member)
	}
	for i, subject := range snapshot.Subjects {
		subject, err := NewSubject(subject)
		if err != nil {
			return Snapshot{}, prefixed(fmt.Sprintf("subjects[%d]", i), err)
		}
		validated.Subjects = append(validated.Subjects, subject)
	}
	for i, batch := range snapshot.Batches {
		batch, err := NewBatch(batch)
		if err != nil {
			return Snapshot{}, prefixed(fmt.Sprintf("batches[%d]", i), err)
		}
		validated.Batches = append(validated.Batches, batch)
	}
	constraints, err := NewConstraints(snapshot.Constraints)
	if err != nil {
		return Snapshot{}, prefixed("constraints", err)
	}
	validated.Constraints = constraints

	//** Cross-entity invariants
	if id, ok := duplicate(validated.Classrooms, func(c Classroom) string { return c.ID }); ok {
		return Snapshot{}, &ValidationError{Field: "classrooms.id", Reason: fmt.Sprintf("duplicate id %q", id)}
	}
	if id, ok := duplicate(validated.Faculty, func(f FacultyMember) string { return f.ID }); ok {
		return Snapshot{}, &ValidationError{Field: "faculty.id", Reason: fmt.Sprintf("duplicate id %q", id)}
	}
	if email, ok := duplicate(validated.Faculty, func(f FacultyMember) string { return f.Email }); ok {
		return Snapshot{}, &ValidationError{Field: "faculty.email", Reason: fmt.Sprintf("duplicate email %q", email)}
	}
	if id, ok := duplicate(validated.Subjects, func(s Subject) string { return s.ID }); ok {
		return Snapshot{}, &ValidationError{Field: "subjects.id", Reason: fmt.Sprintf("duplicate id %q", id)}
	}
	if code, ok := duplicate(validated.Subjects, func(s Subject) string {
		return fmt.Sprintf("%v/%d/%v", s.Department, s.Semester, s.Code)
	}); ok {
		return Snapshot{}, &ValidationError{Field: "subjects.code", Reason: fmt.Sprintf("duplicate code per department and semester %q", code)}
	}
	if id, ok := duplicate(validated.Batches, func(b Batch) string { return b.ID }); ok {
		return Snapshot{}, &ValidationError{Field: "batches.id", Reason: fmt.Sprintf("duplicate id %q", id)}
	}

	grid, err := NewGrid(validated.Constraints, DefaultBandMinutes)
	if err != nil {
		return Snapshot{}, prefixed("constraints", err)
	}
	if grid.TeachingBands() == 0 {
		return Snapshot{}, &ValidationError{Field: "constraints", Reason: "the weekly grid has no teaching band"}
	}

	return validated, nil
}

// Lookup is a keyed view over a snapshot.
type Lookup struct {
	Classrooms map[string]Classroom
	Faculty    map[string]FacultyMember
	Subjects   map[string]Subject
	Batches    map[string]Batch
}

func (snapshot Snapshot) Lookup() Lookup {
	return Lookup{
		Classrooms: lo.KeyBy(snapshot.Classrooms, func(c Classroom) string { return c.ID }),
		Faculty:    lo.KeyBy(snapshot.Faculty, func(f FacultyMember) string { return f.ID }),
		Subjects:   lo.KeyBy(snapshot.Subjects, func(s Subject) string { return s.ID }),
		Batches:    lo.KeyBy(snapshot.Batches, func(b Batch) string { return b.ID }),
	}
}

func duplicate[T any](values []T, key func(T) string) (string, bool) {
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		k := key(value)
		if seen[k] {
			return k, true
		}
		seen[k] = true
	}
	return "", false
}

func prefixed(prefix string, err error) error {
	if validationErr, ok := err.(*ValidationError); ok {
		return &ValidationError{
			Field:  prefix + "." + validationErr.Field,
			Reason: validationErr.Reason,
			Err:    validationErr.Err,
		}
	}
	return fmt.Errorf("%v: %w", prefix, err)
}

package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError reports the first malformed field of an entity.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid %v: %v", err.Field, err.Reason)
}

func (err *ValidationError) Unwrap() error {
	return err.Err
}

// AlreadyOccupiedError is raised by the availability index when a resource is booked twice in the same cell.
type AlreadyOccupiedError struct {
	ResourceKind ResourceKind
	ResourceID   string
	Day          Day
	SlotID       string
}

func (err *AlreadyOccupiedError) Error() string {
	return fmt.Sprintf("%v \"%v\" is already occupied on %v at %v", err.ResourceKind, err.ResourceID, err.Day, err.SlotID)
}

// SchedulingInputError is fatal: the scope cannot be scheduled at all.
type SchedulingInputError struct {
	Department string
	Semester   int
	Reason     string
}

func (err *SchedulingInputError) Error() string {
	return fmt.Sprintf("cannot schedule department \"%v\" semester %d: %v", err.Department, err.Semester, err.Reason)
}

// GenerationIncomplete is not an error: it lists the demand items left without a placement.
type GenerationIncomplete struct {
	Unplaced []DemandItem
}

func (incomplete GenerationIncomplete) String() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "generation completed with %d unresolved sessions", len(incomplete.Unplaced))
	for _, item := range incomplete.Unplaced {
		fmt.Fprintf(&builder, "\n- %v", item)
	}
	return builder.String()
}

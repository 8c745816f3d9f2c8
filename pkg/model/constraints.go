package model

import (
	"fmt"
	"strings"
)

// Constraints is the single rule set of a generation run.
type Constraints struct {
	MaxClassesPerDay       int    `json:"maxClassesPerDay" mapstructure:"maxClassesPerDay" validate:"gt=0"`
	MaxClassesPerWeek      int    `json:"maxClassesPerWeek" mapstructure:"maxClassesPerWeek" validate:"gt=0"`
	MinBreakBetweenClasses int    `json:"minBreakBetweenClasses" mapstructure:"minBreakBetweenClasses" validate:"gte=0"`
	AllowBackToBackClasses bool   `json:"allowBackToBackClasses" mapstructure:"allowBackToBackClasses"`
	PreferMorningSlots     bool   `json:"preferMorningSlots" mapstructure:"preferMorningSlots"`
	AvoidFridayAfternoon   bool   `json:"avoidFridayAfternoon" mapstructure:"avoidFridayAfternoon"`
	LunchBreakDuration     int    `json:"lunchBreakDuration" mapstructure:"lunchBreakDuration" validate:"gte=0"`
	WorkingDaysPerWeek     int    `json:"workingDaysPerWeek" mapstructure:"workingDaysPerWeek" validate:"oneof=5 6"`
	StartTime              string `json:"startTime" mapstructure:"startTime" validate:"required,clock"`
	EndTime                string `json:"endTime" mapstructure:"endTime" validate:"required,clock"`
}

func DefaultConstraints() Constraints {
	return Constraints{
		MaxClassesPerDay:       6,
		MaxClassesPerWeek:      30,
		MinBreakBetweenClasses: 10,
		AllowBackToBackClasses: true,
		PreferMorningSlots:     false,
		AvoidFridayAfternoon:   true,
		LunchBreakDuration:     60,
		WorkingDaysPerWeek:     5,
		StartTime:              "09:00",
		EndTime:                "17:00",
	}
}

func NewConstraints(constraints Constraints) (Constraints, error) {
	constraints.StartTime = strings.TrimSpace(constraints.StartTime)
	constraints.EndTime = strings.TrimSpace(constraints.EndTime)
	if err := validate(constraints); err != nil {
		return Constraints{}, err
	}
	if _, _, err := constraints.window(); err != nil {
		return Constraints{}, err
	}
	return constraints, nil
}

func (constraints Constraints) window() (start, end Clock, err error) {
	start, err = ParseClock(constraints.StartTime)
	if err != nil {
		return 0, 0, &ValidationError{Field: "startTime", Reason: err.Error(), Err: err}
	}
	end, err = ParseClock(constraints.EndTime)
	if err != nil {
		return 0, 0, &ValidationError{Field: "endTime", Reason: err.Error(), Err: err}
	}
	if start >= end {
		return 0, 0, &ValidationError{Field: "endTime", Reason: fmt.Sprintf("must be after startTime %v", constraints.StartTime)}
	}
	return start, end, nil
}

// Days lists the working days in grid order.
func (constraints Constraints) Days() []Day {
	days := []Day{Monday, Tuesday, Wednesday, Thursday, Friday}
	if constraints.WorkingDaysPerWeek == 6 {
		days = append(days, Saturday)
	}
	return days
}

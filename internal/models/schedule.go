package models

import (
	"strings"
	"time"
)

// Schedule is one course schedule slot. DayOfWeek counts from Monday as 0.
// Times are canonical zero-padded "HH:MM" strings so lexicographic order
// matches time order.
type Schedule struct {
	ID         int64     `json:"id"`
	CourseName string    `json:"course_name"`
	Week       int       `json:"week"`
	DayOfWeek  int       `json:"day_of_week"`
	DayName    string    `json:"day_name"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Location   string    `json:"location,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var dayNames = [...]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// DayName returns the display name for a day-of-week index, or "未知" for an
// out-of-range index.
func DayName(dayOfWeek int) string {
	if dayOfWeek < 0 || dayOfWeek >= len(dayNames) {
		return "未知"
	}
	return dayNames[dayOfWeek]
}

// ScheduleInput is the payload for creating or replacing a schedule slot.
type ScheduleInput struct {
	CourseName string `json:"course_name"`
	Week       int    `json:"week"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Location   string `json:"location,omitempty"`
}

// Validate checks ranges and time formats, normalizing StartTime and EndTime
// in place to zero-padded "HH:MM".
func (in *ScheduleInput) Validate() error {
	in.CourseName = strings.TrimSpace(in.CourseName)
	in.Location = strings.TrimSpace(in.Location)
	if in.CourseName == "" {
		return NewValidationError("course_name", "course_name is required")
	}
	if in.Week < 1 || in.Week > 18 {
		return NewValidationError("week", "week must be between 1 and 18")
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return NewValidationError("day_of_week", "day_of_week must be between 0 (Monday) and 6 (Sunday)")
	}
	start, err := time.Parse("15:04", in.StartTime)
	if err != nil {
		return NewValidationError("start_time", "start_time must be in HH:MM format")
	}
	end, err := time.Parse("15:04", in.EndTime)
	if err != nil {
		return NewValidationError("end_time", "end_time must be in HH:MM format")
	}
	if !start.Before(end) {
		return NewValidationError("end_time", "end_time must be after start_time")
	}
	in.StartTime = start.Format("15:04")
	in.EndTime = end.Format("15:04")
	return nil
}

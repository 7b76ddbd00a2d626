package models

import "time"

// ScheduleSlot is one weekly recurring meeting time of a section.
// Times are wall-clock HH:MM strings; StartTime < EndTime.
type ScheduleSlot struct {
	ID        string    `db:"id" json:"id"`
	SectionID string    `db:"section_id" json:"section_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomConflict identifies the booked slot that blocks a proposed
// meeting time in a classroom.
type ClassroomConflict struct {
	SlotID      string    `db:"id" json:"slot_id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	CourseName  string    `db:"course_name" json:"course_name"`
	DayOfWeek   DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
}

// TimetableConflict describes a collision between a candidate slot and
// a slot the student is already committed to.
type TimetableConflict struct {
	DayOfWeek         DayOfWeek `json:"day_of_week"`
	NewStartTime      string    `json:"new_start_time"`
	NewEndTime        string    `json:"new_end_time"`
	ExistingCourse    string    `json:"existing_course"`
	ExistingStartTime string    `json:"existing_start_time"`
	ExistingEndTime   string    `json:"existing_end_time"`
}

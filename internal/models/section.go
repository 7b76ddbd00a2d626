package models

import "time"

// Section is a scheduled offering of a course in a classroom for one
// semester. CurrentEnrollment is maintained exclusively through the
// capacity ledger queries in the section repository; no other code
// path writes it.
type Section struct {
	ID                string    `db:"id" json:"id"`
	CourseID          string    `db:"course_id" json:"course_id"`
	ClassroomID       string    `db:"classroom_id" json:"classroom_id"`
	SectionNumber     string    `db:"section_number" json:"section_number"`
	InstructorName    string    `db:"instructor_name" json:"instructor_name"`
	MaxCapacity       int       `db:"max_capacity" json:"max_capacity"`
	CurrentEnrollment int       `db:"current_enrollment" json:"current_enrollment"`
	Semester          string    `db:"semester" json:"semester"`
	AcademicYear      int       `db:"academic_year" json:"academic_year"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// HasAvailableCapacity reports whether at least one seat is open.
func (s Section) HasAvailableCapacity() bool {
	return s.CurrentEnrollment < s.MaxCapacity
}

// SectionDetail enriches Section with course and classroom context.
type SectionDetail struct {
	Section
	CourseCode        string `db:"course_code" json:"course_code"`
	CourseName        string `db:"course_name" json:"course_name"`
	CourseCreditHours int    `db:"course_credit_hours" json:"course_credit_hours"`
	Building          string `db:"building" json:"building"`
	RoomNumber        string `db:"room_number" json:"room_number"`
}

// SectionFilter captures search parameters for listing sections.
type SectionFilter struct {
	CourseID        string
	ClassroomID     string
	Semester        string
	AcademicYear    int
	InstructorName  string
	HasAvailability bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

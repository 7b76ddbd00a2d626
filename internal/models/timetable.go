package models

// StudentSlotRow is the flattened join of an active enrollment, its
// section, course, classroom and one meeting slot. The enrollment
// coordinator and the timetable projector both consume it so related
// data is always fetched in one explicit query.
type StudentSlotRow struct {
	EnrollmentID   string    `db:"enrollment_id" json:"enrollment_id"`
	SectionID      string    `db:"section_id" json:"section_id"`
	SlotID         string    `db:"slot_id" json:"slot_id"`
	CourseCode     string    `db:"course_code" json:"course_code"`
	CourseName     string    `db:"course_name" json:"course_name"`
	CreditHours    int       `db:"credit_hours" json:"credit_hours"`
	SectionNumber  string    `db:"section_number" json:"section_number"`
	InstructorName string    `db:"instructor_name" json:"instructor_name"`
	Building       string    `db:"building" json:"building"`
	RoomNumber     string    `db:"room_number" json:"room_number"`
	DayOfWeek      DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
}

// TimetableEntry is one meeting in a student's weekly view.
type TimetableEntry struct {
	EnrollmentID   string `json:"enrollment_id"`
	CourseCode     string `json:"course_code"`
	CourseName     string `json:"course_name"`
	SectionNumber  string `json:"section_number"`
	InstructorName string `json:"instructor_name"`
	Classroom      string `json:"classroom"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// WeeklyTimetable maps every day of the week to its ordered meetings.
// All seven days are always present as keys.
type WeeklyTimetable map[DayOfWeek][]TimetableEntry

// TimetableExport is the summary projection of a student's schedule.
type TimetableExport struct {
	StudentID    string            `json:"student_id"`
	TotalCourses int               `json:"total_courses"`
	TotalCredits int               `json:"total_credits"`
	Courses      map[string]string `json:"courses"`
	Timetable    WeeklyTimetable   `json:"timetable"`
}

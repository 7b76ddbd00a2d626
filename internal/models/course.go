package models

import "time"

// Course is a catalog entry that sections are offered against.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	CreditHours int       `db:"credit_hours" json:"credit_hours"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures search parameters for listing courses.
type CourseFilter struct {
	Search    string
	Code      string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

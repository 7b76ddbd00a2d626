package models

import (
	"fmt"
	"time"
)

// Classroom is a physical room sections are scheduled into.
// Building plus room number is unique.
type Classroom struct {
	ID              string    `db:"id" json:"id"`
	Building        string    `db:"building" json:"building"`
	RoomNumber      string    `db:"room_number" json:"room_number"`
	SeatingCapacity int       `db:"seating_capacity" json:"seating_capacity"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Label renders the human-readable room name used in timetables.
func (c Classroom) Label() string {
	return fmt.Sprintf("%s %s", c.Building, c.RoomNumber)
}

// ClassroomFilter captures search parameters for listing classrooms.
type ClassroomFilter struct {
	Building  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

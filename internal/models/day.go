package models

import "strings"

// DayOfWeek enumerates the seven weekly meeting days.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

// DaysOfWeek lists all days in calendar order. Timetable projections
// iterate this slice so every day appears exactly once.
var DaysOfWeek = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDayOfWeek resolves a day name case-insensitively.
func ParseDayOfWeek(raw string) (DayOfWeek, bool) {
	for _, day := range DaysOfWeek {
		if strings.EqualFold(string(day), raw) {
			return day, true
		}
	}
	return "", false
}

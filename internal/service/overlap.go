package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/univreg/registrar-api/internal/models"
)

// parseClock converts a wall-clock time string into minutes since
// midnight. Postgres TIME columns scan as "HH:MM:SS"; request payloads
// carry "HH:MM". Both forms are accepted.
func parseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}

// slotsOverlap reports whether two weekly meetings collide. Intervals
// are half-open: a slot ending at 10:30 does not overlap one starting
// at 10:30. Unparseable times count as overlapping so a malformed slot
// never slips past a guard.
func slotsOverlap(dayA models.DayOfWeek, startA, endA string, dayB models.DayOfWeek, startB, endB string) bool {
	if dayA != dayB {
		return false
	}
	sa, err := parseClock(startA)
	if err != nil {
		return true
	}
	ea, err := parseClock(endA)
	if err != nil {
		return true
	}
	sb, err := parseClock(startB)
	if err != nil {
		return true
	}
	eb, err := parseClock(endB)
	if err != nil {
		return true
	}
	return sa < eb && sb < ea
}

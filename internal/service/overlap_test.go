package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univreg/registrar-api/internal/models"
)

func TestParseClock(t *testing.T) {
	minutes, err := parseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)

	minutes, err = parseClock("09:30:00")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)

	_, err = parseClock("25:00")
	assert.Error(t, err)
	_, err = parseClock("nine thirty")
	assert.Error(t, err)
}

func TestSlotsOverlap(t *testing.T) {
	cases := []struct {
		name     string
		dayA     models.DayOfWeek
		startA   string
		endA     string
		dayB     models.DayOfWeek
		startB   string
		endB     string
		expected bool
	}{
		{"different days never overlap", models.Monday, "09:00", "10:00", models.Tuesday, "09:00", "10:00", false},
		{"partial overlap", models.Monday, "09:00", "10:30", models.Monday, "10:00", "11:00", true},
		{"containment", models.Monday, "09:00", "12:00", models.Monday, "10:00", "11:00", true},
		{"identical intervals", models.Monday, "09:00", "10:00", models.Monday, "09:00", "10:00", true},
		{"back to back is legal", models.Monday, "09:00", "10:30", models.Monday, "10:30", "12:00", false},
		{"disjoint", models.Monday, "08:00", "09:00", models.Monday, "11:00", "12:00", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := slotsOverlap(tc.dayA, tc.startA, tc.endA, tc.dayB, tc.startB, tc.endB)
			assert.Equal(t, tc.expected, got)

			// Overlap is symmetric.
			swapped := slotsOverlap(tc.dayB, tc.startB, tc.endB, tc.dayA, tc.startA, tc.endA)
			assert.Equal(t, tc.expected, swapped)
		})
	}
}

func TestSlotsOverlapMixedPrecision(t *testing.T) {
	// Database TIME values scan with seconds; payload times do not.
	assert.True(t, slotsOverlap(models.Friday, "09:00:00", "10:30:00", models.Friday, "10:00", "11:00"))
	assert.False(t, slotsOverlap(models.Friday, "09:00:00", "10:30:00", models.Friday, "10:30", "11:30"))
}

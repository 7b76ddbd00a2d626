package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univreg/registrar-api/internal/models"
	appErrors "github.com/univreg/registrar-api/pkg/errors"
)

type bookedSlot struct {
	classroomID string
	courseName  string
	slot        models.ScheduleSlot
}

type mockScheduleRepo struct {
	slots   map[string]*models.ScheduleSlot
	booked  []bookedSlot
	created *models.ScheduleSlot
	updated *models.ScheduleSlot
	deleted []string
}

func (m *mockScheduleRepo) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error) {
	var out []models.ScheduleSlot
	for _, s := range m.slots {
		if s.SectionID == sectionID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	if s, ok := m.slots[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = "slot-new"
	}
	m.created = slot
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	m.updated = slot
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockScheduleRepo) FindClassroomConflict(ctx context.Context, classroomID string, day models.DayOfWeek, start, end, excludeSlotID string) (*models.ClassroomConflict, error) {
	for _, b := range m.booked {
		if b.classroomID != classroomID {
			continue
		}
		if excludeSlotID != "" && b.slot.ID == excludeSlotID {
			continue
		}
		if slotsOverlap(day, start, end, b.slot.DayOfWeek, b.slot.StartTime, b.slot.EndTime) {
			return &models.ClassroomConflict{
				SlotID:      b.slot.ID,
				SectionID:   b.slot.SectionID,
				CourseName:  b.courseName,
				DayOfWeek:   b.slot.DayOfWeek,
				StartTime:   b.slot.StartTime,
				EndTime:     b.slot.EndTime,
				ClassroomID: classroomID,
			}, nil
		}
	}
	return nil, nil
}

type mockScheduleSectionReader struct {
	sections map[string]models.Section
}

func (m *mockScheduleSectionReader) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if s, ok := m.sections[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func newScheduleFixture() (*mockScheduleRepo, *mockScheduleSectionReader) {
	repo := &mockScheduleRepo{
		slots: map[string]*models.ScheduleSlot{
			"slot-1": {ID: "slot-1", SectionID: "sec-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:30"},
		},
		booked: []bookedSlot{
			{classroomID: "room-1", courseName: "Intro to Computing", slot: models.ScheduleSlot{
				ID: "slot-1", SectionID: "sec-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:30",
			}},
		},
	}
	sections := &mockScheduleSectionReader{sections: map[string]models.Section{
		"sec-1": {ID: "sec-1", ClassroomID: "room-1"},
		"sec-2": {ID: "sec-2", ClassroomID: "room-1"},
	}}
	return repo, sections
}

func TestScheduleCreateRejectsOverlappingWindow(t *testing.T) {
	repo, sections := newScheduleFixture()
	svc := NewScheduleService(repo, sections, nil, nil)

	// Monday 09:30-11:00 overlaps the existing 09:00-10:30 booking.
	_, err := svc.Create(context.Background(), "sec-2", ScheduleSlotRequest{
		DayOfWeek: "Monday", StartTime: "09:30", EndTime: "11:00",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrScheduleConflict)

	appErr := appErrors.FromError(err)
	conflict, ok := appErr.Details.(*models.ClassroomConflict)
	require.True(t, ok)
	assert.Equal(t, "slot-1", conflict.SlotID)
	assert.Equal(t, "Intro to Computing", conflict.CourseName)
}

func TestScheduleCreateAcceptsBackToBackWindow(t *testing.T) {
	repo, sections := newScheduleFixture()
	svc := NewScheduleService(repo, sections, nil, nil)

	slot, err := svc.Create(context.Background(), "sec-2", ScheduleSlotRequest{
		DayOfWeek: "Monday", StartTime: "10:30", EndTime: "12:00",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.Monday, slot.DayOfWeek)
	assert.Equal(t, "sec-2", slot.SectionID)
}

func TestScheduleCreateValidation(t *testing.T) {
	repo, sections := newScheduleFixture()
	svc := NewScheduleService(repo, sections, nil, nil)

	_, err := svc.Create(context.Background(), "sec-2", ScheduleSlotRequest{
		DayOfWeek: "Funday", StartTime: "09:00", EndTime: "10:00",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), "sec-2", ScheduleSlotRequest{
		DayOfWeek: "Monday", StartTime: "11:00", EndTime: "10:00",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), "sec-2", ScheduleSlotRequest{
		DayOfWeek: "Monday", StartTime: "10:00", EndTime: "10:00",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestScheduleUpdateExcludesOwnSlot(t *testing.T) {
	repo, sections := newScheduleFixture()
	svc := NewScheduleService(repo, sections, nil, nil)

	// Shifting slot-1 within its own window must not self-conflict.
	slot, err := svc.Update(context.Background(), "slot-1", ScheduleSlotRequest{
		DayOfWeek: "Monday", StartTime: "09:15", EndTime: "10:45",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:15", slot.StartTime)
	require.NotNil(t, repo.updated)
}

func TestScheduleIsAvailable(t *testing.T) {
	repo, sections := newScheduleFixture()
	svc := NewScheduleService(repo, sections, nil, nil)

	available, conflict, err := svc.IsAvailable(context.Background(), "room-1", "Monday", "09:30", "11:00")
	require.NoError(t, err)
	assert.False(t, available)
	require.NotNil(t, conflict)
	assert.Equal(t, "09:00", conflict.StartTime)

	available, conflict, err = svc.IsAvailable(context.Background(), "room-1", "Monday", "10:30", "12:00")
	require.NoError(t, err)
	assert.True(t, available)
	assert.Nil(t, conflict)

	available, conflict, err = svc.IsAvailable(context.Background(), "room-1", "Tuesday", "09:00", "10:00")
	require.NoError(t, err)
	assert.True(t, available)
	assert.Nil(t, conflict)

	_, _, err = svc.IsAvailable(context.Background(), "room-1", "Noday", "09:00", "10:00")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestScheduleDelete(t *testing.T) {
	repo, sections := newScheduleFixture()
	svc := NewScheduleService(repo, sections, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "slot-1"))
	assert.Equal(t, []string{"slot-1"}, repo.deleted)

	err := svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

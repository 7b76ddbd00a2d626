package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/univreg/registrar-api/internal/models"
	appErrors "github.com/univreg/registrar-api/pkg/errors"
)

type scheduleRepository interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	Update(ctx context.Context, slot *models.ScheduleSlot) error
	Delete(ctx context.Context, id string) error
	FindClassroomConflict(ctx context.Context, classroomID string, day models.DayOfWeek, start, end, excludeSlotID string) (*models.ClassroomConflict, error)
}

type scheduleSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// ScheduleSlotRequest describes slot creation and update payloads.
type ScheduleSlotRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ScheduleService manages weekly meeting slots and guards classroom
// double-booking at authoring time. Enrollment never consults it.
type ScheduleService struct {
	repo      scheduleRepository
	sections  scheduleSectionReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleRepository, sections scheduleSectionReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, sections: sections, validator: validate, logger: logger}
}

// ListBySection returns a section's slots.
func (s *ScheduleService) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}
	slots, err := s.repo.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}
	return slots, nil
}

// validateSlot normalises the day name and checks the time window.
func (s *ScheduleService) validateSlot(req ScheduleSlotRequest) (models.DayOfWeek, error) {
	day, ok := models.ParseDayOfWeek(req.DayOfWeek)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", req.DayOfWeek))
	}
	start, err := parseClock(req.StartTime)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "start_time must be a valid HH:MM value")
	}
	end, err := parseClock(req.EndTime)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "end_time must be a valid HH:MM value")
	}
	if start >= end {
		return "", appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return day, nil
}

// Detect returns the earliest-starting booked slot that overlaps the
// proposed window in the classroom, or nil when the room is free.
func (s *ScheduleService) Detect(ctx context.Context, classroomID string, day models.DayOfWeek, start, end, excludeSlotID string) (*models.ClassroomConflict, error) {
	conflict, err := s.repo.FindClassroomConflict(ctx, classroomID, day, start, end, excludeSlotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom availability")
	}
	return conflict, nil
}

// IsAvailable answers whether a classroom is free for the given window.
// The conflicting slot, when present, is returned for context.
func (s *ScheduleService) IsAvailable(ctx context.Context, classroomID, dayRaw, start, end string) (bool, *models.ClassroomConflict, error) {
	day, err := s.validateSlot(ScheduleSlotRequest{DayOfWeek: dayRaw, StartTime: start, EndTime: end})
	if err != nil {
		return false, nil, err
	}
	conflict, err := s.Detect(ctx, classroomID, day, start, end, "")
	if err != nil {
		return false, nil, err
	}
	return conflict == nil, conflict, nil
}

// Create adds a meeting slot to a section after checking that the
// section's classroom is free for the window.
func (s *ScheduleService) Create(ctx context.Context, sectionID string, req ScheduleSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	day, err := s.validateSlot(req)
	if err != nil {
		return nil, err
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}

	conflict, err := s.Detect(ctx, section.ClassroomID, day, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, appErrors.WithDetails(appErrors.ErrScheduleConflict, "classroom is already booked for this time", conflict)
	}

	slot := &models.ScheduleSlot{
		SectionID: sectionID,
		DayOfWeek: day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule slot")
	}
	s.logger.Info("schedule slot created",
		zap.String("slot_id", slot.ID),
		zap.String("section_id", sectionID),
		zap.String("day", string(day)))
	return slot, nil
}

// Update moves an existing slot. The slot itself is excluded from the
// double-booking check so in-place edits do not self-conflict.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	day, err := s.validateSlot(req)
	if err != nil {
		return nil, err
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch schedule slot")
	}

	section, err := s.sections.FindByID(ctx, slot.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}

	conflict, err := s.Detect(ctx, section.ClassroomID, day, req.StartTime, req.EndTime, slot.ID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, appErrors.WithDetails(appErrors.ErrScheduleConflict, "classroom is already booked for this time", conflict)
	}

	slot.DayOfWeek = day
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule slot")
	}
	return slot, nil
}

// Delete removes a slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch schedule slot")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule slot")
	}
	return nil
}

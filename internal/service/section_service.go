package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/univreg/registrar-api/internal/models"
	appErrors "github.com/univreg/registrar-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type classroomReader interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

// CreateSectionRequest describes section creation payload.
type CreateSectionRequest struct {
	CourseID       string `json:"course_id" validate:"required"`
	ClassroomID    string `json:"classroom_id" validate:"required"`
	SectionNumber  string `json:"section_number" validate:"required"`
	InstructorName string `json:"instructor_name" validate:"required"`
	MaxCapacity    int    `json:"max_capacity" validate:"required,gt=0"`
	Semester       string `json:"semester" validate:"required"`
	AcademicYear   int    `json:"academic_year" validate:"required,gte=2000"`
}

// UpdateSectionRequest describes section update payload.
type UpdateSectionRequest struct {
	ClassroomID    string `json:"classroom_id" validate:"required"`
	SectionNumber  string `json:"section_number" validate:"required"`
	InstructorName string `json:"instructor_name" validate:"required"`
	MaxCapacity    int    `json:"max_capacity" validate:"required,gt=0"`
	Semester       string `json:"semester" validate:"required"`
	AcademicYear   int    `json:"academic_year" validate:"required,gte=2000"`
}

// SectionService manages course sections. The enrollment counter is out
// of its reach except for the guards on update and delete.
type SectionService struct {
	repo       sectionRepository
	courses    courseReader
	classrooms classroomReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, courses courseReader, classrooms classroomReader, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, courses: courses, classrooms: classrooms, validator: validate, logger: logger}
}

// List returns sections with pagination metadata.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a section with course and classroom context.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}
	return detail, nil
}

// Create registers a new section against an existing course and classroom.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}
	if _, err := s.classrooms.FindByID(ctx, req.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch classroom")
	}

	section := &models.Section{
		CourseID:       req.CourseID,
		ClassroomID:    req.ClassroomID,
		SectionNumber:  req.SectionNumber,
		InstructorName: req.InstructorName,
		MaxCapacity:    req.MaxCapacity,
		Semester:       req.Semester,
		AcademicYear:   req.AcademicYear,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	s.logger.Info("section created",
		zap.String("section_id", section.ID),
		zap.String("course_id", section.CourseID))
	return section, nil
}

// Update modifies a section. Shrinking max capacity below the current
// enrollment count is rejected so the capacity invariant holds.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}

	if req.MaxCapacity < section.CurrentEnrollment {
		return nil, appErrors.Clone(appErrors.ErrCapacityBelowEnrollment, "")
	}

	if req.ClassroomID != section.ClassroomID {
		if _, err := s.classrooms.FindByID(ctx, req.ClassroomID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch classroom")
		}
	}

	section.ClassroomID = req.ClassroomID
	section.SectionNumber = req.SectionNumber
	section.InstructorName = req.InstructorName
	section.MaxCapacity = req.MaxCapacity
	section.Semester = req.Semester
	section.AcademicYear = req.AcademicYear
	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}

// Delete removes a section unless students are still enrolled.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}

	if section.CurrentEnrollment > 0 {
		return appErrors.Clone(appErrors.ErrSectionHasEnrollments, "")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	s.logger.Info("section deleted", zap.String("section_id", id))
	return nil
}

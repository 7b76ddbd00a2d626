package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/univreg/registrar-api/internal/models"
	appErrors "github.com/univreg/registrar-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus, droppedAt *time.Time) error
	ListActiveSlotsByStudent(ctx context.Context, studentID string) ([]models.StudentSlotRow, error)
}

type sectionLedger interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	IncrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error)
	DecrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error)
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type sectionSlotLister interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error)
}

// EnrollRequest describes the enrollment creation payload.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// EnrollmentService coordinates the registration workflow: duplicate
// and timetable checks up front, then the enrollment record and the
// seat counter written in one transaction.
type EnrollmentService struct {
	db        *sqlx.DB
	repo      enrollmentRepository
	sections  sectionLedger
	students  enrollmentStudentReader
	slots     sectionSlotLister
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(db *sqlx.DB, repo enrollmentRepository, sections sectionLedger, students enrollmentStudentReader, slots sectionSlotLister, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		db:        db,
		repo:      repo,
		sections:  sections,
		students:  students,
		slots:     slots,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with student and section context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch enrollment")
	}
	return detail, nil
}

// Enroll registers a student into a section. The capacity pre-check is
// advisory only; the conditional increment inside the transaction is
// what actually decides the last seat, so two racing requests cannot
// both succeed.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	exists, err := s.repo.ExistsActive(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		s.metrics.RecordEnrollment("enroll", "duplicate")
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch section")
	}
	if !section.HasAvailableCapacity() {
		s.metrics.RecordEnrollment("enroll", "full")
		return nil, appErrors.Clone(appErrors.ErrSectionFull, "")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.Status != models.StudentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student status %s does not allow enrollment", student.Status))
	}

	conflicts, err := s.detectTimetableConflicts(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		s.metrics.RecordEnrollment("enroll", "conflict")
		return nil, appErrors.WithDetails(appErrors.ErrScheduleConflict, "section conflicts with the student's current timetable", conflicts)
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, SectionID: req.SectionID}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin enrollment transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.sections.IncrementEnrollmentTx(ctx, tx, req.SectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race for the last seat between pre-check and here.
			s.metrics.RecordEnrollment("enroll", "full")
			return nil, appErrors.Clone(appErrors.ErrSectionFull, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
	}

	if err := s.repo.CreateTx(ctx, tx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollment")
	}

	s.invalidateTimetable(ctx, req.StudentID)
	s.metrics.RecordEnrollment("enroll", "success")
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("section_id", req.SectionID))

	return s.Get(ctx, enrollment.ID)
}

// Drop transitions an ENROLLED record to DROPPED and releases its seat
// in the same transaction.
func (s *EnrollmentService) Drop(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch enrollment")
	}

	if enrollment.Status != models.EnrollmentStatusEnrolled {
		s.metrics.RecordEnrollment("drop", "invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("enrollment in status %s cannot be dropped", enrollment.Status))
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin drop transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.repo.UpdateStatusTx(ctx, tx, id, models.EnrollmentStatusDropped, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}

	if _, err := s.sections.DecrementEnrollmentTx(ctx, tx, enrollment.SectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// An ENROLLED record with a zero counter means the ledger
			// invariant was already broken outside this service.
			s.logger.Error("enrollment counter already zero during drop",
				zap.String("enrollment_id", id),
				zap.String("section_id", enrollment.SectionID))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enrollment counter out of sync")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit drop")
	}

	s.invalidateTimetable(ctx, enrollment.StudentID)
	s.metrics.RecordEnrollment("drop", "success")
	s.logger.Info("enrollment dropped",
		zap.String("enrollment_id", id),
		zap.String("student_id", enrollment.StudentID))

	return s.Get(ctx, id)
}

// detectTimetableConflicts compares every meeting slot of the candidate
// section against every slot the student is already committed to.
func (s *EnrollmentService) detectTimetableConflicts(ctx context.Context, studentID, sectionID string) ([]models.TimetableConflict, error) {
	candidate, err := s.slots.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section slots")
	}
	existing, err := s.repo.ListActiveSlotsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student timetable")
	}

	var conflicts []models.TimetableConflict
	for _, slot := range candidate {
		for _, row := range existing {
			if slotsOverlap(slot.DayOfWeek, slot.StartTime, slot.EndTime, row.DayOfWeek, row.StartTime, row.EndTime) {
				conflicts = append(conflicts, models.TimetableConflict{
					DayOfWeek:         slot.DayOfWeek,
					NewStartTime:      slot.StartTime,
					NewEndTime:        slot.EndTime,
					ExistingCourse:    row.CourseName,
					ExistingStartTime: row.StartTime,
					ExistingEndTime:   row.EndTime,
				})
			}
		}
	}
	return conflicts, nil
}

func (s *EnrollmentService) invalidateTimetable(ctx context.Context, studentID string) {
	if err := s.cache.InvalidateTimetable(ctx, studentID); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

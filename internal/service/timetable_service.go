package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/univreg/registrar-api/internal/models"
	appErrors "github.com/univreg/registrar-api/pkg/errors"
	"github.com/univreg/registrar-api/pkg/export"
)

type timetableEnrollmentReader interface {
	ListActiveSlotsByStudent(ctx context.Context, studentID string) ([]models.StudentSlotRow, error)
	ListActiveDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type timetableStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

var timetableExportHeaders = []string{"Day", "Start Time", "End Time", "Course Code", "Course Name", "Section", "Instructor", "Classroom"}

// TimetableService projects a student's active enrollments into weekly
// and per-day views and renders exports. It only ever reads; all views
// are derived from ENROLLED records at call time.
type TimetableService struct {
	repo     timetableEnrollmentReader
	students timetableStudentReader
	cache    *CacheService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewTimetableService constructs TimetableService.
func NewTimetableService(repo timetableEnrollmentReader, students timetableStudentReader, cache *CacheService, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:     repo,
		students: students,
		cache:    cache,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Weekly returns the student's timetable keyed by all seven days, each
// day sorted by start time. Ties keep enrollment order stable.
func (s *TimetableService) Weekly(ctx context.Context, studentID string) (models.WeeklyTimetable, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	key := TimetableKey(studentID)
	var cached models.WeeklyTimetable
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	rows, err := s.repo.ListActiveSlotsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}

	timetable := buildWeekly(rows)

	if err := s.cache.Set(ctx, key, timetable, 0); err != nil {
		s.logger.Warn("failed to cache timetable", zap.String("student_id", studentID), zap.Error(err))
	}
	return timetable, nil
}

// Day returns the timetable entries for a single named day.
func (s *TimetableService) Day(ctx context.Context, studentID, dayRaw string) (models.DayOfWeek, []models.TimetableEntry, error) {
	day, ok := models.ParseDayOfWeek(dayRaw)
	if !ok {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", dayRaw))
	}
	weekly, err := s.Weekly(ctx, studentID)
	if err != nil {
		return "", nil, err
	}
	return day, weekly[day], nil
}

// Export builds the summary projection: weekly timetable plus distinct
// course count and credit totals. A course meeting three times a week
// still counts once.
func (s *TimetableService) Export(ctx context.Context, studentID string) (*models.TimetableExport, error) {
	weekly, err := s.Weekly(ctx, studentID)
	if err != nil {
		return nil, err
	}

	details, err := s.repo.ListActiveDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	courses := make(map[string]string)
	totalCredits := 0
	for _, detail := range details {
		if _, seen := courses[detail.CourseCode]; seen {
			continue
		}
		courses[detail.CourseCode] = detail.CourseName
		totalCredits += detail.CreditHours
	}

	return &models.TimetableExport{
		StudentID:    studentID,
		TotalCourses: len(courses),
		TotalCredits: totalCredits,
		Courses:      courses,
		Timetable:    weekly,
	}, nil
}

// RenderCSV renders the weekly timetable as CSV bytes.
func (s *TimetableService) RenderCSV(ctx context.Context, studentID string) ([]byte, error) {
	weekly, err := s.Weekly(ctx, studentID)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(timetableDataset(weekly))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// RenderPDF renders the weekly timetable as a PDF document.
func (s *TimetableService) RenderPDF(ctx context.Context, studentID string) ([]byte, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	weekly, err := s.Weekly(ctx, studentID)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Weekly Timetable - %s", student.FullName)
	payload, err := s.pdf.Render(timetableDataset(weekly), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

func buildWeekly(rows []models.StudentSlotRow) models.WeeklyTimetable {
	timetable := make(models.WeeklyTimetable, len(models.DaysOfWeek))
	for _, day := range models.DaysOfWeek {
		timetable[day] = []models.TimetableEntry{}
	}
	for _, row := range rows {
		entry := models.TimetableEntry{
			EnrollmentID:   row.EnrollmentID,
			CourseCode:     row.CourseCode,
			CourseName:     row.CourseName,
			SectionNumber:  row.SectionNumber,
			InstructorName: row.InstructorName,
			Classroom:      strings.TrimSpace(row.Building + " " + row.RoomNumber),
			StartTime:      row.StartTime,
			EndTime:        row.EndTime,
		}
		timetable[row.DayOfWeek] = append(timetable[row.DayOfWeek], entry)
	}
	for _, day := range models.DaysOfWeek {
		entries := timetable[day]
		sort.SliceStable(entries, func(i, j int) bool {
			a, _ := parseClock(entries[i].StartTime)
			b, _ := parseClock(entries[j].StartTime)
			return a < b
		})
	}
	return timetable
}

func timetableDataset(weekly models.WeeklyTimetable) export.Dataset {
	var rows []map[string]string
	for _, day := range models.DaysOfWeek {
		for _, entry := range weekly[day] {
			rows = append(rows, map[string]string{
				"Day":         string(day),
				"Start Time":  entry.StartTime,
				"End Time":    entry.EndTime,
				"Course Code": entry.CourseCode,
				"Course Name": entry.CourseName,
				"Section":     entry.SectionNumber,
				"Instructor":  entry.InstructorName,
				"Classroom":   entry.Classroom,
			})
		}
	}
	return export.Dataset{Headers: timetableExportHeaders, Rows: rows}
}

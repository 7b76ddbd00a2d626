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

type mockSectionRepo struct {
	sections map[string]*models.Section
	deleted  []string
	updated  *models.Section
}

func (m *mockSectionRepo) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	return nil, 0, nil
}

func (m *mockSectionRepo) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if s, ok := m.sections[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionRepo) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if s, ok := m.sections[id]; ok {
		return &models.SectionDetail{Section: *s}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionRepo) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = "sec-new"
	}
	if m.sections == nil {
		m.sections = make(map[string]*models.Section)
	}
	m.sections[section.ID] = section
	return nil
}

func (m *mockSectionRepo) Update(ctx context.Context, section *models.Section) error {
	m.updated = section
	m.sections[section.ID] = section
	return nil
}

func (m *mockSectionRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.sections, id)
	return nil
}

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassroomReader struct {
	classrooms map[string]models.Classroom
}

func (m *mockClassroomReader) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if c, ok := m.classrooms[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func newSectionFixture() (*mockSectionRepo, *mockCourseReader, *mockClassroomReader) {
	repo := &mockSectionRepo{sections: map[string]*models.Section{
		"sec-1": {
			ID: "sec-1", CourseID: "crs-1", ClassroomID: "room-1", SectionNumber: "A",
			InstructorName: "Dr. Reyes", MaxCapacity: 30, CurrentEnrollment: 12,
			Semester: "FALL", AcademicYear: 2026,
		},
	}}
	courses := &mockCourseReader{courses: map[string]models.Course{
		"crs-1": {ID: "crs-1", Code: "CS101", Name: "Intro to Computing", CreditHours: 3},
	}}
	classrooms := &mockClassroomReader{classrooms: map[string]models.Classroom{
		"room-1": {ID: "room-1", Building: "Science Hall", RoomNumber: "204", SeatingCapacity: 40},
	}}
	return repo, courses, classrooms
}

func TestSectionCreate(t *testing.T) {
	repo, courses, classrooms := newSectionFixture()
	svc := NewSectionService(repo, courses, classrooms, nil, nil)

	section, err := svc.Create(context.Background(), CreateSectionRequest{
		CourseID: "crs-1", ClassroomID: "room-1", SectionNumber: "B",
		InstructorName: "Dr. Chan", MaxCapacity: 25, Semester: "FALL", AcademicYear: 2026,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, section.CurrentEnrollment)
	assert.NotEmpty(t, section.ID)
}

func TestSectionCreateUnknownCourse(t *testing.T) {
	repo, courses, classrooms := newSectionFixture()
	svc := NewSectionService(repo, courses, classrooms, nil, nil)

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		CourseID: "missing", ClassroomID: "room-1", SectionNumber: "B",
		InstructorName: "Dr. Chan", MaxCapacity: 25, Semester: "FALL", AcademicYear: 2026,
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSectionUpdateCapacityBelowEnrollment(t *testing.T) {
	repo, courses, classrooms := newSectionFixture()
	svc := NewSectionService(repo, courses, classrooms, nil, nil)

	// 12 students are enrolled; shrinking to 10 must fail.
	_, err := svc.Update(context.Background(), "sec-1", UpdateSectionRequest{
		ClassroomID: "room-1", SectionNumber: "A", InstructorName: "Dr. Reyes",
		MaxCapacity: 10, Semester: "FALL", AcademicYear: 2026,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCapacityBelowEnrollment)
	assert.Nil(t, repo.updated)
}

func TestSectionUpdateCapacityAtEnrollment(t *testing.T) {
	repo, courses, classrooms := newSectionFixture()
	svc := NewSectionService(repo, courses, classrooms, nil, nil)

	// Shrinking exactly to the current enrollment is legal.
	section, err := svc.Update(context.Background(), "sec-1", UpdateSectionRequest{
		ClassroomID: "room-1", SectionNumber: "A", InstructorName: "Dr. Reyes",
		MaxCapacity: 12, Semester: "FALL", AcademicYear: 2026,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, section.MaxCapacity)
	assert.Equal(t, 12, section.CurrentEnrollment)
}

func TestSectionDeleteWithEnrollments(t *testing.T) {
	repo, courses, classrooms := newSectionFixture()
	svc := NewSectionService(repo, courses, classrooms, nil, nil)

	err := svc.Delete(context.Background(), "sec-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSectionHasEnrollments)
	assert.Empty(t, repo.deleted)
}

func TestSectionDeleteEmptySection(t *testing.T) {
	repo, courses, classrooms := newSectionFixture()
	repo.sections["sec-1"].CurrentEnrollment = 0
	svc := NewSectionService(repo, courses, classrooms, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "sec-1"))
	assert.Equal(t, []string{"sec-1"}, repo.deleted)
}

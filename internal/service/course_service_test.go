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

type mockCourseRepo struct {
	courses map[string]*models.Course
	deleted []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "crs-new"
	}
	if m.courses == nil {
		m.courses = make(map[string]*models.Course)
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.courses, id)
	return nil
}

type mockSectionCounter struct {
	counts map[string]int
}

func (m *mockSectionCounter) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return m.counts[courseID], nil
}

func TestCourseCreateDuplicateCode(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Code: "CS101", Name: "Intro to Computing", CreditHours: 3, Active: true},
	}}
	svc := NewCourseService(repo, &mockSectionCounter{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS101", Name: "Other", CreditHours: 3})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestCourseCreateRejectsZeroCredits(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, &mockSectionCounter{}, nil, nil)
	_, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS101", Name: "Intro", CreditHours: 0})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCourseDeleteBlockedBySections(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Code: "CS101", Name: "Intro to Computing", CreditHours: 3, Active: true},
	}}
	counter := &mockSectionCounter{counts: map[string]int{"crs-1": 2}}
	svc := NewCourseService(repo, counter, nil, nil)

	err := svc.Delete(context.Background(), "crs-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrHasDependents)
	assert.Empty(t, repo.deleted)
}

func TestCourseDeleteWithoutSections(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Code: "CS101", Name: "Intro to Computing", CreditHours: 3, Active: true},
	}}
	svc := NewCourseService(repo, &mockSectionCounter{}, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "crs-1"))
	assert.Equal(t, []string{"crs-1"}, repo.deleted)
}

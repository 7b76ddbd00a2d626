package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/univreg/registrar-api/internal/models"
	"github.com/univreg/registrar-api/internal/service"
)

type enrollmentRepoMock struct {
	existsActive bool
	enrollment   *models.Enrollment
	detail       *models.EnrollmentDetail
}

func (m *enrollmentRepoMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if m.detail == nil {
		return nil, 0, nil
	}
	return []models.EnrollmentDetail{*m.detail}, 1, nil
}

func (m *enrollmentRepoMock) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.enrollment == nil || m.enrollment.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *enrollmentRepoMock) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *enrollmentRepoMock) ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error) {
	return m.existsActive, nil
}

func (m *enrollmentRepoMock) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-1"
	enrollment.Status = models.EnrollmentStatusEnrolled
	m.enrollment = enrollment
	m.detail = &models.EnrollmentDetail{Enrollment: *enrollment, CourseCode: "CS101", CourseName: "Intro to CS"}
	return nil
}

func (m *enrollmentRepoMock) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus, droppedAt *time.Time) error {
	if m.enrollment != nil {
		m.enrollment.Status = status
		m.enrollment.DroppedAt = droppedAt
		m.detail.Status = status
	}
	return nil
}

func (m *enrollmentRepoMock) ListActiveSlotsByStudent(ctx context.Context, studentID string) ([]models.StudentSlotRow, error) {
	return nil, nil
}

type sectionLedgerMock struct {
	section *models.Section
}

func (m *sectionLedgerMock) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if m.section == nil || m.section.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.section, nil
}

func (m *sectionLedgerMock) IncrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error) {
	if !m.section.HasAvailableCapacity() {
		return nil, sql.ErrNoRows
	}
	m.section.CurrentEnrollment++
	return m.section, nil
}

func (m *sectionLedgerMock) DecrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error) {
	if m.section.CurrentEnrollment == 0 {
		return nil, sql.ErrNoRows
	}
	m.section.CurrentEnrollment--
	return m.section, nil
}

type studentReaderMock struct {
	student *models.Student
}

func (m *studentReaderMock) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.student == nil || m.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type slotListerMock struct{}

func (m *slotListerMock) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error) {
	return nil, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newEnrollmentHandler(t *testing.T, repo *enrollmentRepoMock, sections *sectionLedgerMock, students *studentReaderMock) (*EnrollmentHandler, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")
	svc := service.NewEnrollmentService(db, repo, sections, students, &slotListerMock{}, nil, nil, nil, nil)
	return NewEnrollmentHandler(svc), mock
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestEnrollmentHandlerEnrollCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &enrollmentRepoMock{}
	sections := &sectionLedgerMock{section: &models.Section{ID: "sec-1", MaxCapacity: 30, CurrentEnrollment: 5}}
	students := &studentReaderMock{student: &models.Student{ID: "stu-1", Status: models.StudentStatusActive}}
	handler, mock := newEnrollmentHandler(t, repo, sections, students)
	mock.ExpectBegin()
	mock.ExpectCommit()

	payload, _ := json.Marshal(service.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)

	handler.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeEnvelope(t, w)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "enr-1", data["id"])
	require.Equal(t, string(models.EnrollmentStatusEnrolled), data["status"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentHandlerEnrollDuplicateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &enrollmentRepoMock{existsActive: true}
	sections := &sectionLedgerMock{section: &models.Section{ID: "sec-1", MaxCapacity: 30}}
	students := &studentReaderMock{student: &models.Student{ID: "stu-1", Status: models.StudentStatusActive}}
	handler, _ := newEnrollmentHandler(t, repo, sections, students)

	payload, _ := json.Marshal(service.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)

	handler.Enroll(c)
	require.Equal(t, http.StatusConflict, w.Code)

	body := decodeEnvelope(t, w)
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "DUPLICATE_ENROLLMENT", errObj["code"])
}

func TestEnrollmentHandlerEnrollSectionFull(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &enrollmentRepoMock{}
	sections := &sectionLedgerMock{section: &models.Section{ID: "sec-1", MaxCapacity: 10, CurrentEnrollment: 10}}
	students := &studentReaderMock{student: &models.Student{ID: "stu-1", Status: models.StudentStatusActive}}
	handler, _ := newEnrollmentHandler(t, repo, sections, students)

	payload, _ := json.Marshal(service.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)

	handler.Enroll(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decodeEnvelope(t, w)
	errObj := body["error"].(map[string]interface{})
	require.Equal(t, "SECTION_FULL", errObj["code"])
}

func TestEnrollmentHandlerEnrollInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newEnrollmentHandler(t, &enrollmentRepoMock{}, &sectionLedgerMock{}, &studentReaderMock{})

	c, w := newGinContext(http.MethodPost, "/enrollments", []byte("{not json"))

	handler.Enroll(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerDropNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newEnrollmentHandler(t, &enrollmentRepoMock{}, &sectionLedgerMock{}, &studentReaderMock{})

	c, w := newGinContext(http.MethodPost, "/enrollments/missing/drop", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Drop(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	body := decodeEnvelope(t, w)
	errObj := body["error"].(map[string]interface{})
	require.Equal(t, "NOT_FOUND", errObj["code"])
}

func TestEnrollmentHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &enrollmentRepoMock{
		detail: &models.EnrollmentDetail{
			Enrollment: models.Enrollment{ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled},
			CourseCode: "CS101",
		},
	}
	handler, _ := newEnrollmentHandler(t, repo, &sectionLedgerMock{}, &studentReaderMock{})

	c, w := newGinContext(http.MethodGet, "/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeEnvelope(t, w)
	data := body["data"].(map[string]interface{})
	require.Equal(t, "CS101", data["course_code"])
}

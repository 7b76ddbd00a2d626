package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/univreg/registrar-api/internal/models"
	"github.com/univreg/registrar-api/internal/service"
)

type timetableRepoMock struct {
	rows    []models.StudentSlotRow
	details []models.EnrollmentDetail
}

func (m *timetableRepoMock) ListActiveSlotsByStudent(ctx context.Context, studentID string) ([]models.StudentSlotRow, error) {
	return m.rows, nil
}

func (m *timetableRepoMock) ListActiveDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.details, nil
}

func newTimetableHandler(student *models.Student, repo *timetableRepoMock) *TimetableHandler {
	students := &studentReaderMock{student: student}
	svc := service.NewTimetableService(repo, students, nil, nil)
	return NewTimetableHandler(svc)
}

func timetableFixtureRows() []models.StudentSlotRow {
	return []models.StudentSlotRow{
		{
			EnrollmentID: "enr-1", SectionID: "sec-1", SlotID: "slot-1",
			CourseCode: "CS101", CourseName: "Intro to CS", CreditHours: 3,
			SectionNumber: "001", InstructorName: "Dr. Reyes",
			Building: "Science Hall", RoomNumber: "204",
			DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:30",
		},
		{
			EnrollmentID: "enr-2", SectionID: "sec-2", SlotID: "slot-2",
			CourseCode: "MA201", CourseName: "Calculus II", CreditHours: 4,
			SectionNumber: "002", InstructorName: "Dr. Ito",
			Building: "Math Building", RoomNumber: "101",
			DayOfWeek: models.Monday, StartTime: "08:00", EndTime: "09:00",
		},
	}
}

func TestTimetableHandlerWeekly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(
		&models.Student{ID: "stu-1", FullName: "Alex Chen", Status: models.StudentStatusActive},
		&timetableRepoMock{rows: timetableFixtureRows()},
	)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/timetable", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Weekly(c)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeEnvelope(t, w)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	require.Len(t, data, 7)

	monday, ok := data["Monday"].([]interface{})
	require.True(t, ok)
	require.Len(t, monday, 2)
	first := monday[0].(map[string]interface{})
	require.Equal(t, "MA201", first["course_code"])
}

func TestTimetableHandlerWeeklyUnknownStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(nil, &timetableRepoMock{})

	c, w := newGinContext(http.MethodGet, "/students/ghost/timetable", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Weekly(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerDayInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(
		&models.Student{ID: "stu-1", Status: models.StudentStatusActive},
		&timetableRepoMock{},
	)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/timetable/Caturday", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}, {Key: "day", Value: "Caturday"}}

	handler.Day(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decodeEnvelope(t, w)
	errObj := body["error"].(map[string]interface{})
	require.Equal(t, "VALIDATION_ERROR", errObj["code"])
}

func TestTimetableHandlerDayCaseInsensitive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(
		&models.Student{ID: "stu-1", Status: models.StudentStatusActive},
		&timetableRepoMock{rows: timetableFixtureRows()},
	)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/timetable/monday", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}, {Key: "day", Value: "monday"}}

	handler.Day(c)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeEnvelope(t, w)
	data := body["data"].(map[string]interface{})
	require.Equal(t, "Monday", data["day"])
	entries := data["entries"].([]interface{})
	require.Len(t, entries, 2)
}

func TestTimetableHandlerExportJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rows := timetableFixtureRows()
	details := []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-1"}, CourseCode: "CS101", CourseName: "Intro to CS", CreditHours: 3},
		{Enrollment: models.Enrollment{ID: "enr-2"}, CourseCode: "MA201", CourseName: "Calculus II", CreditHours: 4},
	}
	handler := newTimetableHandler(
		&models.Student{ID: "stu-1", FullName: "Alex Chen", Status: models.StudentStatusActive},
		&timetableRepoMock{rows: rows, details: details},
	)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/timetable-export", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeEnvelope(t, w)
	data := body["data"].(map[string]interface{})
	require.Equal(t, float64(2), data["total_courses"])
	require.Equal(t, float64(7), data["total_credits"])
}

func TestTimetableHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(
		&models.Student{ID: "stu-1", FullName: "Alex Chen", Status: models.StudentStatusActive},
		&timetableRepoMock{rows: timetableFixtureRows()},
	)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/timetable-export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "timetable-stu-1.csv")
	require.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	require.True(t, strings.HasPrefix(w.Body.String(), "Day,"))
}

func TestTimetableHandlerExportPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(
		&models.Student{ID: "stu-1", FullName: "Alex Chen", Status: models.StudentStatusActive},
		&timetableRepoMock{rows: timetableFixtureRows()},
	)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/timetable-export?format=pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestTimetableHandlerExportUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(
		&models.Student{ID: "stu-1", Status: models.StudentStatusActive},
		&timetableRepoMock{},
	)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/timetable-export?format=xml", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Export(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

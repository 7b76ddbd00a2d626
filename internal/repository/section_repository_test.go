package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/univreg/registrar-api/internal/models"
)

func newSectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sectionRows(currentEnrollment int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "course_id", "classroom_id", "section_number", "instructor_name",
		"max_capacity", "current_enrollment", "semester", "academic_year", "created_at", "updated_at",
	}).AddRow("sec-1", "crs-1", "room-1", "A", "Dr. Reyes", 30, currentEnrollment, "FALL", 2026, now, now)
}

func TestSectionRepositoryIncrementEnrollmentTx(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SET current_enrollment = current_enrollment + 1")).
		WillReturnRows(sectionRows(21))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	section, err := repo.IncrementEnrollmentTx(context.Background(), tx, "sec-1")
	require.NoError(t, err)
	require.Equal(t, 21, section.CurrentEnrollment)

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryIncrementEnrollmentTxFull(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	// The guard in the WHERE clause matches no row when the section is
	// already at capacity.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SET current_enrollment = current_enrollment + 1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	_, err = repo.IncrementEnrollmentTx(context.Background(), tx, "sec-1")
	require.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryDecrementEnrollmentTx(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SET current_enrollment = current_enrollment - 1")).
		WillReturnRows(sectionRows(19))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	section, err := repo.DecrementEnrollmentTx(context.Background(), tx, "sec-1")
	require.NoError(t, err)
	require.Equal(t, 19, section.CurrentEnrollment)

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery("SELECT id, course_id, classroom_id").
		WithArgs("sec-1").
		WillReturnRows(sectionRows(20))

	section, err := repo.FindByID(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, "sec-1", section.ID)
	require.Equal(t, 30, section.MaxCapacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListHasAvailability(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "course_id", "classroom_id", "section_number", "instructor_name",
		"max_capacity", "current_enrollment", "semester", "academic_year", "created_at", "updated_at",
		"course_code", "course_name", "course_credit_hours", "building", "room_number",
	}).AddRow("sec-1", "crs-1", "room-1", "A", "Dr. Reyes", 30, 20, "FALL", 2026, now, now,
		"CS101", "Intro to Computing", 3, "Science Hall", "204")

	mock.ExpectQuery(regexp.QuoteMeta("s.current_enrollment < s.max_capacity")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sections, total, err := repo.List(context.Background(), models.SectionFilter{HasAvailability: true})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, sections, 1)
	require.Equal(t, "CS101", sections[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/univreg/registrar-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryListBySection(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "section_id", "day_of_week", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("slot-1", "sec-1", models.Monday, "09:00", "10:30", now, now).
		AddRow("slot-2", "sec-1", models.Wednesday, "09:00", "10:30", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_slots WHERE section_id = $1 ORDER BY day_of_week, start_time")).
		WithArgs("sec-1").
		WillReturnRows(rows)

	slots, err := repo.ListBySection(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindClassroomConflict(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "section_id", "course_name", "day_of_week", "start_time", "end_time", "classroom_id"}).
		AddRow("slot-1", "sec-1", "Intro to Computing", models.Monday, "09:00", "10:30", "room-1")
	mock.ExpectQuery(regexp.QuoteMeta("sl.start_time < $4 AND sl.end_time > $3")).
		WithArgs("room-1", models.Monday, "10:00", "11:00").
		WillReturnRows(rows)

	conflict, err := repo.FindClassroomConflict(context.Background(), "room-1", models.Monday, "10:00", "11:00", "")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	require.Equal(t, "Intro to Computing", conflict.CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindClassroomConflictFree(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "section_id", "course_name", "day_of_week", "start_time", "end_time", "classroom_id"})
	mock.ExpectQuery(regexp.QuoteMeta("sl.start_time < $4 AND sl.end_time > $3")).
		WithArgs("room-1", models.Monday, "10:30", "12:00").
		WillReturnRows(rows)

	conflict, err := repo.FindClassroomConflict(context.Background(), "room-1", models.Monday, "10:30", "12:00", "")
	require.NoError(t, err)
	require.Nil(t, conflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindClassroomConflictExcludesSlot(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "section_id", "course_name", "day_of_week", "start_time", "end_time", "classroom_id"})
	mock.ExpectQuery(regexp.QuoteMeta("AND sl.id <> $5")).
		WithArgs("room-1", models.Monday, "09:00", "10:30", "slot-1").
		WillReturnRows(rows)

	conflict, err := repo.FindClassroomConflict(context.Background(), "room-1", models.Monday, "09:00", "10:30", "slot-1")
	require.NoError(t, err)
	require.Nil(t, conflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

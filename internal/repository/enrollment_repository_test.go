package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryAdmitFirstCourse(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)")).
		WithArgs(int64(4), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM enrollment WHERE student_id = $1 AND is_pass = TRUE)")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollment (student_id, course_id, is_waiting)")).
		WithArgs(int64(4), int64(9), false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(21), time.Now()))
	mock.ExpectCommit()

	var seen int
	enrollment, err := repo.Admit(context.Background(), 4, 9, func(blocking int) bool {
		seen = blocking
		return blocking > 0
	})
	require.NoError(t, err)
	assert.Equal(t, 0, seen)
	assert.Equal(t, int64(21), enrollment.ID)
	assert.False(t, enrollment.Waiting)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAdmitWaitsWhenBlocked(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollment")).
		WithArgs(int64(4), int64(9), true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(22), time.Now()))
	mock.ExpectCommit()

	enrollment, err := repo.Admit(context.Background(), 4, 9, func(blocking int) bool { return blocking > 0 })
	require.NoError(t, err)
	assert.True(t, enrollment.Waiting)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAdmitDuplicate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.Admit(context.Background(), 4, 9, func(int) bool { return false })
	assert.ErrorIs(t, err, ErrUniqueViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAcceptWaitingMissing(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment SET is_waiting = FALSE WHERE course_id = $1 AND student_id = $2 AND is_waiting = TRUE")).
		WithArgs(int64(9), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AcceptWaiting(context.Background(), 9, 4)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByCourseFiltersWaiting(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)
	waiting := true

	rows := sqlmock.NewRows([]string{"id", "student_no", "name", "surname", "email", "enrollment_id", "is_waiting", "is_pass"}).
		AddRow(int64(4), "041901001", "Ada", "Lovelace", "ada@mef.edu.tr", int64(22), true, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.course_id = $1 AND e.is_waiting = $2 ORDER BY s.student_no")).
		WithArgs(int64(9), true).
		WillReturnRows(rows)

	items, err := repo.ListByCourse(context.Background(), 9, &waiting)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Waiting)
	assert.Nil(t, items[0].Passed)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

func TestStudentRepositoryFindByEmailIgnoresCase(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_no", "name", "surname", "email", "password", "department_id", "created_at"}).
		AddRow(int64(4), "041901001", "Ada", "Lovelace", "ada@mef.edu.tr", "$2a$10$hash", int64(2), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM student WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("ADA@mef.edu.tr").
		WillReturnRows(rows)

	student, err := repo.FindByEmail(context.Background(), "ADA@mef.edu.tr")
	require.NoError(t, err)
	assert.Equal(t, int64(4), student.ID)
	assert.Equal(t, "Ada Lovelace", student.FullName())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "student_email_key"})

	err := repo.Create(context.Background(), &models.Student{StudentNo: "1", Email: "ada@mef.edu.tr", DepartmentID: 2})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoordinatorRepositoryDeactivateBound(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCoordinatorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE coordinator SET is_active = FALSE")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM coordinator WHERE id = $1)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Deactivate(context.Background(), 3)
	assert.ErrorIs(t, err, ErrCoordinatorBound)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE coordinator SET is_active = FALSE")).
		WithArgs(int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM coordinator WHERE id = $1)")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err = repo.Deactivate(context.Background(), 30)
	assert.True(t, IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryCreateActivatesCoordinator(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDepartmentRepository(db)
	coordinatorID := int64(3)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coordinator SET is_active = TRUE WHERE id = $1 AND is_active = FALSE")).
		WithArgs(coordinatorID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO department (name, code, coordinator_id)")).
		WithArgs("Computer Engineering", "COMP", coordinatorID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), time.Now()))
	mock.ExpectCommit()

	dept := &models.Department{Name: "Computer Engineering", Code: "COMP", CoordinatorID: &coordinatorID}
	require.NoError(t, repo.Create(context.Background(), dept))
	assert.Equal(t, int64(2), dept.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryCreateRejectsActiveCoordinator(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDepartmentRepository(db)
	coordinatorID := int64(3)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coordinator SET is_active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Department{Name: "EE", Code: "EE", CoordinatorID: &coordinatorID})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryChangeCoordinator(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDepartmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT coordinator_id FROM department WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"coordinator_id"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coordinator SET is_active = TRUE")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE department SET coordinator_id = $2 WHERE id = $1")).
		WithArgs(int64(2), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coordinator SET is_active = FALSE WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ChangeCoordinator(context.Background(), 2, 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

// StudentRepository persists student accounts.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_no, name, surname, email, password, department_id, created_at`

// FindByID fetches a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	query := `SELECT ` + studentColumns + ` FROM student WHERE id = $1`
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail fetches a student by email, case-insensitively.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	query := `SELECT ` + studentColumns + ` FROM student WHERE LOWER(email) = LOWER($1) LIMIT 1`
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, err
	}
	return &student, nil
}

// Profile fetches a student joined with its department name.
func (r *StudentRepository) Profile(ctx context.Context, id int64) (*models.StudentProfile, error) {
	const query = `SELECT s.id, s.student_no, s.name, s.surname, s.email, s.password, s.department_id, s.created_at,
       d.name AS department_name
	FROM student s
	JOIN department d ON d.id = s.department_id
	WHERE s.id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdatePassword stores a new password hash.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE student SET password = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update student password: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("update student password: %w", sql.ErrNoRows)
	}
	return nil
}

// Create inserts a student, returning ErrUniqueViolation when the email or
// student number is taken.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO student (student_no, name, surname, email, password, department_id)
	VALUES (:student_no, :name, :surname, :email, :password, :department_id)
	RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("create student: %w", translate(err))
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&student.ID, &student.CreatedAt); err != nil {
			return fmt.Errorf("scan student id: %w", err)
		}
	}
	return rows.Err()
}

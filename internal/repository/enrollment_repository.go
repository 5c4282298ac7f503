package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/pkg/database"
)

// EnrollmentRepository persists student course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, course_id, is_waiting, is_pass, pass_date, created_at`

// Find fetches the enrollment of a student in a course.
func (r *EnrollmentRepository) Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	var e models.Enrollment
	query := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE student_id = $1 AND course_id = $2`
	if err := r.db.GetContext(ctx, &e, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &e, nil
}

// Admit inserts an enrollment, asking waitlist whether it must wait given
// the number of blocking enrollments (passed, or in an active course) the
// student already holds. The count and insert are serialised per student
// with a transaction-scoped advisory lock.
func (r *EnrollmentRepository) Admit(ctx context.Context, studentID, courseID int64, waitlist func(blocking int) bool) (*models.Enrollment, error) {
	e := &models.Enrollment{StudentID: studentID, CourseID: courseID}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, studentID); err != nil {
			return fmt.Errorf("lock student enrollments: %w", err)
		}

		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`, studentID, courseID); err != nil {
			return fmt.Errorf("check enrollment: %w", err)
		}
		if exists {
			return ErrUniqueViolation
		}

		const countQuery = `SELECT
	(SELECT COUNT(*) FROM enrollment WHERE student_id = $1 AND is_pass = TRUE) +
	(SELECT COUNT(*) FROM enrollment e JOIN mefcourse m ON m.id = e.course_id WHERE e.student_id = $1 AND m.is_active = TRUE)`
		var blocking int
		if err := tx.GetContext(ctx, &blocking, countQuery, studentID); err != nil {
			return fmt.Errorf("count blocking enrollments: %w", err)
		}
		e.Waiting = waitlist(blocking)

		const insert = `INSERT INTO enrollment (student_id, course_id, is_waiting) VALUES ($1, $2, $3) RETURNING id, created_at`
		if err := tx.QueryRowxContext(ctx, insert, studentID, courseID, e.Waiting).Scan(&e.ID, &e.CreatedAt); err != nil {
			return fmt.Errorf("create enrollment: %w", translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByStudent returns the student's enrollments in active courses.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentEnrollment, error) {
	const query = `SELECT e.id AS enrollment_id, e.is_waiting, e.is_pass, e.pass_date, c.id AS course_id, c.name, c.course_code
	FROM enrollment e
	JOIN mefcourse c ON c.id = e.course_id
	WHERE e.student_id = $1 AND c.is_active = TRUE
	ORDER BY e.created_at`
	var items []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return items, nil
}

// ListByCourse returns the students of a course, optionally filtered by the
// waiting flag.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID int64, waiting *bool) ([]models.CourseStudent, error) {
	query := `SELECT s.id, s.student_no, s.name, s.surname, s.email, e.id AS enrollment_id, e.is_waiting, e.is_pass
	FROM enrollment e
	JOIN student s ON s.id = e.student_id
	WHERE e.course_id = $1`
	args := []interface{}{courseID}
	if waiting != nil {
		query += ` AND e.is_waiting = $2`
		args = append(args, *waiting)
	}
	query += ` ORDER BY s.student_no`

	var items []models.CourseStudent
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return items, nil
}

// AcceptWaiting admits a waiting enrollment. sql.ErrNoRows means there was
// no waiting enrollment.
func (r *EnrollmentRepository) AcceptWaiting(ctx context.Context, courseID, studentID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE enrollment SET is_waiting = FALSE WHERE course_id = $1 AND student_id = $2 AND is_waiting = TRUE`, courseID, studentID)
	return rowsOrNotFound(res, err, "accept waiting enrollment")
}

// DeleteWaiting removes a waiting enrollment. sql.ErrNoRows means there was
// no waiting enrollment.
func (r *EnrollmentRepository) DeleteWaiting(ctx context.Context, courseID, studentID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollment WHERE course_id = $1 AND student_id = $2 AND is_waiting = TRUE`, courseID, studentID)
	return rowsOrNotFound(res, err, "delete waiting enrollment")
}

func rowsOrNotFound(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

// CourseRepository persists department courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, course_code, name, COALESCE(type, '') AS type, semester, credits, department_id, coordinator_id, is_active, created_at`

// FindByID fetches a course regardless of its active flag.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	var c models.Course
	query := `SELECT ` + courseColumns + ` FROM mefcourse WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts an active course.
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	const query = `INSERT INTO mefcourse (course_code, name, type, semester, credits, department_id, coordinator_id)
	VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7) RETURNING id, is_active, created_at`
	err := r.db.QueryRowxContext(ctx, query, c.CourseCode, c.Name, c.Type, c.Semester, c.Credits, c.DepartmentID, c.CoordinatorID).
		Scan(&c.ID, &c.Active, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create course: %w", translate(err))
	}
	return nil
}

// Deactivate marks an active course of the department passive.
func (r *CourseRepository) Deactivate(ctx context.Context, id, departmentID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE mefcourse SET is_active = FALSE WHERE id = $1 AND department_id = $2 AND is_active = TRUE`, id, departmentID)
	if err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check course update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByDepartment returns the department's courses with the given active flag.
func (r *CourseRepository) ListByDepartment(ctx context.Context, departmentID int64, active bool) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM mefcourse WHERE department_id = $1 AND is_active = $2 ORDER BY semester DESC, course_code`
	var items []models.Course
	if err := r.db.SelectContext(ctx, &items, query, departmentID, active); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return items, nil
}

// ListAvailable returns active courses of the department the student has not
// enrolled in.
func (r *CourseRepository) ListAvailable(ctx context.Context, studentID, departmentID int64) ([]models.CourseSummary, error) {
	const query = `SELECT m.id, m.name, m.course_code, m.credits, m.semester
	FROM mefcourse m
	WHERE m.department_id = $1 AND m.is_active = TRUE
	  AND NOT EXISTS (SELECT 1 FROM enrollment e WHERE e.student_id = $2 AND e.course_id = m.id)
	ORDER BY m.course_code`
	var items []models.CourseSummary
	if err := r.db.SelectContext(ctx, &items, query, departmentID, studentID); err != nil {
		return nil, fmt.Errorf("list available courses: %w", err)
	}
	return items, nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/repository"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

type courseStore interface {
	Create(ctx context.Context, c *models.Course) error
	Deactivate(ctx context.Context, id, departmentID int64) error
	ListByDepartment(ctx context.Context, departmentID int64, active bool) ([]models.Course, error)
}

// CourseService manages a coordinator's department courses.
type CourseService struct {
	courses   courseStore
	guard     *AccessGuard
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(courses courseStore, guard *AccessGuard, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, guard: guard, validator: validate, logger: logger}
}

// Semesters lists the semesters a course can be opened in.
func (s *CourseService) Semesters() []string {
	return models.Semesters()
}

// CreateCourse opens an active course in the coordinator's department.
func (s *CourseService) CreateCourse(ctx context.Context, claims *models.JWTClaims, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := validationError(s.validator, req, "invalid course payload"); err != nil {
		return nil, err
	}
	if !models.ValidSemester(req.Semester) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "unknown semester")
	}
	principal, err := s.guard.Coordinator(ctx, claims)
	if err != nil {
		return nil, err
	}
	course := &models.Course{
		CourseCode:    strings.TrimSpace(req.CourseCode),
		Name:          strings.TrimSpace(req.Name),
		Type:          strings.TrimSpace(req.Type),
		Semester:      req.Semester,
		Credits:       req.Credits,
		DepartmentID:  principal.Department.ID,
		CoordinatorID: principal.Coordinator.ID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "course already exists for this semester")
		}
		return nil, storeError(err, "course")
	}
	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.Int64("department_id", course.DepartmentID))
	return course, nil
}

// DeactivateCourse marks one of the department's active courses passive.
func (s *CourseService) DeactivateCourse(ctx context.Context, claims *models.JWTClaims, courseID int64) error {
	principal, _, err := s.guard.AuthorizeCourse(ctx, claims, courseID)
	if err != nil {
		return err
	}
	if err := s.courses.Deactivate(ctx, courseID, principal.Department.ID); err != nil {
		return storeError(err, "active course")
	}
	return nil
}

// ListCourses lists the department's active or inactive courses.
func (s *CourseService) ListCourses(ctx context.Context, claims *models.JWTClaims, active bool) ([]models.Course, error) {
	principal, err := s.guard.Coordinator(ctx, claims)
	if err != nil {
		return nil, err
	}
	items, err := s.courses.ListByDepartment(ctx, principal.Department.ID, active)
	if err != nil {
		return nil, storeError(err, "course")
	}
	return items, nil
}

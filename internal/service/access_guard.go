package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/mooc-credit-api/internal/models"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

type guardStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type guardCoordinatorRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Coordinator, error)
}

type guardDepartmentRepository interface {
	FindByCoordinator(ctx context.Context, coordinatorID int64) (*models.Department, error)
}

type guardCourseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// CoordinatorPrincipal is an active coordinator with the department bound to it.
type CoordinatorPrincipal struct {
	Coordinator *models.Coordinator
	Department  *models.Department
}

// AccessGuard resolves token claims into principals and enforces department
// ownership. Token validity is checked upstream by AuthService.
type AccessGuard struct {
	students     guardStudentRepository
	coordinators guardCoordinatorRepository
	departments  guardDepartmentRepository
	courses      guardCourseRepository
}

// NewAccessGuard constructs the guard.
func NewAccessGuard(students guardStudentRepository, coordinators guardCoordinatorRepository, departments guardDepartmentRepository, courses guardCourseRepository) *AccessGuard {
	return &AccessGuard{students: students, coordinators: coordinators, departments: departments, courses: courses}
}

// RequireRole rejects missing claims and claims of another role.
func RequireRole(claims *models.JWTClaims, roles ...models.Role) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}
	for _, role := range roles {
		if claims.Role == role {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
}

// Student resolves the calling student.
func (g *AccessGuard) Student(ctx context.Context, claims *models.JWTClaims) (*models.Student, error) {
	if err := RequireRole(claims, models.RoleStudent); err != nil {
		return nil, err
	}
	student, err := g.students.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		return nil, storeError(err, "student")
	}
	return student, nil
}

// Coordinator resolves the calling coordinator and its department. A missing
// or disabled coordinator is NotFound; an unbound one is Forbidden.
func (g *AccessGuard) Coordinator(ctx context.Context, claims *models.JWTClaims) (*CoordinatorPrincipal, error) {
	if err := RequireRole(claims, models.RoleCoordinator); err != nil {
		return nil, err
	}
	coordinator, err := g.coordinators.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		return nil, storeError(err, "coordinator")
	}
	if !coordinator.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "coordinator not found")
	}
	department, err := g.departments.FindByCoordinator(ctx, coordinator.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "coordinator is not bound to a department")
	}
	if err != nil {
		return nil, storeError(err, "department")
	}
	return &CoordinatorPrincipal{Coordinator: coordinator, Department: department}, nil
}

// AuthorizeCourse resolves the coordinator and checks the course belongs to
// its department.
func (g *AccessGuard) AuthorizeCourse(ctx context.Context, claims *models.JWTClaims, courseID int64) (*CoordinatorPrincipal, *models.Course, error) {
	principal, err := g.Coordinator(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	course, err := g.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, nil, storeError(err, "course")
	}
	if err := principal.Owns(course.DepartmentID); err != nil {
		return nil, nil, err
	}
	return principal, course, nil
}

// Owns rejects resources of another department.
func (p *CoordinatorPrincipal) Owns(departmentID int64) error {
	if p == nil || p.Department == nil || p.Department.ID != departmentID {
		return appErrors.Clone(appErrors.ErrForbidden, "resource belongs to another department")
	}
	return nil
}

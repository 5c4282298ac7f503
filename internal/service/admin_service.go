package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/repository"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

type adminCoordinatorStore interface {
	Create(ctx context.Context, c *models.Coordinator) error
	List(ctx context.Context) ([]models.CoordinatorListItem, error)
	ListPassive(ctx context.Context) ([]models.CoordinatorName, error)
	Deactivate(ctx context.Context, id int64) error
}

type adminDepartmentStore interface {
	FindByID(ctx context.Context, id int64) (*models.Department, error)
	ListDetailed(ctx context.Context) ([]models.DepartmentDetail, error)
	Create(ctx context.Context, d *models.Department) error
	ChangeCoordinator(ctx context.Context, departmentID, coordinatorID int64) error
}

type adminStudentStore interface {
	Create(ctx context.Context, student *models.Student) error
}

// AdminServiceConfig carries links embedded in outgoing mail.
type AdminServiceConfig struct {
	FrontendURL string
}

// AdminService implements the administrator's account and department tools.
type AdminService struct {
	coordinators adminCoordinatorStore
	departments  adminDepartmentStore
	students     adminStudentStore
	cache        *CacheService
	notifier     Notifier
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          AdminServiceConfig
}

// NewAdminService constructs the service.
func NewAdminService(coordinators adminCoordinatorStore, departments adminDepartmentStore, students adminStudentStore, cache *CacheService, notifier Notifier, validate *validator.Validate, logger *zap.Logger, cfg AdminServiceConfig) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{
		coordinators: coordinators,
		departments:  departments,
		students:     students,
		cache:        cache,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// CreateCoordinator adds a passive coordinator with a generated password and
// mails the credentials.
func (s *AdminService) CreateCoordinator(ctx context.Context, claims *models.JWTClaims, req dto.CreateCoordinatorRequest) (*dto.CreateCoordinatorResult, error) {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validationError(s.validator, req, "invalid coordinator payload"); err != nil {
		return nil, err
	}
	password, err := generatePassword()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to generate password")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	coordinator := &models.Coordinator{
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
	}
	if err := s.coordinators.Create(ctx, coordinator); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "email already registered")
		}
		return nil, storeError(err, "coordinator")
	}
	s.invalidate(ctx, CacheKeyCoordinators)
	s.notify(ctx, coordinator.Email, "MEF MOOC Coordinator Account",
		fmt.Sprintf("Hello %s,\n\nA coordinator account has been created for you.\nEmail: %s\nPassword: %s\n\n%s",
			coordinator.FullName(), coordinator.Email, password, s.cfg.FrontendURL))
	return &dto.CreateCoordinatorResult{ID: coordinator.ID, Email: coordinator.Email, Password: password}, nil
}

// Coordinators lists every coordinator with its department.
func (s *AdminService) Coordinators(ctx context.Context, claims *models.JWTClaims) ([]models.CoordinatorListItem, error) {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return nil, err
	}
	items, err := s.coordinators.List(ctx)
	if err != nil {
		return nil, storeError(err, "coordinator")
	}
	return nonNil(items), nil
}

// PassiveCoordinators lists coordinators that can be bound to a department.
func (s *AdminService) PassiveCoordinators(ctx context.Context, claims *models.JWTClaims) ([]models.CoordinatorName, error) {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return nil, err
	}
	items, err := s.coordinators.ListPassive(ctx)
	if err != nil {
		return nil, storeError(err, "coordinator")
	}
	return nonNil(items), nil
}

// DeactivateCoordinator marks a coordinator passive. A coordinator still bound
// to a department is refused with Conflict.
func (s *AdminService) DeactivateCoordinator(ctx context.Context, claims *models.JWTClaims, coordinatorID int64) error {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.coordinators.Deactivate(ctx, coordinatorID); err != nil {
		return storeError(err, "coordinator")
	}
	return nil
}

// Departments lists departments with their coordinator.
func (s *AdminService) Departments(ctx context.Context, claims *models.JWTClaims) ([]models.DepartmentDetail, error) {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return nil, err
	}
	items, err := s.departments.ListDetailed(ctx)
	if err != nil {
		return nil, storeError(err, "department")
	}
	return nonNil(items), nil
}

// CreateDepartment opens a department bound to a passive coordinator, which
// becomes active.
func (s *AdminService) CreateDepartment(ctx context.Context, claims *models.JWTClaims, req dto.CreateDepartmentRequest) (*models.Department, error) {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validationError(s.validator, req, "invalid department payload"); err != nil {
		return nil, err
	}
	coordinatorID := req.CoordinatorID
	department := &models.Department{
		Name:          strings.TrimSpace(req.Name),
		Code:          strings.TrimSpace(req.Code),
		CoordinatorID: &coordinatorID,
	}
	if err := s.departments.Create(ctx, department); err != nil {
		return nil, s.bindingError(err)
	}
	s.invalidate(ctx, CacheKeyDepartments)
	return department, nil
}

// ChangeCoordinator rebinds a department to a passive coordinator and
// deactivates the previous one.
func (s *AdminService) ChangeCoordinator(ctx context.Context, claims *models.JWTClaims, departmentID int64, req dto.ChangeCoordinatorRequest) error {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return err
	}
	if err := validationError(s.validator, req, "invalid coordinator payload"); err != nil {
		return err
	}
	if _, err := s.departments.FindByID(ctx, departmentID); err != nil {
		return storeError(err, "department")
	}
	if err := s.departments.ChangeCoordinator(ctx, departmentID, req.CoordinatorID); err != nil {
		return s.bindingError(err)
	}
	s.invalidate(ctx, CacheKeyDepartments)
	return nil
}

// InviteStudents creates student accounts with generated passwords and mails
// each an invitation. Rows clashing with existing accounts are skipped.
func (s *AdminService) InviteStudents(ctx context.Context, claims *models.JWTClaims, req dto.InviteStudentsRequest) (*dto.InviteStudentsResult, error) {
	if err := RequireRole(claims, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validationError(s.validator, req, "invalid invitation payload"); err != nil {
		return nil, err
	}
	result := &dto.InviteStudentsResult{Created: []int64{}, Skipped: []string{}}
	for _, invite := range req.Students {
		password, err := generatePassword()
		if err != nil {
			return nil, appErrors.Internal(err, "failed to generate password")
		}
		hash, err := hashPassword(password)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to hash password")
		}
		student := &models.Student{
			StudentNo:    strings.TrimSpace(invite.StudentNo),
			Name:         strings.TrimSpace(invite.Name),
			Surname:      strings.TrimSpace(invite.Surname),
			Email:        strings.TrimSpace(invite.Email),
			PasswordHash: hash,
			DepartmentID: invite.DepartmentID,
		}
		if err := s.students.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) || errors.Is(err, repository.ErrForeignKeyViolation) {
				s.logger.Warn("student invitation skipped", zap.String("email", student.Email), zap.Error(err))
				result.Skipped = append(result.Skipped, student.Email)
				continue
			}
			return nil, storeError(err, "student")
		}
		result.Created = append(result.Created, student.ID)
		s.notify(ctx, student.Email, "MEF MOOC Invitation",
			fmt.Sprintf("Hello %s,\n\nYou have been invited to the MEF MOOC platform.\nEmail: %s\nPassword: %s\n\nSign in at %s",
				student.FullName(), student.Email, password, s.cfg.FrontendURL))
	}
	return result, nil
}

func (s *AdminService) bindingError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrInvalidInput, "coordinator must exist and be passive")
	case errors.Is(err, repository.ErrUniqueViolation):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "department name or coordinator already in use")
	}
	return storeError(err, "department")
}

func (s *AdminService) invalidate(ctx context.Context, keys ...string) {
	_ = s.cache.Invalidate(ctx, keys...)
}

func (s *AdminService) notify(ctx context.Context, email, subject, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, email, subject, body)
}

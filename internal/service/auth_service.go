package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

type authStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type authCoordinatorRepository interface {
	FindActiveByEmail(ctx context.Context, email string) (*models.Coordinator, error)
}

type tokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	AdminUsername     string
	AdminPassword     string
}

// AuthService issues, validates and revokes access tokens and manages
// student passwords.
type AuthService struct {
	students     authStudentRepository
	coordinators authCoordinatorRepository
	denylist     tokenDenylist
	notifier     Notifier
	validator    *validator.Validate
	logger       *zap.Logger
	config       AuthConfig
	now          func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(students authStudentRepository, coordinators authCoordinatorRepository, denylist tokenDenylist, notifier Notifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{
		students:     students,
		coordinators: coordinators,
		denylist:     denylist,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
		config:       config,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// LoginStudent authenticates a student by email and password.
func (s *AuthService) LoginStudent(ctx context.Context, req dto.EmailLoginRequest) (*models.LoginResult, error) {
	if err := validationError(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}
	student, err := s.students.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch student")
	}
	if !checkPassword(student.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	return s.login(student.ID, models.RoleStudent, student.FullName())
}

// LoginCoordinator authenticates an active coordinator.
func (s *AuthService) LoginCoordinator(ctx context.Context, req dto.EmailLoginRequest) (*models.LoginResult, error) {
	if err := validationError(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}
	coordinator, err := s.coordinators.FindActiveByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch coordinator")
	}
	if !checkPassword(coordinator.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	return s.login(coordinator.ID, models.RoleCoordinator, coordinator.FullName())
}

// LoginAdmin authenticates the configured administrator.
func (s *AuthService) LoginAdmin(_ context.Context, req dto.AdminLoginRequest) (*models.LoginResult, error) {
	if err := validationError(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}
	if s.config.AdminUsername == "" || s.config.AdminPassword == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "admin login is disabled")
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.config.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.config.AdminPassword)) == 1
	if !userOK || !passOK {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	return s.login(models.AdminPrincipalID, models.RoleAdmin, s.config.AdminUsername)
}

func (s *AuthService) login(principalID int64, role models.Role, name string) (*models.LoginResult, error) {
	token, claims, err := s.IssueToken(principalID, role)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	s.logger.Info("login succeeded", zap.String("role", string(role)), zap.Int64("principal_id", principalID))
	return &models.LoginResult{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Role:        role,
		PrincipalID: principalID,
		DisplayName: name,
		IssuedAt:    claims.IssuedAt.Time,
	}, nil
}

// IssueToken signs an access token carrying a fresh jti.
func (s *AuthService) IssueToken(principalID int64, role models.Role) (string, *models.JWTClaims, error) {
	if !role.Valid() {
		return "", nil, fmt.Errorf("unknown role %q", role)
	}
	issuedAt := s.now()
	claims := &models.JWTClaims{
		PrincipalID: principalID,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(principalID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateToken parses and validates an access token, rejecting revoked ones.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() || claims.TokenID() == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check token revocation")
		}
		if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has been revoked")
		}
	}
	return claims, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims) error {
	if claims == nil || claims.TokenID() == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing token claims")
	}
	if s.denylist == nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID(), claims.Remaining(s.now())); err != nil {
		return appErrors.Internal(err, "failed to revoke token")
	}
	return nil
}

// ForgotPassword replaces a student's password with a generated one and
// mails it.
func (s *AuthService) ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) error {
	if err := validationError(s.validator, req, "invalid forgot password payload"); err != nil {
		return err
	}
	student, err := s.students.FindByEmail(ctx, req.Email)
	if err != nil {
		return storeError(err, "student")
	}
	password, err := generatePassword()
	if err != nil {
		return appErrors.Internal(err, "failed to generate password")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.students.UpdatePassword(ctx, student.ID, hash); err != nil {
		return storeError(err, "student")
	}
	s.notify(ctx, student.Email, "MEF MOOC Password Reset",
		fmt.Sprintf("Hello %s,\n\nYour new password is: %s\nPlease change it after signing in.", student.FullName(), password))
	return nil
}

// ChangePassword updates the password of a student after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, studentID int64, req dto.ChangePasswordRequest) error {
	if err := validationError(s.validator, req, "invalid change password payload"); err != nil {
		return err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return storeError(err, "student")
	}
	if !checkPassword(student.PasswordHash, req.OldPassword) {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.students.UpdatePassword(ctx, studentID, hash); err != nil {
		return storeError(err, "student")
	}
	return nil
}

func (s *AuthService) notify(ctx context.Context, email, subject, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, email, subject, body)
}

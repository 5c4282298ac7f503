package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
	"github.com/noah-isme/mooc-credit-api/pkg/response"
)

type authService interface {
	LoginStudent(ctx context.Context, req dto.EmailLoginRequest) (*models.LoginResult, error)
	LoginCoordinator(ctx context.Context, req dto.EmailLoginRequest) (*models.LoginResult, error)
	LoginAdmin(ctx context.Context, req dto.AdminLoginRequest) (*models.LoginResult, error)
	Logout(ctx context.Context, claims *models.JWTClaims) error
	ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) error
	ChangePassword(ctx context.Context, studentID int64, req dto.ChangePasswordRequest) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// StudentLogin godoc
// @Summary Authenticate student
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.EmailLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /student/login [post]
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req dto.EmailLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respondLogin(c, func(ctx context.Context) (*models.LoginResult, error) {
		return h.service.LoginStudent(ctx, req)
	})
}

// CoordinatorLogin godoc
// @Summary Authenticate coordinator
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.EmailLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /coordinator/login [post]
func (h *AuthHandler) CoordinatorLogin(c *gin.Context) {
	var req dto.EmailLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respondLogin(c, func(ctx context.Context) (*models.LoginResult, error) {
		return h.service.LoginCoordinator(ctx, req)
	})
}

// AdminLogin godoc
// @Summary Authenticate administrator
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.AdminLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req dto.AdminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respondLogin(c, func(ctx context.Context) (*models.LoginResult, error) {
		return h.service.LoginAdmin(ctx, req)
	})
}

func (h *AuthHandler) respondLogin(c *gin.Context, login func(context.Context) (*models.LoginResult, error)) {
	res, err := login(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Revoke the current access token
// @Tags Authentication
// @Produce json
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /{role}/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ForgotPassword godoc
// @Summary Reset a student's password and mail the new one
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.ForgotPasswordRequest true "Student email"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /student/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.ForgotPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change the current student's password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.ChangePasswordRequest true "Password payload"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /student/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), claims.PrincipalID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

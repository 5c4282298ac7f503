package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/pkg/response"
)

type adminService interface {
	CreateCoordinator(ctx context.Context, claims *models.JWTClaims, req dto.CreateCoordinatorRequest) (*dto.CreateCoordinatorResult, error)
	Coordinators(ctx context.Context, claims *models.JWTClaims) ([]models.CoordinatorListItem, error)
	PassiveCoordinators(ctx context.Context, claims *models.JWTClaims) ([]models.CoordinatorName, error)
	DeactivateCoordinator(ctx context.Context, claims *models.JWTClaims, coordinatorID int64) error
	Departments(ctx context.Context, claims *models.JWTClaims) ([]models.DepartmentDetail, error)
	CreateDepartment(ctx context.Context, claims *models.JWTClaims, req dto.CreateDepartmentRequest) (*models.Department, error)
	ChangeCoordinator(ctx context.Context, claims *models.JWTClaims, departmentID int64, req dto.ChangeCoordinatorRequest) error
	InviteStudents(ctx context.Context, claims *models.JWTClaims, req dto.InviteStudentsRequest) (*dto.InviteStudentsResult, error)
}

// AdminHandler exposes administration endpoints.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(svc adminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// CreateCoordinator godoc
// @Summary Create a passive coordinator and mail the generated password
// @Tags Administration
// @Accept json
// @Produce json
// @Param payload body dto.CreateCoordinatorRequest true "Coordinator"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/coordinators [post]
func (h *AdminHandler) CreateCoordinator(c *gin.Context) {
	var req dto.CreateCoordinatorRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.CreateCoordinator(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Coordinators godoc
// @Summary Coordinators with their departments
// @Tags Administration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/coordinators [get]
func (h *AdminHandler) Coordinators(c *gin.Context) {
	items, err := h.service.Coordinators(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// PassiveCoordinators godoc
// @Summary Coordinators not bound to a department
// @Tags Administration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/coordinators/passive [get]
func (h *AdminHandler) PassiveCoordinators(c *gin.Context) {
	items, err := h.service.PassiveCoordinators(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// DeactivateCoordinator godoc
// @Summary Passivate a coordinator not bound to a department
// @Tags Administration
// @Produce json
// @Param coordinator_id path int true "Coordinator ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /admin/coordinators/{coordinator_id}/deactivate [patch]
func (h *AdminHandler) DeactivateCoordinator(c *gin.Context) {
	id, ok := idParam(c, "coordinator_id")
	if !ok {
		return
	}
	if err := h.service.DeactivateCoordinator(c.Request.Context(), claimsFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Departments godoc
// @Summary Departments with their coordinators
// @Tags Administration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/departments [get]
func (h *AdminHandler) Departments(c *gin.Context) {
	items, err := h.service.Departments(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// CreateDepartment godoc
// @Summary Create a department bound to a passive coordinator
// @Tags Administration
// @Accept json
// @Produce json
// @Param payload body dto.CreateDepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/departments [post]
func (h *AdminHandler) CreateDepartment(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	dept, err := h.service.CreateDepartment(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dept)
}

// ChangeCoordinator godoc
// @Summary Hand a department over to another passive coordinator
// @Tags Administration
// @Accept json
// @Produce json
// @Param department_id path int true "Department ID"
// @Param payload body dto.ChangeCoordinatorRequest true "Coordinator"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/departments/{department_id}/coordinator [put]
func (h *AdminHandler) ChangeCoordinator(c *gin.Context) {
	id, ok := idParam(c, "department_id")
	if !ok {
		return
	}
	var req dto.ChangeCoordinatorRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.ChangeCoordinator(c.Request.Context(), claimsFromContext(c), id, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// InviteStudents godoc
// @Summary Create student accounts and mail invitations
// @Tags Administration
// @Accept json
// @Produce json
// @Param payload body dto.InviteStudentsRequest true "Students"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/students/invite [post]
func (h *AdminHandler) InviteStudents(c *gin.Context) {
	var req dto.InviteStudentsRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.InviteStudents(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

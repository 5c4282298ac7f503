package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/pkg/response"
)

type catalogService interface {
	Departments(ctx context.Context) ([]models.Department, error)
	Coordinators(ctx context.Context) ([]models.CoordinatorName, error)
	Moocs(ctx context.Context) ([]models.Mooc, error)
}

// GeneralHandler exposes the public catalog.
type GeneralHandler struct {
	catalog catalogService
}

// NewGeneralHandler constructs GeneralHandler.
func NewGeneralHandler(catalog catalogService) *GeneralHandler {
	return &GeneralHandler{catalog: catalog}
}

// Departments godoc
// @Summary All departments
// @Tags General
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /general/all-departments [get]
func (h *GeneralHandler) Departments(c *gin.Context) {
	items, err := h.catalog.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Coordinators godoc
// @Summary All coordinator names
// @Tags General
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /general/all-coordinators [get]
func (h *GeneralHandler) Coordinators(c *gin.Context) {
	items, err := h.catalog.Coordinators(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Moocs godoc
// @Summary Active MOOC catalog
// @Tags General
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/moocs [get]
func (h *GeneralHandler) Moocs(c *gin.Context) {
	items, err := h.catalog.Moocs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

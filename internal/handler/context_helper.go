package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/middleware"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
	"github.com/noah-isme/mooc-credit-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// idParam parses a positive integer path parameter, writing a 400 on failure.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "invalid "+name))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into dest, writing a 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid request payload"))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Invalid(err, "invalid request payload"))
		return false
	}
	return true
}

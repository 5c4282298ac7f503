package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/models"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
	"github.com/noah-isme/mooc-credit-api/pkg/response"
)

// RequireRoles rejects callers whose token carries none of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/service"
)

// Metrics records every request against its route pattern and, once JWT has
// run further down the chain, the caller's role.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		var role string
		if claims := Claims(c); claims != nil {
			role = string(claims.Role)
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, role, c.Writer.Status(), time.Since(start))
	}
}

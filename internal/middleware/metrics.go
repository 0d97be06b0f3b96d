package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"sand/api/internal/metrics"
)

// Metrics labels requests by route template so ids in paths do not explode
// label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

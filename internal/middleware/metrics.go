package middleware

import (
	"strconv"
	"time"

	"anoa.com/bazaar/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records Prometheus request metrics. Paths are the registered route
// templates, so ids never reach label values.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}

package middleware

import (
	"strconv"
	"time"

	"restopos/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count, latency and error category per route.
// The route template (c.FullPath) is used as label so that ids in the URL do
// not explode cardinality; unmatched routes are grouped as "unmatched".
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		if status >= 400 {
			metrics.HTTPErrors.WithLabelValues(metrics.StatusCategory(status)).Inc()
		}
	}
}

package httpmiddleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"qrattend/internal/metrics"
)

// Metrics observes request latency by route template, so /attendance/E100
// and /attendance/E200 share a series. Unmatched paths are grouped.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

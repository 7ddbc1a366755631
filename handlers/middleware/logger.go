package middleware

import (
	"time"

	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
)

var logger = xlog.NewPackageLogger("tripcopilot", "http")

// Logger writes one structured line per request. Server errors log at ERROR,
// client errors at WARNING.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := xlog.INFO
		switch {
		case status >= 500:
			level = xlog.ERROR
		case status >= 400:
			level = xlog.WARNING
		}

		logger.KV(level,
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(time.Since(start).Microseconds())/1000.0,
			"ip", c.ClientIP(),
		)
	}
}

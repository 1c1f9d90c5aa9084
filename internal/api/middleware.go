package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs each request with zerolog. Health checks are logged at
// debug so pollers and load balancers do not drown out job traffic, and the
// job ID route param is attached when present.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		evt := requestEvent(route, status)

		path := route
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		if jobID := c.Param("id"); jobID != "" {
			evt = evt.Str("job_id", jobID)
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

func requestEvent(route string, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	case route == "/healthz":
		return log.Debug()
	default:
		return log.Info()
	}
}

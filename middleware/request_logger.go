package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sbcesar/contractguardian/pkg/logger"
)

// RequestLogger writes one access record per request, leveled by status code.
// Records include the ids carried in the request context plus the contract id
// route parameter when the route has one, so traffic can be filtered per
// contract. The byte count reflects the full body, including streamed events.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", latency.Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if contractID := c.Param("id"); contractID != "" {
			attrs = append(attrs, "contract_id", contractID)
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}

		log := logger.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("request completed", attrs...)
		case status >= 400:
			log.Warn("request completed", attrs...)
		default:
			log.Info("request completed", attrs...)
		}
	}
}

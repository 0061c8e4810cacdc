package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sbcesar/contractguardian/pkg/logger"
)

// RequestIDHeader carries the caller-supplied or generated request id
const RequestIDHeader = "X-Request-ID"

const requestIDContextKey = "request_id"

// RequestID tags every request with a unique id, honoring one supplied by
// the caller, and threads it through the response header, the gin context
// and the request context the logger reads.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDContextKey, requestID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the request id tagged on the gin context
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(requestIDContextKey); exists {
		return requestID.(string)
	}
	return ""
}

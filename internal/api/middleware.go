package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ibvrd/cadastro-server/internal/utils"
)

// RequestIDHeader is the header carrying the request identifier.
const RequestIDHeader = "X-Request-Id"

// RequestIDMiddleware returns a Gin middleware that tags every request
// with an identifier. Incoming identifiers are kept so callers can
// correlate retries; otherwise a new one is generated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// Expose the identifier to handlers and to the caller
		c.Set("requestId", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

// LoggingMiddleware returns a Gin middleware that logs each request
// with its latency, status and request identifier.
func LoggingMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		requestID, _ := c.Get("requestId")
		logger.Info("%s %s -> %d (%s) [%v]",
			c.Request.Method,
			path,
			c.Writer.Status(),
			requestID,
			time.Since(start).Round(time.Millisecond),
		)
	}
}

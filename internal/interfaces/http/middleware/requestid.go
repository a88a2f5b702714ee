// Package middleware holds the cross-cutting gin middleware of the HTTP
// surface: request identity, structured request logging and request metrics.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the request identifier in both
// directions.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key under which the identifier is stored.
const requestIDKey = "request_id"

// RequestID propagates the caller-supplied request identifier or assigns a
// fresh one, so every log line and error body of a request can be correlated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the identifier assigned by RequestID, or "" when the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequestID übernimmt X-Request-ID oder vergibt eine neue.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(requestIDKey, requestID)
		c.Next()
	}
}

// GetRequestID liest die Request-ID aus dem gin-Kontext.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

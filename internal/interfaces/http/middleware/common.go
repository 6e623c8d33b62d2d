package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/infrastructure/logger"
)

// Header names read and written by the middleware
const (
	RequestIDHeader = "X-Request-ID"
	UserIDHeader    = "X-User-ID"
)

// UserIDKey is the gin context key holding the caller identity
const UserIDKey = "user_id"

// AnonymousUser is recorded in audit entries when no identity was supplied
const AnonymousUser = "anonymous"

// MaxUserIDLength bounds the identity taken from the header
const MaxUserIDLength = 128

// RequestID adds a unique request ID to each request. A client supplied ID
// is kept when it is not longer than MaxRequestIDLength.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// Identity takes the caller identity from the X-User-ID header and puts it
// in both the gin context and the request context. Authentication happens
// in front of this service, so the header is trusted as given.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if len(userID) > MaxUserIDLength {
			userID = userID[:MaxUserIDLength]
		}
		if userID == "" {
			userID = AnonymousUser
		}
		c.Set(UserIDKey, userID)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// GetUserID returns the identity stored by Identity, or AnonymousUser
func GetUserID(c *gin.Context) string {
	if id := c.GetString(UserIDKey); id != "" {
		return id
	}
	return AnonymousUser
}

// GetRequestID returns the request ID stored by RequestID, falling back to
// the raw header
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(logger.RequestIDKey); id != "" {
		return id
	}
	headerID := c.GetHeader(RequestIDHeader)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

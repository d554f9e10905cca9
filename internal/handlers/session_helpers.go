package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Cookie-session keys.
const (
	// SessionIDKey stores the stable quiz-session identifier.
	SessionIDKey = "session_id"

	// UserIDKey stores the verified identity, when present.
	UserIDKey = "user_id"
)

// ensureSessionID returns the caller's quiz-session identifier, minting and
// persisting one on first contact.
func ensureSessionID(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if id, ok := session.Get(SessionIDKey).(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	session.Set(SessionIDKey, id)
	if err := session.Save(); err != nil {
		return "", err
	}
	return id, nil
}

// sessionUserID returns the verified identity from the cookie session, or ""
// for anonymous callers.
func sessionUserID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionUserID(c) == "" {
			StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

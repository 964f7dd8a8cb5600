package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID      = "firebase_uid"
	CtxUserEmail   = "user_email"
	CtxIsAnonymous = "user_is_anonymous"
)

// UserID extracts the Firebase UID from the Gin context.
// This is set by RequireUser.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

// UserEmail extracts the verified email, if the token carried one.
func UserEmail(c *gin.Context) string {
	return c.GetString(CtxUserEmail)
}

// IsAnonymous reports whether the caller signed in anonymously.
func IsAnonymous(c *gin.Context) bool {
	return c.GetBool(CtxIsAnonymous)
}

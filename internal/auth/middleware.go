package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is the slice of the Firebase Auth client the middleware
// needs; *fbauth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// EnsureAccountFunc lazily bootstraps the caller's account document.
// Wired to the quota ledger in bootstrap.
type EnsureAccountFunc func(ctx context.Context, userID, email string, isAnonymous bool) error

// RequireUser validates the Firebase ID token, bootstraps the user's account
// and stores the caller's identity in the Gin context.
func RequireUser(verifier TokenVerifier, ensure EnsureAccountFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		decoded, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		email, _ := decoded.Claims["email"].(string)
		anonymous := decoded.Firebase.SignInProvider == "anonymous"

		if err := ensure(c.Request.Context(), decoded.UID, email, anonymous); err != nil {
			log.Printf("ensure account failed for %s: %v", decoded.UID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "account bootstrap failed"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, decoded.UID)
		c.Set(CtxUserEmail, email)
		c.Set(CtxIsAnonymous, anonymous)

		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}

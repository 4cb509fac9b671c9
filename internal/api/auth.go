package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// The identity provider lives outside this system: tokens are issued
// elsewhere and only verified here. A valid token's subject claim is the
// opaque user id every storage operation is scoped under.

const userIDKey = "user_id"

var (
	errMissingToken = errors.New("authorization token required")
	errInvalidToken = errors.New("invalid or expired token")
)

// requireAuth validates the bearer token and stores the authenticated user
// id in the request context. Requests without a valid identity never reach
// the engine.
func requireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingToken.Error()})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken.Error()})
			return
		}

		token, err := jwt.Parse(parts[1], func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken.Error()})
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken.Error()})
			return
		}

		c.Set(userIDKey, subject)
		c.Next()
	}
}

// currentUser returns the authenticated user id for the request.
func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/streetscore-go/internal/auth"
	"github.com/jengzang/streetscore-go/pkg/response"
)

const userIDKey = "user_id"

// Auth requires a valid bearer token and stores its user id on the context
func Auth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "Missing bearer token")
			return
		}

		userID, err := issuer.Parse(token)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuth stores the user id of a valid bearer token when one is sent.
// Requests without a usable token continue anonymously.
func OptionalAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if ok && token != "" {
			if userID, err := issuer.Parse(token); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user id
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

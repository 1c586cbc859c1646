package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// authMiddleware verifies the caller's bearer JWT and exposes the subject as
// the user id. Requests without a valid identity never reach the handlers.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "authorization required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(userIDKey, subject)
		c.Next()
	}
}

// internalKeyMiddleware guards the scheduled entry points with a shared
// secret header.
func internalKeyMiddleware(internalKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Internal-Key")

		if provided == "" {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "internal key required"})
			c.Abort()
			return
		}

		if provided != internalKey {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid internal key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

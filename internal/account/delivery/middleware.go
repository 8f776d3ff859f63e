package delivery

import (
	"net/http"
	"strings"

	"github.com/Alok-Gaur/mail-management-agent/internal/account/usecase"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without a valid operator bearer token.
func AuthMiddleware(tokens *usecase.OperatorTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		subject, err := tokens.Validate(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("operator", subject)
		c.Next()
	}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ingest-api/internal/auth"
	"ingest-api/pkg/errors"
)

type AuthMiddleware struct {
	tokenService *auth.TokenService
}

func NewAuthMiddleware(tokenService *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService}
}

// RequireAuth validates the bearer token. Without a configured secret every
// request passes.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.tokenService.Enabled() {
			c.Next()
			return
		}

		tokenString, err := m.tokenService.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ErrorResponse{
				Status:  "error",
				Message: err.Error(),
				Code:    errors.ErrUnauthorized.Code,
			})
			return
		}

		claims, err := m.tokenService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ErrorResponse{
				Status:  "error",
				Message: "Invalid or expired token",
				Code:    errors.ErrUnauthorized.Code,
			})
			return
		}

		c.Set("client", claims.Client)
		c.Next()
	}
}

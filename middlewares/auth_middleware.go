package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
)

const sessionKey = "session"

func setSession(c *gin.Context, claims *utils.CustomClaims, token string) {
	c.Set(sessionKey, services.Session{
		UserID: claims.UserID,
		Role:   claims.Role,
		Token:  token,
	})
}

// GetSession returns the caller established by AuthMiddleware.
func GetSession(c *gin.Context) (services.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return services.Session{}, false
	}
	session, ok := v.(services.Session)
	return session, ok
}

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header must use the Bearer scheme"))
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}

		setSession(c, claims, tokenString)
		c.Next()
	}
}

// WebSocketAuthMiddleware reads the token from ?token= since browsers cannot set headers on upgrade.
func WebSocketAuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		setSession(c, claims, token)
		c.Next()
	}
}

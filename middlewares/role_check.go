package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/yeremiapane/locum-staffing/utils"
)

// RequireRoles lets the request through only when the session role is one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			c.Abort()
			return
		}

		if _, ok := allowed[session.Role]; !ok {
			utils.RespondError(c, http.StatusForbidden,
				errors.Errorf("%s access required", strings.Join(roles, " or ")))
			c.Abort()
			return
		}

		c.Next()
	}
}

// README: Firebase bearer-token auth; resolves the caller to a stored user.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/infra"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
)

const (
	ctxUID  = "caller_uid"
	ctxRole = "caller_role"
	ctxUser = "caller_user"
)

type UserLookup interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*users.User, error)
}

// Auth rejects requests without a valid "Bearer <Firebase ID token>" header
// and requests from tokens that map to no active user.
func Auth(verifier infra.TokenVerifier, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		if role, ok := token.Claims["role"].(string); ok {
			c.Set(ctxRole, role)
		}

		u, err := lookup.GetByFirebaseUID(c.Request.Context(), token.UID)
		if errors.Is(err, users.ErrNotFound) || (err == nil && !u.IsActive) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown or inactive user"})
			return
		}
		if err != nil {
			zap.L().Error("caller lookup failed", zap.String("uid", token.UID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(ctxUser, u)
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

// CallerRole is the "role" custom claim of the token, if any.
func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// IsAdmin is true for admin users and for tokens carrying the "admin" role claim.
func IsAdmin(c *gin.Context) bool {
	if u := Caller(c); u != nil && u.IsAdmin() {
		return true
	}
	return CallerRole(c) == string(users.RoleAdmin)
}

// Caller returns the authenticated user, nil outside Auth.
func Caller(c *gin.Context) *users.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*users.User)
	return u
}

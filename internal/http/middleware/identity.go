package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deskhub/backend/internal/models"
)

// UserIDHeader is set by the authenticating reverse proxy in front of
// the API. The backend trusts it and resolves the profile itself.
const UserIDHeader = "X-User-Id"

const profileKey = "profile"

type ProfileLoader interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Identity resolves the caller's profile from the user id header and
// stores it on the request context for downstream handlers.
func Identity(loader ProfileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			abortError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing user identity")
			return
		}
		profile, err := loader.GetProfile(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				abortError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Unknown user")
				return
			}
			abortError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Could not resolve user identity")
			return
		}
		c.Set(profileKey, profile)
		c.Next()
	}
}

// ProfileFrom returns the profile placed on the context by Identity.
func ProfileFrom(c *gin.Context) models.Profile {
	v, ok := c.Get(profileKey)
	if !ok {
		return models.Profile{}
	}
	return v.(models.Profile)
}

// RequireAgent admits administrators and approved employees.
func RequireAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := ProfileFrom(c)
		if p.Role == models.RoleAdministrator {
			c.Next()
			return
		}
		if p.Role == models.RoleEmployee && p.EmployeeApproved {
			c.Next()
			return
		}
		abortError(c, http.StatusForbidden, "FORBIDDEN", "Agent access required")
	}
}

// RequireAdmin admits administrators only.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ProfileFrom(c).Role != models.RoleAdministrator {
			abortError(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			return
		}
		c.Next()
	}
}

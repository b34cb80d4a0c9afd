package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
	"github.com/noah-isme/volunteer-roster-api/pkg/response"
)

// Self lets a volunteer through when the volunteerId path parameter is their own.
const Self = "SELF"

// VolunteerParam is the path parameter compared against the caller for Self.
const VolunteerParam = "volunteerId"

// OrganizationParam is the path parameter used to scope organization admins.
const OrganizationParam = "orgId"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{})
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && claims.Role == models.RoleVolunteer {
			if target := c.Param(VolunteerParam); target != "" && target == claims.VolunteerID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// OrganizationScope rejects admins bound to one organization when the orgId path
// parameter names another. Superadmins and unbound admins pass.
func OrganizationScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims != nil && claims.Role == models.RoleAdmin && claims.OrganizationID != "" {
			if target := c.Param(OrganizationParam); target != "" && target != claims.OrganizationID {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin is scoped to another organization"))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

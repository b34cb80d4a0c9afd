package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/volunteer-roster-api/internal/middleware"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actingVolunteer resolves the volunteer a request acts for. Volunteers always act for
// themselves; admins name the volunteer explicitly.
func actingVolunteer(claims *models.JWTClaims, requested string) (string, error) {
	if claims == nil || claims.Role != models.RoleVolunteer {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "volunteer_id is required")
		}
		return requested, nil
	}
	if requested != "" && requested != claims.VolunteerID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "volunteers may only act for themselves")
	}
	return claims.VolunteerID, nil
}

// checkOrganizationScope rejects admins bound to a different organization.
func checkOrganizationScope(claims *models.JWTClaims, organizationID string) error {
	if claims != nil && claims.Role == models.RoleAdmin && claims.OrganizationID != "" && claims.OrganizationID != organizationID {
		return appErrors.Clone(appErrors.ErrForbidden, "admin is scoped to another organization")
	}
	return nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

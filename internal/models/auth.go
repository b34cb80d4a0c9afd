package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleVolunteer  UserRole = "VOLUNTEER"
)

// IsAdmin reports whether the role may manage organizations.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// JWTClaims represents the verified caller identity attached by the auth middleware.
// OrganizationID is set for admins, VolunteerID for volunteers.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Role           UserRole `json:"role"`
	Email          string   `json:"email,omitempty"`
	OrganizationID string   `json:"organization_id,omitempty"`
	VolunteerID    string   `json:"volunteer_id,omitempty"`
	jwt.RegisteredClaims
}

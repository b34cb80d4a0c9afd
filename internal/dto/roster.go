package dto

// CreateOrganizationRequest registers an organization.
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateVolunteerRequest registers a volunteer profile.
type CreateVolunteerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=40"`
}

// MembershipRequest identifies the volunteer affected by a membership change.
type MembershipRequest struct {
	VolunteerID string `json:"volunteer_id" validate:"required"`
}

// AssignmentQuery filters assignment listings.
type AssignmentQuery struct {
	OrganizationID string `form:"organization_id"`
	VolunteerID    string `form:"volunteer_id"`
	VerifiedOnly   bool   `form:"verified_only"`
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/middleware"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	"github.com/noah-isme/volunteer-roster-api/pkg/response"
)

type rosterService interface {
	CreateOrganization(ctx context.Context, req dto.CreateOrganizationRequest) (*models.Organization, error)
	CreateVolunteer(ctx context.Context, req dto.CreateVolunteerRequest) (*models.Volunteer, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, bool, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	GetVolunteer(ctx context.Context, id string) (*models.Volunteer, error)
	RequestJoin(ctx context.Context, organizationID, volunteerID string) error
	ApproveVolunteer(ctx context.Context, organizationID, volunteerID string) (*models.Volunteer, error)
	RejectVolunteer(ctx context.Context, organizationID, volunteerID string) (*models.Organization, error)
	RemoveVolunteer(ctx context.Context, organizationID, volunteerID string) (*models.Organization, error)
	ListVolunteers(ctx context.Context, organizationID string) ([]models.Volunteer, error)
	ListPendingVolunteers(ctx context.Context, organizationID string) ([]models.Volunteer, error)
	ListAssignments(ctx context.Context, query dto.AssignmentQuery) ([]models.ShiftAssignment, error)
	GetAssignment(ctx context.Context, id string) (*models.ShiftAssignment, error)
	VerifyAssignment(ctx context.Context, id string) (*models.ShiftAssignment, error)
}

// RosterHandler exposes organizations, volunteers and the membership workflow.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler builds a new handler.
func NewRosterHandler(service rosterService) *RosterHandler {
	return &RosterHandler{service: service}
}

// CreateOrganization godoc
// @Summary Register an organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param payload body dto.CreateOrganizationRequest true "Organization payload"
// @Success 201 {object} response.Envelope
// @Router /organizations [post]
func (h *RosterHandler) CreateOrganization(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid organization payload"))
		return
	}
	org, err := h.service.CreateOrganization(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// ListOrganizations godoc
// @Summary List organizations
// @Tags Organizations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /organizations [get]
func (h *RosterHandler) ListOrganizations(c *gin.Context) {
	start := time.Now()
	orgs, hit, err := h.service.ListOrganizations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, orgs, nil, middleware.ResponseMeta(c, start))
}

// GetOrganization godoc
// @Summary Get an organization
// @Tags Organizations
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId} [get]
func (h *RosterHandler) GetOrganization(c *gin.Context) {
	org, err := h.service.GetOrganization(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// RequestJoin godoc
// @Summary Ask to join an organization
// @Description Volunteers join as themselves; admins may file the request for a volunteer.
// @Tags Membership
// @Accept json
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param payload body dto.MembershipRequest false "Volunteer (admins only)"
// @Success 202 {object} response.Envelope
// @Router /organizations/{orgId}/join [post]
func (h *RosterHandler) RequestJoin(c *gin.Context) {
	var req dto.MembershipRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid membership payload"))
			return
		}
	}
	volunteerID, err := actingVolunteer(claimsFromContext(c), req.VolunteerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	orgID := c.Param("orgId")
	if err := h.service.RequestJoin(c.Request.Context(), orgID, volunteerID); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"organization_id": orgID, "volunteer_id": volunteerID, "status": models.MembershipPending})
}

// ApproveVolunteer godoc
// @Summary Approve a pending volunteer
// @Tags Membership
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param volunteerId path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId}/volunteers/{volunteerId}/approve [post]
func (h *RosterHandler) ApproveVolunteer(c *gin.Context) {
	vol, err := h.service.ApproveVolunteer(c.Request.Context(), c.Param("orgId"), c.Param("volunteerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vol, nil)
}

// RejectVolunteer godoc
// @Summary Reject a pending volunteer
// @Tags Membership
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param volunteerId path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId}/volunteers/{volunteerId}/reject [post]
func (h *RosterHandler) RejectVolunteer(c *gin.Context) {
	org, err := h.service.RejectVolunteer(c.Request.Context(), c.Param("orgId"), c.Param("volunteerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// RemoveVolunteer godoc
// @Summary Remove a member from an organization
// @Tags Membership
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param volunteerId path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId}/volunteers/{volunteerId} [delete]
func (h *RosterHandler) RemoveVolunteer(c *gin.Context) {
	org, err := h.service.RemoveVolunteer(c.Request.Context(), c.Param("orgId"), c.Param("volunteerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// ListVolunteers godoc
// @Summary List organization members
// @Tags Membership
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId}/volunteers [get]
func (h *RosterHandler) ListVolunteers(c *gin.Context) {
	vols, err := h.service.ListVolunteers(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vols, nil)
}

// ListPendingVolunteers godoc
// @Summary List volunteers awaiting approval
// @Tags Membership
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId}/pending [get]
func (h *RosterHandler) ListPendingVolunteers(c *gin.Context) {
	vols, err := h.service.ListPendingVolunteers(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vols, nil)
}

// ListOrganizationAssignments godoc
// @Summary List an organization's assignments
// @Tags Assignments
// @Produce json
// @Param orgId path string true "Organization ID"
// @Param verified_only query bool false "Only verified assignments"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId}/assignments [get]
func (h *RosterHandler) ListOrganizationAssignments(c *gin.Context) {
	h.listAssignments(c, dto.AssignmentQuery{OrganizationID: c.Param("orgId")})
}

// CreateVolunteer godoc
// @Summary Register a volunteer profile
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param payload body dto.CreateVolunteerRequest true "Volunteer payload"
// @Success 201 {object} response.Envelope
// @Router /volunteers [post]
func (h *RosterHandler) CreateVolunteer(c *gin.Context) {
	var req dto.CreateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid volunteer payload"))
		return
	}
	vol, err := h.service.CreateVolunteer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, vol)
}

// GetVolunteer godoc
// @Summary Get a volunteer
// @Tags Volunteers
// @Produce json
// @Param volunteerId path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{volunteerId} [get]
func (h *RosterHandler) GetVolunteer(c *gin.Context) {
	vol, err := h.service.GetVolunteer(c.Request.Context(), c.Param("volunteerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vol, nil)
}

// ListVolunteerAssignments godoc
// @Summary List a volunteer's assignments
// @Tags Assignments
// @Produce json
// @Param volunteerId path string true "Volunteer ID"
// @Param verified_only query bool false "Only verified assignments"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{volunteerId}/assignments [get]
func (h *RosterHandler) ListVolunteerAssignments(c *gin.Context) {
	h.listAssignments(c, dto.AssignmentQuery{VolunteerID: c.Param("volunteerId")})
}

// GetAssignment godoc
// @Summary Get an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *RosterHandler) GetAssignment(c *gin.Context) {
	assignment, err := h.service.GetAssignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := checkOrganizationScope(claimsFromContext(c), assignment.OrganizationID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// VerifyAssignment godoc
// @Summary Mark an assignment as verified
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/verify [post]
func (h *RosterHandler) VerifyAssignment(c *gin.Context) {
	ctx := c.Request.Context()
	assignment, err := h.service.GetAssignment(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := checkOrganizationScope(claimsFromContext(c), assignment.OrganizationID); err != nil {
		response.Error(c, err)
		return
	}
	verified, err := h.service.VerifyAssignment(ctx, assignment.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verified, nil)
}

func (h *RosterHandler) listAssignments(c *gin.Context, query dto.AssignmentQuery) {
	var filter dto.AssignmentQuery
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, bindError(err, "invalid assignment query"))
		return
	}
	query.VerifiedOnly = filter.VerifiedOnly
	items, err := h.service.ListAssignments(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

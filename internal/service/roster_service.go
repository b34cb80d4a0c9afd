package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// RosterService runs the membership workflow between organizations and volunteers and
// the verification of completed assignments.
type RosterService struct {
	orgs        OrganizationStore
	volunteers  VolunteerStore
	assignments AssignmentStore
	maintainer  *RelationshipMaintainer
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRosterService builds a RosterService.
func NewRosterService(stores Stores, maintainer *RelationshipMaintainer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		orgs:        stores.Organizations,
		volunteers:  stores.Volunteers,
		assignments: stores.Assignments,
		maintainer:  maintainer,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// CreateOrganization registers a new organization.
func (s *RosterService) CreateOrganization(ctx context.Context, req dto.CreateOrganizationRequest) (*models.Organization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid organization payload")
	}
	org := &models.Organization{Name: req.Name}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, appErrors.Internal(err, "failed to create organization")
	}
	s.cache.Invalidate(ctx, organizationsCacheKey())
	return org, nil
}

// CreateVolunteer registers a new volunteer profile.
func (s *RosterService) CreateVolunteer(ctx context.Context, req dto.CreateVolunteerRequest) (*models.Volunteer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid volunteer payload")
	}
	vol := &models.Volunteer{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email, Phone: req.Phone}
	if err := s.volunteers.Create(ctx, vol); err != nil {
		return nil, appErrors.Internal(err, "failed to create volunteer")
	}
	return vol, nil
}

// ListOrganizations returns every organization. The boolean reports a cache hit.
func (s *RosterService) ListOrganizations(ctx context.Context) ([]models.Organization, bool, error) {
	var cached []models.Organization
	if s.cache.Get(ctx, organizationsCacheKey(), &cached) {
		return cached, true, nil
	}
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list organizations")
	}
	s.cache.Set(ctx, organizationsCacheKey(), orgs)
	return orgs, false, nil
}

// GetOrganization loads one organization.
func (s *RosterService) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "organization not found", "failed to load organization")
	}
	return org, nil
}

// GetVolunteer loads one volunteer.
func (s *RosterService) GetVolunteer(ctx context.Context, id string) (*models.Volunteer, error) {
	vol, err := s.volunteers.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "volunteer not found", "failed to load volunteer")
	}
	return vol, nil
}

// RequestJoin places the volunteer on the organization's pending list. Members are left
// untouched and repeated requests are no-ops.
func (s *RosterService) RequestJoin(ctx context.Context, organizationID, volunteerID string) error {
	org, _, err := s.loadPair(ctx, organizationID, volunteerID)
	if err != nil {
		return err
	}
	if org.MembershipOf(volunteerID) == models.MembershipMember {
		return nil
	}
	err = s.maintainer.Commit(ctx, PairedUpdate{
		Operation: "requestJoin",
		Primary:   s.maintainer.Ref(models.AddRef(models.RefOrganizationPendingVolunteers, organizationID, volunteerID)),
	})
	if err != nil {
		return storeError(err, "organization not found", "failed to record join request")
	}
	s.cache.Invalidate(ctx, organizationsCacheKey())
	return nil
}

// ApproveVolunteer turns a pending request into membership. Approving an existing
// member re-applies both sides of the membership.
func (s *RosterService) ApproveVolunteer(ctx context.Context, organizationID, volunteerID string) (*models.Volunteer, error) {
	org, _, err := s.loadPair(ctx, organizationID, volunteerID)
	if err != nil {
		return nil, err
	}

	// leaving the pending list comes first so the volunteer is never on both lists
	primary := models.RemoveRef(models.RefOrganizationPendingVolunteers, organizationID, volunteerID)
	refs := []models.RefOp{
		models.AddRef(models.RefOrganizationVolunteers, organizationID, volunteerID),
		models.AddRef(models.RefVolunteerOrganizations, volunteerID, organizationID),
	}

	switch org.MembershipOf(volunteerID) {
	case models.MembershipPending:
		err = s.maintainer.Commit(ctx, PairedUpdate{Operation: "approveVolunteer", Primary: s.maintainer.Ref(primary), Refs: refs})
		if err != nil && !appErrors.Is(err, appErrors.ErrInconsistentState) {
			return nil, storeError(err, "organization not found", "failed to approve volunteer")
		}
	case models.MembershipMember:
		err = s.maintainer.Apply(ctx, "approveVolunteer", append([]models.RefOp{primary}, refs...)...)
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer has no pending request")
	}
	s.cache.Invalidate(ctx, organizationsCacheKey())
	if err != nil {
		return nil, err
	}
	return s.GetVolunteer(ctx, volunteerID)
}

// RejectVolunteer drops a pending request.
func (s *RosterService) RejectVolunteer(ctx context.Context, organizationID, volunteerID string) (*models.Organization, error) {
	if _, _, err := s.loadPair(ctx, organizationID, volunteerID); err != nil {
		return nil, err
	}
	err := s.maintainer.Commit(ctx, PairedUpdate{
		Operation: "rejectVolunteer",
		Primary:   s.maintainer.Ref(models.RemoveRef(models.RefOrganizationPendingVolunteers, organizationID, volunteerID)),
	})
	if err != nil {
		return nil, storeError(err, "organization not found", "failed to reject volunteer")
	}
	s.cache.Invalidate(ctx, organizationsCacheKey())
	return s.GetOrganization(ctx, organizationID)
}

// RemoveVolunteer ends a membership on both sides.
func (s *RosterService) RemoveVolunteer(ctx context.Context, organizationID, volunteerID string) (*models.Organization, error) {
	if _, _, err := s.loadPair(ctx, organizationID, volunteerID); err != nil {
		return nil, err
	}
	err := s.maintainer.Commit(ctx, PairedUpdate{
		Operation: "removeVolunteer",
		Primary:   s.maintainer.Ref(models.RemoveRef(models.RefOrganizationVolunteers, organizationID, volunteerID)),
		Refs:      []models.RefOp{models.RemoveRef(models.RefVolunteerOrganizations, volunteerID, organizationID)},
	})
	s.cache.Invalidate(ctx, organizationsCacheKey())
	if err != nil {
		if appErrors.Is(err, appErrors.ErrInconsistentState) {
			return nil, err
		}
		return nil, storeError(err, "organization not found", "failed to remove volunteer")
	}
	return s.GetOrganization(ctx, organizationID)
}

// ListVolunteers returns the organization's members ordered by name.
func (s *RosterService) ListVolunteers(ctx context.Context, organizationID string) ([]models.Volunteer, error) {
	org, err := s.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return s.findVolunteers(ctx, org.Volunteers)
}

// ListPendingVolunteers returns volunteers awaiting approval ordered by name.
func (s *RosterService) ListPendingVolunteers(ctx context.Context, organizationID string) ([]models.Volunteer, error) {
	org, err := s.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return s.findVolunteers(ctx, org.PendingVolunteers)
}

// ListAssignments returns the assignments of an organization or a volunteer ordered by
// creation time.
func (s *RosterService) ListAssignments(ctx context.Context, query dto.AssignmentQuery) ([]models.ShiftAssignment, error) {
	if query.OrganizationID == "" && query.VolunteerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "organization_id or volunteer_id is required")
	}
	if query.OrganizationID != "" {
		if _, err := s.GetOrganization(ctx, query.OrganizationID); err != nil {
			return nil, err
		}
	}
	if query.VolunteerID != "" {
		if _, err := s.GetVolunteer(ctx, query.VolunteerID); err != nil {
			return nil, err
		}
	}
	items, err := s.assignments.List(ctx, models.AssignmentFilter{
		OrganizationID: query.OrganizationID,
		VolunteerID:    query.VolunteerID,
		VerifiedOnly:   query.VerifiedOnly,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}
	return items, nil
}

// GetAssignment loads one assignment.
func (s *RosterService) GetAssignment(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	return assignment, nil
}

// VerifyAssignment marks a completed assignment as verified.
func (s *RosterService) VerifyAssignment(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	if err := s.assignments.SetVerified(ctx, id, true); err != nil {
		return nil, storeError(err, "assignment not found", "failed to verify assignment")
	}
	return s.GetAssignment(ctx, id)
}

func (s *RosterService) loadPair(ctx context.Context, organizationID, volunteerID string) (*models.Organization, *models.Volunteer, error) {
	org, err := s.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, nil, err
	}
	vol, err := s.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, nil, err
	}
	return org, vol, nil
}

func (s *RosterService) findVolunteers(ctx context.Context, ids []string) ([]models.Volunteer, error) {
	vols, err := s.volunteers.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load volunteers")
	}
	return vols, nil
}

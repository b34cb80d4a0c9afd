package service

import (
	"context"
	"errors"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// OrganizationStore persists organizations.
type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	List(ctx context.Context) ([]models.Organization, error)
}

// VolunteerStore persists volunteer profiles.
type VolunteerStore interface {
	Create(ctx context.Context, vol *models.Volunteer) error
	FindByID(ctx context.Context, id string) (*models.Volunteer, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Volunteer, error)
	List(ctx context.Context) ([]models.Volunteer, error)
}

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
}

// ShiftStore persists shifts and performs the atomic spot claim.
type ShiftStore interface {
	Create(ctx context.Context, shift *models.Shift) error
	FindByID(ctx context.Context, id string) (*models.Shift, error)
	Update(ctx context.Context, shift *models.Shift) error
	Delete(ctx context.Context, id string) error
	ListByEvent(ctx context.Context, eventID string) ([]models.Shift, error)
	List(ctx context.Context) ([]models.Shift, error)
	ClaimSpot(ctx context.Context, shiftID, volunteerID string) (models.SpotClaim, error)
}

// AssignmentStore persists shift assignments.
type AssignmentStore interface {
	Create(ctx context.Context, assignment *models.ShiftAssignment) (bool, error)
	FindByID(ctx context.Context, id string) (*models.ShiftAssignment, error)
	FindByVolunteerAndShift(ctx context.Context, volunteerID, shiftID string) (*models.ShiftAssignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.ShiftAssignment, error)
	CountByVolunteerAndEvent(ctx context.Context, volunteerID, eventID string) (int, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
}

// RepairStore persists failed back-reference updates.
type RepairStore interface {
	Create(ctx context.Context, task *models.RepairTask) error
	ListPending(ctx context.Context, limit int) ([]models.RepairTask, error)
	MarkResolved(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, cause string, maxAttempts int) error
}

// ReferenceStore applies single-record add-to-set and pull updates.
type ReferenceStore interface {
	Apply(ctx context.Context, op models.RefOp) error
}

// Stores groups the entity stores of one driver.
type Stores struct {
	Organizations OrganizationStore
	Volunteers    VolunteerStore
	Events        EventStore
	Shifts        ShiftStore
	Assignments   AssignmentStore
	Repairs       RepairStore
	References    ReferenceStore
}

func isNotFound(err error) bool {
	return errors.Is(err, appErrors.ErrRecordNotFound)
}

// storeError maps a store failure to NotFound or Internal.
func storeError(err error, notFoundMsg, internalMsg string) error {
	if isNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	return appErrors.Internal(err, internalMsg)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

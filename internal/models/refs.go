package models

import (
	"fmt"

	"github.com/lib/pq"
)

// RefField names a list of identifiers held by one entity that points at another entity.
type RefField string

const (
	RefOrganizationVolunteers        RefField = "organization.volunteers"
	RefOrganizationPendingVolunteers RefField = "organization.pending_volunteers"
	RefOrganizationEvents            RefField = "organization.events"
	RefVolunteerOrganizations        RefField = "volunteer.organizations"
	RefVolunteerAssignments          RefField = "volunteer.assignments"
	RefEventShifts                   RefField = "event.shifts"
	RefEventVolunteers               RefField = "event.volunteers"
	RefShiftVolunteers               RefField = "shift.volunteers"
	RefShiftAssignments              RefField = "shift.assignments"
)

// RefFields lists every reference list maintained by the roster.
var RefFields = []RefField{
	RefOrganizationVolunteers,
	RefOrganizationPendingVolunteers,
	RefOrganizationEvents,
	RefVolunteerOrganizations,
	RefVolunteerAssignments,
	RefEventShifts,
	RefEventVolunteers,
	RefShiftVolunteers,
	RefShiftAssignments,
}

// Valid reports whether f is a known reference field.
func (f RefField) Valid() bool {
	for _, known := range RefFields {
		if f == known {
			return true
		}
	}
	return false
}

// RefAction is the set operation applied to a reference list.
type RefAction string

const (
	// RefAdd inserts the id only when it is not already present.
	RefAdd RefAction = "ADD"
	// RefRemove pulls the id; removing an absent id is a no-op.
	RefRemove RefAction = "REMOVE"
)

// RefOp describes a single idempotent back-reference update.
type RefOp struct {
	Action  RefAction `json:"action"`
	Field   RefField  `json:"field"`
	OwnerID string    `json:"owner_id"`
	RefID   string    `json:"ref_id"`
}

// AddRef builds an add-to-set operation.
func AddRef(field RefField, ownerID, refID string) RefOp {
	return RefOp{Action: RefAdd, Field: field, OwnerID: ownerID, RefID: refID}
}

// RemoveRef builds a pull operation.
func RemoveRef(field RefField, ownerID, refID string) RefOp {
	return RefOp{Action: RefRemove, Field: field, OwnerID: ownerID, RefID: refID}
}

func (op RefOp) String() string {
	return fmt.Sprintf("%s %s[%s] %s", op.Action, op.Field, op.OwnerID, op.RefID)
}

// Contains reports whether ids holds id.
func Contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// NonNil returns an empty array for nil input so stores never persist NULL lists.
func NonNil(ids pq.StringArray) pq.StringArray {
	if ids == nil {
		return pq.StringArray{}
	}
	return ids
}

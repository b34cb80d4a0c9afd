package models

import "time"

// ShiftAssignment links one volunteer to one shift. EventID and OrganizationID are
// denormalized from the shift at sign-up time.
type ShiftAssignment struct {
	ID             string    `db:"id" json:"id" bson:"_id"`
	VolunteerID    string    `db:"volunteer_id" json:"volunteer_id" bson:"volunteer_id"`
	ShiftID        string    `db:"shift_id" json:"shift_id" bson:"shift_id"`
	EventID        string    `db:"event_id" json:"event_id" bson:"event_id"`
	OrganizationID string    `db:"organization_id" json:"organization_id" bson:"organization_id"`
	Verified       bool      `db:"verified" json:"verified" bson:"verified"`
	CreatedAt      time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	OrganizationID string
	VolunteerID    string
	ShiftID        string
	EventID        string
	VerifiedOnly   bool
}

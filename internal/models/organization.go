package models

import (
	"time"

	"github.com/lib/pq"
)

// Organization hosts events and recruits volunteers. Membership is tracked on the
// organization document; approved volunteers mirror it in Volunteer.Organizations.
type Organization struct {
	ID                string         `db:"id" json:"id" bson:"_id"`
	Name              string         `db:"name" json:"name" bson:"name"`
	Volunteers        pq.StringArray `db:"volunteers" json:"volunteers" bson:"volunteers"`
	PendingVolunteers pq.StringArray `db:"pending_volunteers" json:"pending_volunteers" bson:"pending_volunteers"`
	Events            pq.StringArray `db:"events" json:"events" bson:"events"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// MembershipStatus describes where a volunteer stands with an organization.
type MembershipStatus string

const (
	MembershipNone    MembershipStatus = "NONE"
	MembershipPending MembershipStatus = "PENDING"
	MembershipMember  MembershipStatus = "MEMBER"
)

// MembershipOf reports the membership status of volunteerID within the organization.
func (o *Organization) MembershipOf(volunteerID string) MembershipStatus {
	switch {
	case Contains(o.Volunteers, volunteerID):
		return MembershipMember
	case Contains(o.PendingVolunteers, volunteerID):
		return MembershipPending
	default:
		return MembershipNone
	}
}

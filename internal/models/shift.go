package models

import (
	"time"

	"github.com/lib/pq"
)

// Shift is a time sub-range of an event with an optional volunteer capacity.
type Shift struct {
	ID             string         `db:"id" json:"id" bson:"_id"`
	StartTime      time.Time      `db:"start_time" json:"start_time" bson:"start_time"`
	EndTime        time.Time      `db:"end_time" json:"end_time" bson:"end_time"`
	EventID        string         `db:"event_id" json:"event_id" bson:"event_id"`
	OrganizationID string         `db:"organization_id" json:"organization_id" bson:"organization_id"`
	MaxSpots       *int           `db:"max_spots" json:"max_spots,omitempty" bson:"max_spots"`
	Volunteers     pq.StringArray `db:"volunteers" json:"volunteers" bson:"volunteers"`
	Assignments    pq.StringArray `db:"assignments" json:"assignments" bson:"assignments"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// OpenSpots returns the remaining capacity, or -1 when the shift is unlimited.
func (s Shift) OpenSpots() int {
	if s.MaxSpots == nil {
		return -1
	}
	open := *s.MaxSpots - len(s.Volunteers)
	if open < 0 {
		return 0
	}
	return open
}

// Hours returns the shift length in hours.
func (s Shift) Hours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// SpotClaim is the outcome of atomically reserving a place on a shift.
type SpotClaim int

const (
	// SpotClaimed means the volunteer was added by this call.
	SpotClaimed SpotClaim = iota
	// SpotAlreadyHeld means the volunteer was already on the shift.
	SpotAlreadyHeld
	// SpotFull means max_spots was reached and nothing changed.
	SpotFull
)

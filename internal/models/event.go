package models

import (
	"time"

	"github.com/lib/pq"
)

// Event is a time-bounded activity belonging to one organization, divided into shifts.
// Volunteers is an aggregate of every volunteer holding at least one shift in the event.
type Event struct {
	ID             string         `db:"id" json:"id" bson:"_id"`
	Name           string         `db:"name" json:"name" bson:"name"`
	Location       string         `db:"location" json:"location" bson:"location"`
	StartTime      time.Time      `db:"start_time" json:"start_time" bson:"start_time"`
	EndTime        time.Time      `db:"end_time" json:"end_time" bson:"end_time"`
	OrganizationID string         `db:"organization_id" json:"organization_id" bson:"organization_id"`
	Shifts         pq.StringArray `db:"shifts" json:"shifts" bson:"shifts"`
	Volunteers     pq.StringArray `db:"volunteers" json:"volunteers" bson:"volunteers"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// Covers reports whether [start, end] lies within the event.
func (e Event) Covers(start, end time.Time) bool {
	return !start.Before(e.StartTime) && !end.After(e.EndTime)
}

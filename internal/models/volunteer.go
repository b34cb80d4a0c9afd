package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Volunteer is a person who joins organizations and signs up for shifts.
type Volunteer struct {
	ID            string         `db:"id" json:"id" bson:"_id"`
	FirstName     string         `db:"first_name" json:"first_name" bson:"first_name"`
	LastName      string         `db:"last_name" json:"last_name" bson:"last_name"`
	Email         string         `db:"email" json:"email" bson:"email"`
	Phone         string         `db:"phone" json:"phone,omitempty" bson:"phone"`
	Organizations pq.StringArray `db:"organizations" json:"organizations" bson:"organizations"`
	Assignments   pq.StringArray `db:"assignments" json:"assignments" bson:"assignments"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// FullName joins first and last name.
func (v Volunteer) FullName() string {
	return strings.TrimSpace(v.FirstName + " " + v.LastName)
}

package dto

import "time"

// CreateEventRequest payload for posting an event under an organization.
type CreateEventRequest struct {
	OrganizationID string    `json:"organization_id" validate:"required"`
	Name           string    `json:"name" validate:"required,max=200"`
	Location       string    `json:"location" validate:"omitempty,max=300"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
}

// UpdateEventRequest replaces the editable fields of an event.
type UpdateEventRequest struct {
	Name      string    `json:"name" validate:"required,max=200"`
	Location  string    `json:"location" validate:"omitempty,max=300"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// CreateShiftRequest payload for adding a shift to an event. OrganizationID is optional
// and must match the event when present.
type CreateShiftRequest struct {
	EventID        string    `json:"event_id" validate:"required"`
	OrganizationID string    `json:"organization_id"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
	MaxSpots       *int      `json:"max_spots" validate:"omitempty,gt=0"`
}

// UpdateShiftRequest replaces a shift's time range and capacity.
type UpdateShiftRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	MaxSpots  *int      `json:"max_spots" validate:"omitempty,gt=0"`
}

// SignUpRequest asks for a spot on a shift.
type SignUpRequest struct {
	VolunteerID string `json:"volunteer_id" validate:"required"`
	ShiftID     string `json:"shift_id" validate:"required"`
}

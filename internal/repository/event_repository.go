package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

const eventColumns = "id, name, location, start_time, end_time, organization_id, shifts, volunteers, created_at, updated_at"

// EventRepository handles persistence for events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository instantiates an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event record.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	event.Shifts = models.NonNil(event.Shifts)
	event.Volunteers = models.NonNil(event.Volunteers)

	const query = `INSERT INTO events (id, name, location, start_time, end_time, organization_id, shifts, volunteers, created_at, updated_at) VALUES (:id, :name, :location, :start_time, :end_time, :organization_id, :shifts, :volunteers, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID loads an event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, notFound(err, "find event")
	}
	return &event, nil
}

// ListByOrganization returns the organization's events ordered by start time.
func (r *EventRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE organization_id = $1 ORDER BY start_time, id`, eventColumns)
	events := []models.Event{}
	if err := r.db.SelectContext(ctx, &events, query, organizationID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// List returns every event.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events ORDER BY start_time, id`, eventColumns)
	events := []models.Event{}
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	return events, nil
}

// Update replaces the mutable scalar fields. Reference lists are left untouched.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET name = :name, location = :location, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectRow(res, "update event")
}

// Delete removes an event record.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectRow(res, "delete event")
}

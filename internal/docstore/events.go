package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

var startSort = bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}}

// EventStore persists events as documents.
type EventStore struct {
	coll *mongo.Collection
}

// NewEventStore binds the store to db.
func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{coll: db.Collection(EventsCollection)}
}

// Create inserts a new event.
func (s *EventStore) Create(ctx context.Context, event *models.Event) error {
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

	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID loads an event by identifier.
func (s *EventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&event); err != nil {
		return nil, notFound(err, "find event")
	}
	return &event, nil
}

// ListByOrganization returns the organization's events ordered by start time.
func (s *EventStore) ListByOrganization(ctx context.Context, organizationID string) ([]models.Event, error) {
	return findAll[models.Event](ctx, s.coll, bson.M{"organization_id": organizationID}, startSort, "list events")
}

// List returns every event.
func (s *EventStore) List(ctx context.Context) ([]models.Event, error) {
	return findAll[models.Event](ctx, s.coll, bson.M{}, startSort, "list all events")
}

// Update sets the scalar fields only, leaving reference lists to targeted operators.
func (s *EventStore) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":       event.Name,
		"location":   event.Location,
		"start_time": event.StartTime,
		"end_time":   event.EndTime,
		"updated_at": event.UpdatedAt,
	}}
	res, err := s.coll.UpdateOne(ctx, byID(event.ID), update)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectMatch(res, "update event")
}

// Delete removes an event document.
func (s *EventStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectDeleted(res, "delete event")
}

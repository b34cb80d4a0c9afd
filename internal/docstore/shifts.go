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

// ShiftStore persists shifts as documents.
type ShiftStore struct {
	coll *mongo.Collection
}

// NewShiftStore binds the store to db.
func NewShiftStore(db *mongo.Database) *ShiftStore {
	return &ShiftStore{coll: db.Collection(ShiftsCollection)}
}

// Create inserts a new shift.
func (s *ShiftStore) Create(ctx context.Context, shift *models.Shift) error {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if shift.CreatedAt.IsZero() {
		shift.CreatedAt = now
	}
	shift.UpdatedAt = now
	shift.Volunteers = models.NonNil(shift.Volunteers)
	shift.Assignments = models.NonNil(shift.Assignments)

	if _, err := s.coll.InsertOne(ctx, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// FindByID loads a shift by identifier.
func (s *ShiftStore) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	var shift models.Shift
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&shift); err != nil {
		return nil, notFound(err, "find shift")
	}
	return &shift, nil
}

// ListByEvent returns the shifts of an event ordered by start time.
func (s *ShiftStore) ListByEvent(ctx context.Context, eventID string) ([]models.Shift, error) {
	return findAll[models.Shift](ctx, s.coll, bson.M{"event_id": eventID}, startSort, "list shifts")
}

// List returns every shift.
func (s *ShiftStore) List(ctx context.Context) ([]models.Shift, error) {
	return findAll[models.Shift](ctx, s.coll, bson.M{}, startSort, "list all shifts")
}

// Update replaces the time range and capacity. A lowered capacity only applies while
// current sign-ups still fit.
func (s *ShiftStore) Update(ctx context.Context, shift *models.Shift) error {
	shift.UpdatedAt = time.Now().UTC()
	filter := byID(shift.ID)
	if shift.MaxSpots != nil {
		filter["$expr"] = bson.M{"$lte": bson.A{bson.M{"$size": "$volunteers"}, *shift.MaxSpots}}
	}
	update := bson.M{"$set": bson.M{
		"start_time": shift.StartTime,
		"end_time":   shift.EndTime,
		"max_spots":  shift.MaxSpots,
		"updated_at": shift.UpdatedAt,
	}}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return expectMatch(res, "update shift")
}

// Delete removes a shift document.
func (s *ShiftStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	return expectDeleted(res, "delete shift")
}

// ClaimSpot pushes volunteerID onto the shift only when it is absent and capacity
// remains, as a single conditional update.
func (s *ShiftStore) ClaimSpot(ctx context.Context, shiftID, volunteerID string) (models.SpotClaim, error) {
	filter := bson.M{
		"_id":        shiftID,
		"volunteers": bson.M{"$ne": volunteerID},
		"$or": bson.A{
			bson.M{"max_spots": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{bson.M{"$size": "$volunteers"}, "$max_spots"}}},
		},
	}
	update := bson.M{
		"$push": bson.M{"volunteers": volunteerID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return models.SpotFull, fmt.Errorf("claim shift spot: %w", err)
	}
	if res.ModifiedCount == 1 {
		return models.SpotClaimed, nil
	}

	shift, err := s.FindByID(ctx, shiftID)
	if err != nil {
		return models.SpotFull, err
	}
	if models.Contains(shift.Volunteers, volunteerID) {
		return models.SpotAlreadyHeld, nil
	}
	return models.SpotFull, nil
}

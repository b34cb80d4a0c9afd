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

// AssignmentStore persists shift assignments as documents.
type AssignmentStore struct {
	coll *mongo.Collection
}

// NewAssignmentStore binds the store to db.
func NewAssignmentStore(db *mongo.Database) *AssignmentStore {
	return &AssignmentStore{coll: db.Collection(AssignmentsCollection)}
}

// Create inserts the assignment. created is false when the unique (volunteer_id,
// shift_id) index rejected it.
func (s *AssignmentStore) Create(ctx context.Context, assignment *models.ShiftAssignment) (bool, error) {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, assignment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("create assignment: %w", err)
	}
	return true, nil
}

// FindByID loads an assignment by identifier.
func (s *AssignmentStore) FindByID(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	var assignment models.ShiftAssignment
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&assignment); err != nil {
		return nil, notFound(err, "find assignment")
	}
	return &assignment, nil
}

// FindByVolunteerAndShift loads the assignment for a (volunteer, shift) pair.
func (s *AssignmentStore) FindByVolunteerAndShift(ctx context.Context, volunteerID, shiftID string) (*models.ShiftAssignment, error) {
	var assignment models.ShiftAssignment
	filter := bson.M{"volunteer_id": volunteerID, "shift_id": shiftID}
	if err := s.coll.FindOne(ctx, filter).Decode(&assignment); err != nil {
		return nil, notFound(err, "find assignment by volunteer and shift")
	}
	return &assignment, nil
}

// List returns assignments matching filter ordered by creation time.
func (s *AssignmentStore) List(ctx context.Context, filter models.AssignmentFilter) ([]models.ShiftAssignment, error) {
	query := bson.M{}
	if filter.OrganizationID != "" {
		query["organization_id"] = filter.OrganizationID
	}
	if filter.VolunteerID != "" {
		query["volunteer_id"] = filter.VolunteerID
	}
	if filter.ShiftID != "" {
		query["shift_id"] = filter.ShiftID
	}
	if filter.EventID != "" {
		query["event_id"] = filter.EventID
	}
	if filter.VerifiedOnly {
		query["verified"] = true
	}
	sort := bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	return findAll[models.ShiftAssignment](ctx, s.coll, query, sort, "list assignments")
}

// CountByVolunteerAndEvent counts the volunteer's assignments within an event.
func (s *AssignmentStore) CountByVolunteerAndEvent(ctx context.Context, volunteerID, eventID string) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"volunteer_id": volunteerID, "event_id": eventID})
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return int(count), nil
}

// SetVerified marks an assignment verified.
func (s *AssignmentStore) SetVerified(ctx context.Context, id string, verified bool) error {
	update := bson.M{"$set": bson.M{"verified": verified, "updated_at": time.Now().UTC()}}
	res, err := s.coll.UpdateOne(ctx, byID(id), update)
	if err != nil {
		return fmt.Errorf("verify assignment: %w", err)
	}
	return expectMatch(res, "verify assignment")
}

// Delete removes an assignment document.
func (s *AssignmentStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectDeleted(res, "delete assignment")
}

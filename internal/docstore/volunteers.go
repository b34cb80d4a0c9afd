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

var volunteerSort = bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}, {Key: "_id", Value: 1}}

// VolunteerStore persists volunteer profiles as documents.
type VolunteerStore struct {
	coll *mongo.Collection
}

// NewVolunteerStore binds the store to db.
func NewVolunteerStore(db *mongo.Database) *VolunteerStore {
	return &VolunteerStore{coll: db.Collection(VolunteersCollection)}
}

// Create inserts a volunteer profile.
func (s *VolunteerStore) Create(ctx context.Context, vol *models.Volunteer) error {
	if vol.ID == "" {
		vol.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if vol.CreatedAt.IsZero() {
		vol.CreatedAt = now
	}
	vol.UpdatedAt = now
	vol.Organizations = models.NonNil(vol.Organizations)
	vol.Assignments = models.NonNil(vol.Assignments)

	if _, err := s.coll.InsertOne(ctx, vol); err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	return nil
}

// FindByID loads a volunteer by identifier.
func (s *VolunteerStore) FindByID(ctx context.Context, id string) (*models.Volunteer, error) {
	var vol models.Volunteer
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&vol); err != nil {
		return nil, notFound(err, "find volunteer")
	}
	return &vol, nil
}

// FindByIDs loads the referenced volunteers ordered by name. Unknown ids are skipped.
func (s *VolunteerStore) FindByIDs(ctx context.Context, ids []string) ([]models.Volunteer, error) {
	if len(ids) == 0 {
		return []models.Volunteer{}, nil
	}
	return findAll[models.Volunteer](ctx, s.coll, bson.M{"_id": bson.M{"$in": ids}}, volunteerSort, "find volunteers")
}

// List returns every volunteer.
func (s *VolunteerStore) List(ctx context.Context) ([]models.Volunteer, error) {
	return findAll[models.Volunteer](ctx, s.coll, bson.M{}, volunteerSort, "list volunteers")
}

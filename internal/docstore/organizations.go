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

// OrganizationStore persists organizations as documents.
type OrganizationStore struct {
	coll *mongo.Collection
}

// NewOrganizationStore binds the store to db.
func NewOrganizationStore(db *mongo.Database) *OrganizationStore {
	return &OrganizationStore{coll: db.Collection(OrganizationsCollection)}
}

// Create inserts a new organization.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	org.Volunteers = models.NonNil(org.Volunteers)
	org.PendingVolunteers = models.NonNil(org.PendingVolunteers)
	org.Events = models.NonNil(org.Events)

	if _, err := s.coll.InsertOne(ctx, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// FindByID loads an organization by identifier.
func (s *OrganizationStore) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&org); err != nil {
		return nil, notFound(err, "find organization")
	}
	return &org, nil
}

// List returns every organization ordered by name.
func (s *OrganizationStore) List(ctx context.Context) ([]models.Organization, error) {
	return findAll[models.Organization](ctx, s.coll, bson.M{}, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}, "list organizations")
}

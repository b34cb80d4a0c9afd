package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

type refTarget struct {
	collection string
	field      string
}

var refTargets = map[models.RefField]refTarget{
	models.RefOrganizationVolunteers:        {OrganizationsCollection, "volunteers"},
	models.RefOrganizationPendingVolunteers: {OrganizationsCollection, "pending_volunteers"},
	models.RefOrganizationEvents:            {OrganizationsCollection, "events"},
	models.RefVolunteerOrganizations:        {VolunteersCollection, "organizations"},
	models.RefVolunteerAssignments:          {VolunteersCollection, "assignments"},
	models.RefEventShifts:                   {EventsCollection, "shifts"},
	models.RefEventVolunteers:               {EventsCollection, "volunteers"},
	models.RefShiftVolunteers:               {ShiftsCollection, "volunteers"},
	models.RefShiftAssignments:              {ShiftsCollection, "assignments"},
}

// ReferenceStore applies $addToSet and $pull updates on reference arrays.
type ReferenceStore struct {
	db *mongo.Database
}

// NewReferenceStore binds the store to db.
func NewReferenceStore(db *mongo.Database) *ReferenceStore {
	return &ReferenceStore{db: db}
}

// Apply executes op as a single-document update. A missing owner yields ErrRecordNotFound.
func (s *ReferenceStore) Apply(ctx context.Context, op models.RefOp) error {
	target, ok := refTargets[op.Field]
	if !ok {
		return fmt.Errorf("apply %s: unknown reference field", op)
	}

	var operator string
	switch op.Action {
	case models.RefAdd:
		operator = "$addToSet"
	case models.RefRemove:
		operator = "$pull"
	default:
		return fmt.Errorf("apply %s: unknown action", op)
	}

	update := bson.M{
		operator: bson.M{target.field: op.RefID},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.db.Collection(target.collection).UpdateOne(ctx, byID(op.OwnerID), update)
	if err != nil {
		return fmt.Errorf("apply %s: %w", op, err)
	}
	return expectMatch(res, "apply "+op.String())
}

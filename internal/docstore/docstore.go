// Package docstore implements the roster entity stores on MongoDB. Every store mirrors
// the method set of its Postgres counterpart in internal/repository so services can run
// on either driver.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// Collection names.
const (
	OrganizationsCollection = "organizations"
	VolunteersCollection    = "volunteers"
	EventsCollection        = "events"
	ShiftsCollection        = "shifts"
	AssignmentsCollection   = "shift_assignments"
	RepairTasksCollection   = "repair_tasks"
)

// EnsureIndexes creates the indexes the stores rely on. The unique (volunteer_id,
// shift_id) index resolves duplicate concurrent sign-ups.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		VolunteersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		},
		EventsCollection: {
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "start_time", Value: 1}}, Options: options.Index().SetName("org_start")},
		},
		ShiftsCollection: {
			{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "start_time", Value: 1}}, Options: options.Index().SetName("event_start")},
		},
		AssignmentsCollection: {
			{Keys: bson.D{{Key: "volunteer_id", Value: 1}, {Key: "shift_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_volunteer_shift")},
			{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("org_created")},
			{Keys: bson.D{{Key: "volunteer_id", Value: 1}, {Key: "event_id", Value: 1}}, Options: options.Index().SetName("volunteer_event")},
		},
		RepairTasksCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("status_created")},
		},
	}
	for collection, indexes := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}

func byID(id string) bson.M {
	return bson.M{"_id": id}
}

// notFound converts mongo.ErrNoDocuments into the driver-neutral sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, appErrors.ErrRecordNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func expectMatch(res *mongo.UpdateResult, what string) error {
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", what, appErrors.ErrRecordNotFound)
	}
	return nil
}

func expectDeleted(res *mongo.DeleteResult, what string) error {
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", what, appErrors.ErrRecordNotFound)
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D, what string) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("%s decode: %w", what, err)
	}
	return items, nil
}

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

// RepairStore persists repair tasks as documents.
type RepairStore struct {
	coll *mongo.Collection
}

// NewRepairStore binds the store to db.
func NewRepairStore(db *mongo.Database) *RepairStore {
	return &RepairStore{coll: db.Collection(RepairTasksCollection)}
}

// Create stores a new repair task.
func (s *RepairStore) Create(ctx context.Context, task *models.RepairTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.RepairPending
	}
	if _, err := s.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("create repair task: %w", err)
	}
	return nil
}

// ListPending returns up to limit pending tasks, oldest first.
func (s *RepairStore) ListPending(ctx context.Context, limit int) ([]models.RepairTask, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, bson.M{"status": models.RepairPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("list repair tasks: %w", err)
	}
	tasks := []models.RepairTask{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("list repair tasks decode: %w", err)
	}
	return tasks, nil
}

// MarkResolved flags a task as replayed successfully.
func (s *RepairStore) MarkResolved(ctx context.Context, id string) error {
	update := bson.M{
		"$set": bson.M{"status": models.RepairResolved, "last_error": "", "updated_at": time.Now().UTC()},
		"$inc": bson.M{"attempts": 1},
	}
	res, err := s.coll.UpdateOne(ctx, byID(id), update)
	if err != nil {
		return fmt.Errorf("resolve repair task: %w", err)
	}
	return expectMatch(res, "resolve repair task")
}

// RecordFailure bumps the attempt counter and stores the last error. The task moves to
// FAILED once attempts reaches maxAttempts.
func (s *RepairStore) RecordFailure(ctx context.Context, id string, cause string, maxAttempts int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attempts":   bson.M{"$add": bson.A{"$attempts", 1}},
			"last_error": bson.M{"$literal": cause},
			"updated_at": time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$attempts", maxAttempts}},
				models.RepairFailed,
				"$status",
			}},
		}}},
	}
	res, err := s.coll.UpdateOne(ctx, byID(id), pipeline)
	if err != nil {
		return fmt.Errorf("record repair failure: %w", err)
	}
	return expectMatch(res, "record repair failure")
}

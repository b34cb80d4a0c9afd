// Package store opens the entity stores for the configured driver.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/docstore"
	"github.com/noah-isme/volunteer-roster-api/internal/repository"
	"github.com/noah-isme/volunteer-roster-api/internal/service"
	"github.com/noah-isme/volunteer-roster-api/pkg/config"
	"github.com/noah-isme/volunteer-roster-api/pkg/database"
)

// Backend is an open driver with its stores.
type Backend struct {
	Driver string
	Stores service.Stores

	ping    func(ctx context.Context) error
	prepare func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Open connects to the configured driver and builds its stores. Schema and indexes are
// not touched until Prepare.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database, cfg.Store.ConnectMaxElapsed, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return Postgres(db), nil
	case config.StoreDriverMongo:
		db, err := database.NewMongo(ctx, cfg.Mongo, cfg.Store.ConnectMaxElapsed, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return Mongo(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Postgres wraps an open database in the relational stores.
func Postgres(db *sqlx.DB) *Backend {
	return &Backend{
		Driver: config.StoreDriverPostgres,
		Stores: service.Stores{
			Organizations: repository.NewOrganizationRepository(db),
			Volunteers:    repository.NewVolunteerRepository(db),
			Events:        repository.NewEventRepository(db),
			Shifts:        repository.NewShiftRepository(db),
			Assignments:   repository.NewAssignmentRepository(db),
			Repairs:       repository.NewRepairRepository(db),
			References:    repository.NewReferenceRepository(db),
		},
		ping:    db.PingContext,
		prepare: func(ctx context.Context) error { return repository.Migrate(ctx, db) },
		close:   func(context.Context) error { return db.Close() },
	}
}

// Mongo wraps an open database in the document stores.
func Mongo(db *mongo.Database) *Backend {
	return &Backend{
		Driver: config.StoreDriverMongo,
		Stores: service.Stores{
			Organizations: docstore.NewOrganizationStore(db),
			Volunteers:    docstore.NewVolunteerStore(db),
			Events:        docstore.NewEventStore(db),
			Shifts:        docstore.NewShiftStore(db),
			Assignments:   docstore.NewAssignmentStore(db),
			Repairs:       docstore.NewRepairStore(db),
			References:    docstore.NewReferenceStore(db),
		},
		ping:    func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
		prepare: func(ctx context.Context) error { return docstore.EnsureIndexes(ctx, db) },
		close:   func(ctx context.Context) error { return db.Client().Disconnect(ctx) },
	}
}

// Prepare creates the schema or indexes the stores rely on. It is idempotent.
func (b *Backend) Prepare(ctx context.Context) error {
	return b.prepare(ctx)
}

// Ping reports whether the driver is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases the connection.
func (b *Backend) Close(ctx context.Context) error {
	return b.close(ctx)
}

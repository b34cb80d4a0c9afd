package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/pkg/config"
)

const applicationName = "volunteer-roster"

// NewPostgres returns a configured PostgreSQL client. The first ping is retried with
// exponential backoff so the API can start alongside its database container.
func NewPostgres(cfg config.DatabaseConfig, maxElapsed time.Duration, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := retryConnect("postgres", maxElapsed, logger, db.Ping); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// postgresDSN names the application in pg_stat_activity and caps a single dial at five
// seconds; retryConnect governs the total wait.
func postgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s connect_timeout=5",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
		applicationName,
	)
}

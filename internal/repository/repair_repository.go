package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

const repairColumns = "id, operation, action, field, owner_id, ref_id, status, attempts, last_error, created_at, updated_at"

// RepairRepository persists back-reference updates that still need replaying.
type RepairRepository struct {
	db *sqlx.DB
}

// NewRepairRepository instantiates a repair task repository.
func NewRepairRepository(db *sqlx.DB) *RepairRepository {
	return &RepairRepository{db: db}
}

// Create stores a new repair task.
func (r *RepairRepository) Create(ctx context.Context, task *models.RepairTask) error {
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

	const query = `INSERT INTO repair_tasks (id, operation, action, field, owner_id, ref_id, status, attempts, last_error, created_at, updated_at) VALUES (:id, :operation, :action, :field, :owner_id, :ref_id, :status, :attempts, :last_error, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create repair task: %w", err)
	}
	return nil
}

// ListPending returns up to limit pending tasks, oldest first.
func (r *RepairRepository) ListPending(ctx context.Context, limit int) ([]models.RepairTask, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_tasks WHERE status = $1 ORDER BY created_at, id LIMIT $2`, repairColumns)
	tasks := []models.RepairTask{}
	if err := r.db.SelectContext(ctx, &tasks, query, string(models.RepairPending), limit); err != nil {
		return nil, fmt.Errorf("list repair tasks: %w", err)
	}
	return tasks, nil
}

// MarkResolved flags a task as replayed successfully.
func (r *RepairRepository) MarkResolved(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE repair_tasks SET status = $2, attempts = attempts + 1, last_error = '', updated_at = $3 WHERE id = $1`, id, string(models.RepairResolved), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resolve repair task: %w", err)
	}
	return expectRow(res, "resolve repair task")
}

// RecordFailure bumps the attempt counter and stores the last error. The task moves to
// FAILED once attempts reaches maxAttempts.
func (r *RepairRepository) RecordFailure(ctx context.Context, id string, cause string, maxAttempts int) error {
	const query = `UPDATE repair_tasks SET attempts = attempts + 1, last_error = $2, status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, cause, maxAttempts, string(models.RepairFailed), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record repair failure: %w", err)
	}
	return expectRow(res, "record repair failure")
}

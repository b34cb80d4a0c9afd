package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

const shiftColumns = "id, start_time, end_time, event_id, organization_id, max_spots, volunteers, assignments, created_at, updated_at"

// ShiftRepository handles persistence for shifts.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository instantiates a shift repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// Create inserts a new shift.
func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) error {
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

	const query = `INSERT INTO shifts (id, start_time, end_time, event_id, organization_id, max_spots, volunteers, assignments, created_at, updated_at) VALUES (:id, :start_time, :end_time, :event_id, :organization_id, :max_spots, :volunteers, :assignments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// FindByID loads a shift by identifier.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE id = $1`, shiftColumns)
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, notFound(err, "find shift")
	}
	return &shift, nil
}

// ListByEvent returns the shifts of an event ordered by start time.
func (r *ShiftRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE event_id = $1 ORDER BY start_time, id`, shiftColumns)
	shifts := []models.Shift{}
	if err := r.db.SelectContext(ctx, &shifts, query, eventID); err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, nil
}

// List returns every shift.
func (r *ShiftRepository) List(ctx context.Context) ([]models.Shift, error) {
	query := fmt.Sprintf(`SELECT %s FROM shifts ORDER BY start_time, id`, shiftColumns)
	shifts := []models.Shift{}
	if err := r.db.SelectContext(ctx, &shifts, query); err != nil {
		return nil, fmt.Errorf("list all shifts: %w", err)
	}
	return shifts, nil
}

// Update replaces the time range and capacity. The capacity guard is repeated in SQL so
// a concurrent sign-up cannot leave the shift over-booked.
func (r *ShiftRepository) Update(ctx context.Context, shift *models.Shift) error {
	shift.UpdatedAt = time.Now().UTC()
	const query = `UPDATE shifts SET start_time = $2, end_time = $3, max_spots = $4, updated_at = $5 WHERE id = $1 AND ($4::INTEGER IS NULL OR cardinality(volunteers) <= $4::INTEGER)`
	res, err := r.db.ExecContext(ctx, query, shift.ID, shift.StartTime, shift.EndTime, shift.MaxSpots, shift.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return expectRow(res, "update shift")
}

// Delete removes a shift record.
func (r *ShiftRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	return expectRow(res, "delete shift")
}

// ClaimSpot adds volunteerID to the shift only when it is absent and capacity remains.
// The check and the write happen in one statement.
func (r *ShiftRepository) ClaimSpot(ctx context.Context, shiftID, volunteerID string) (models.SpotClaim, error) {
	const query = `UPDATE shifts SET volunteers = array_append(volunteers, $2), updated_at = $3 WHERE id = $1 AND NOT ($2 = ANY(volunteers)) AND (max_spots IS NULL OR cardinality(volunteers) < max_spots)`
	res, err := r.db.ExecContext(ctx, query, shiftID, volunteerID, time.Now().UTC())
	if err != nil {
		return models.SpotFull, fmt.Errorf("claim shift spot: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return models.SpotFull, fmt.Errorf("claim shift spot rows affected: %w", err)
	}
	if rows == 1 {
		return models.SpotClaimed, nil
	}

	shift, err := r.FindByID(ctx, shiftID)
	if err != nil {
		return models.SpotFull, err
	}
	if models.Contains(shift.Volunteers, volunteerID) {
		return models.SpotAlreadyHeld, nil
	}
	return models.SpotFull, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

const assignmentColumns = "id, volunteer_id, shift_id, event_id, organization_id, verified, created_at, updated_at"

// AssignmentRepository handles persistence for shift assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository instantiates an assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts the assignment unless one already exists for the (volunteer, shift)
// pair. created is false when the insert lost to an existing row.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.ShiftAssignment) (bool, error) {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now

	const query = `INSERT INTO shift_assignments (id, volunteer_id, shift_id, event_id, organization_id, verified, created_at, updated_at) VALUES (:id, :volunteer_id, :shift_id, :event_id, :organization_id, :verified, :created_at, :updated_at) ON CONFLICT (volunteer_id, shift_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return false, fmt.Errorf("create assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create assignment rows affected: %w", err)
	}
	return rows == 1, nil
}

// FindByID loads an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shift_assignments WHERE id = $1`, assignmentColumns)
	var assignment models.ShiftAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, notFound(err, "find assignment")
	}
	return &assignment, nil
}

// FindByVolunteerAndShift loads the assignment for a (volunteer, shift) pair.
func (r *AssignmentRepository) FindByVolunteerAndShift(ctx context.Context, volunteerID, shiftID string) (*models.ShiftAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shift_assignments WHERE volunteer_id = $1 AND shift_id = $2`, assignmentColumns)
	var assignment models.ShiftAssignment
	if err := r.db.GetContext(ctx, &assignment, query, volunteerID, shiftID); err != nil {
		return nil, notFound(err, "find assignment by volunteer and shift")
	}
	return &assignment, nil
}

// List returns assignments matching filter ordered by creation time.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.ShiftAssignment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("organization_id", filter.OrganizationID)
	add("volunteer_id", filter.VolunteerID)
	add("shift_id", filter.ShiftID)
	add("event_id", filter.EventID)
	if filter.VerifiedOnly {
		conditions = append(conditions, "verified = TRUE")
	}

	query := fmt.Sprintf(`SELECT %s FROM shift_assignments`, assignmentColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	assignments := []models.ShiftAssignment{}
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// CountByVolunteerAndEvent counts the volunteer's assignments within an event.
func (r *AssignmentRepository) CountByVolunteerAndEvent(ctx context.Context, volunteerID, eventID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM shift_assignments WHERE volunteer_id = $1 AND event_id = $2`
	if err := r.db.GetContext(ctx, &count, query, volunteerID, eventID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

// SetVerified marks an assignment verified.
func (r *AssignmentRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE shift_assignments SET verified = $2, updated_at = $3 WHERE id = $1`, id, verified, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("verify assignment: %w", err)
	}
	return expectRow(res, "verify assignment")
}

// Delete removes an assignment record.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shift_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectRow(res, "delete assignment")
}

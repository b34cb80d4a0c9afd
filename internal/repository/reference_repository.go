package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

type refColumn struct {
	table  string
	column string
}

// refColumns whitelists the table and column behind each reference field. Identifiers
// never come from request input.
var refColumns = map[models.RefField]refColumn{
	models.RefOrganizationVolunteers:        {"organizations", "volunteers"},
	models.RefOrganizationPendingVolunteers: {"organizations", "pending_volunteers"},
	models.RefOrganizationEvents:            {"organizations", "events"},
	models.RefVolunteerOrganizations:        {"volunteers", "organizations"},
	models.RefVolunteerAssignments:          {"volunteers", "assignments"},
	models.RefEventShifts:                   {"events", "shifts"},
	models.RefEventVolunteers:               {"events", "volunteers"},
	models.RefShiftVolunteers:               {"shifts", "volunteers"},
	models.RefShiftAssignments:              {"shifts", "assignments"},
}

// ReferenceRepository applies add-to-set and pull updates on reference array columns.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository instantiates a reference repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Apply executes op as a single statement. A missing owner row yields ErrRecordNotFound.
func (r *ReferenceRepository) Apply(ctx context.Context, op models.RefOp) error {
	target, ok := refColumns[op.Field]
	if !ok {
		return fmt.Errorf("apply %s: unknown reference field", op)
	}

	var query string
	switch op.Action {
	case models.RefAdd:
		query = fmt.Sprintf(`UPDATE %[1]s SET %[2]s = CASE WHEN $2 = ANY(%[2]s) THEN %[2]s ELSE array_append(%[2]s, $2) END, updated_at = $3 WHERE id = $1`, target.table, target.column)
	case models.RefRemove:
		query = fmt.Sprintf(`UPDATE %[1]s SET %[2]s = array_remove(%[2]s, $2), updated_at = $3 WHERE id = $1`, target.table, target.column)
	default:
		return fmt.Errorf("apply %s: unknown action", op)
	}

	res, err := r.db.ExecContext(ctx, query, op.OwnerID, op.RefID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("apply %s: %w", op, err)
	}
	return expectRow(res, "apply "+op.String())
}

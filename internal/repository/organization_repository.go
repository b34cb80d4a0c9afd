package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

const organizationColumns = "id, name, volunteers, pending_volunteers, events, created_at, updated_at"

// OrganizationRepository handles persistence for organizations.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository instantiates an organization repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts a new organization.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
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

	const query = `INSERT INTO organizations (id, name, volunteers, pending_volunteers, events, created_at, updated_at) VALUES (:id, :name, :volunteers, :pending_volunteers, :events, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// FindByID loads an organization by identifier.
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE id = $1`, organizationColumns)
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, notFound(err, "find organization")
	}
	return &org, nil
}

// List returns every organization ordered by name.
func (r *OrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations ORDER BY name, id`, organizationColumns)
	orgs := []models.Organization{}
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

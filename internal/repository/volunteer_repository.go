package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

const volunteerColumns = "id, first_name, last_name, email, phone, organizations, assignments, created_at, updated_at"

// VolunteerRepository handles persistence for volunteer profiles.
type VolunteerRepository struct {
	db *sqlx.DB
}

// NewVolunteerRepository instantiates a volunteer repository.
func NewVolunteerRepository(db *sqlx.DB) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

// Create inserts a volunteer profile.
func (r *VolunteerRepository) Create(ctx context.Context, vol *models.Volunteer) error {
	if vol.ID == "" {
		vol.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if vol.CreatedAt.IsZero() {
		vol.CreatedAt = now
	}
	vol.UpdatedAt = now
	vol.Organizations = models.NonNil(vol.Organizations)
	vol.Assignments = models.NonNil(vol.Assignments)

	const query = `INSERT INTO volunteers (id, first_name, last_name, email, phone, organizations, assignments, created_at, updated_at) VALUES (:id, :first_name, :last_name, :email, :phone, :organizations, :assignments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, vol); err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	return nil
}

// FindByID loads a volunteer by identifier.
func (r *VolunteerRepository) FindByID(ctx context.Context, id string) (*models.Volunteer, error) {
	query := fmt.Sprintf(`SELECT %s FROM volunteers WHERE id = $1`, volunteerColumns)
	var vol models.Volunteer
	if err := r.db.GetContext(ctx, &vol, query, id); err != nil {
		return nil, notFound(err, "find volunteer")
	}
	return &vol, nil
}

// FindByIDs loads the volunteers referenced by ids ordered by name. Unknown ids are skipped.
func (r *VolunteerRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Volunteer, error) {
	vols := []models.Volunteer{}
	if len(ids) == 0 {
		return vols, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM volunteers WHERE id = ANY($1) ORDER BY last_name, first_name, id`, volunteerColumns)
	if err := r.db.SelectContext(ctx, &vols, query, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("find volunteers: %w", err)
	}
	return vols, nil
}

// List returns every volunteer.
func (r *VolunteerRepository) List(ctx context.Context) ([]models.Volunteer, error) {
	query := fmt.Sprintf(`SELECT %s FROM volunteers ORDER BY last_name, first_name, id`, volunteerColumns)
	vols := []models.Volunteer{}
	if err := r.db.SelectContext(ctx, &vols, query); err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	return vols, nil
}

package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(base BaseRepository) repository.ClinicRepository {
	return &clinicRepository{base}
}

const clinicColumns = `id, slug, name, address, island, phone, created_at, updated_at`

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	clinic.Touch()
	query := `
		INSERT INTO clinics (id, slug, name, address, island, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		clinic.ID,
		clinic.Slug,
		clinic.Name,
		clinic.Address,
		clinic.Island,
		clinic.Phone,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	return classify("failed to create clinic", err)
}

// CreateIfAbsent inserts clinic unless one with the same slug exists. Under
// READ COMMITTED the conflicting insert waits for the other transaction, so
// the re-read sees the winner's row.
func (r *clinicRepository) CreateIfAbsent(ctx context.Context, clinic *model.Clinic) (*model.Clinic, error) {
	clinic.Touch()
	query := `
		INSERT INTO clinics (id, slug, name, address, island, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		clinic.ID,
		clinic.Slug,
		clinic.Name,
		clinic.Address,
		clinic.Island,
		clinic.Phone,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	if err != nil {
		return nil, classify("failed to create clinic", err)
	}
	return r.GetBySlug(ctx, clinic.Slug)
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &clinic, query, id); err != nil {
		return nil, classify("failed to get clinic", err)
	}
	return &clinic, nil
}

func (r *clinicRepository) GetBySlug(ctx context.Context, slug string) (*model.Clinic, error) {
	var clinic model.Clinic
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE slug = $1`
	if err := sqlx.GetContext(ctx, r.db, &clinic, query, slug); err != nil {
		return nil, classify("failed to get clinic by slug", err)
	}
	return &clinic, nil
}

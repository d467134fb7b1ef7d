package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type providerRepository struct {
	BaseRepository
}

func NewProviderRepository(base BaseRepository) repository.ProviderRepository {
	return &providerRepository{base}
}

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	provider.Touch()
	query := `
		INSERT INTO providers (id, profile_id, clinic_id, bio, specialties, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		provider.ID,
		provider.ProfileID,
		provider.ClinicID,
		provider.Bio,
		provider.Specialties,
		provider.Slug,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	return classify("failed to create provider", err)
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var provider model.Provider
	query := `
		SELECT id, profile_id, clinic_id, bio, specialties, slug, created_at, updated_at
		FROM providers
		WHERE id = $1
	`
	if err := sqlx.GetContext(ctx, r.db, &provider, query, id); err != nil {
		return nil, classify("failed to get provider", err)
	}
	return &provider, nil
}

func (r *providerRepository) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.ProviderListing, error) {
	var where []string
	var args []interface{}

	if filters != nil && filters.PendingOnly {
		args = append(args, model.RoleUser)
		where = append(where, fmt.Sprintf("pr.role = $%d", len(args)))
	}

	query := `
		SELECT p.id, p.profile_id, p.clinic_id, p.bio, p.specialties, p.slug,
			p.created_at, p.updated_at,
			pr.name, pr.email, pr.role, c.name AS clinic_name
		FROM providers p
		JOIN profiles pr ON pr.id = p.profile_id
		JOIN clinics c ON c.id = p.clinic_id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC"
	if filters != nil && filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var providers []*model.ProviderListing
	if err := sqlx.SelectContext(ctx, r.db, &providers, query, args...); err != nil {
		return nil, classify("failed to list providers", err)
	}
	return providers, nil
}

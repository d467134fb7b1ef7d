package postgres

import (
	"context"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type integrationRepository struct {
	BaseRepository
}

func NewIntegrationRepository(base BaseRepository) repository.IntegrationRepository {
	return &integrationRepository{base}
}

func (r *integrationRepository) Create(ctx context.Context, integration *model.Integration) error {
	integration.Touch()
	query := `
		INSERT INTO integrations (
			id, provider_id, type, company_id, api_user, api_key_sealed, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		integration.ID,
		integration.ProviderID,
		integration.Type,
		integration.CompanyID,
		integration.APIUser,
		integration.APIKeySealed,
		integration.Active,
		integration.CreatedAt,
		integration.UpdatedAt,
	)
	return classify("failed to create integration", err)
}

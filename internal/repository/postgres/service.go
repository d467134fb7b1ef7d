package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(base BaseRepository) repository.ServiceRepository {
	return &serviceRepository{base}
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	service.Touch()
	query := `
		INSERT INTO services (
			id, provider_id, clinic_id, name, price_cents, duration_minutes, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		service.ID,
		service.ProviderID,
		service.ClinicID,
		service.Name,
		service.PriceCents,
		service.DurationMinutes,
		service.Active,
		service.CreatedAt,
		service.UpdatedAt,
	)
	return classify("failed to create service", err)
}

func (r *serviceRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	query := `
		SELECT id, provider_id, clinic_id, name, price_cents, duration_minutes, active,
			created_at, updated_at
		FROM services
		WHERE provider_id = $1 AND (NOT $2::boolean OR active)
		ORDER BY name
	`
	var services []*model.Service
	if err := sqlx.SelectContext(ctx, r.db, &services, query, providerID, activeOnly); err != nil {
		return nil, classify("failed to list services", err)
	}
	return services, nil
}

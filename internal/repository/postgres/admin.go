package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type adminRepository struct {
	BaseRepository
}

func NewAdminRepository(base BaseRepository) repository.AdminRepository {
	return &adminRepository{base}
}

func (r *adminRepository) Counts(ctx context.Context) (*model.SummaryCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM providers) AS providers,
			(SELECT COUNT(*) FROM providers p
				JOIN profiles pr ON pr.id = p.profile_id
				WHERE pr.role = $1) AS pending_providers,
			(SELECT COUNT(*) FROM clinics) AS clinics,
			(SELECT COUNT(*) FROM services WHERE active) AS active_services,
			(SELECT COUNT(*) FROM bookings) AS bookings
	`
	var counts model.SummaryCounts
	if err := sqlx.GetContext(ctx, r.db, &counts, query, model.RoleUser); err != nil {
		return nil, classify("failed to count summary", err)
	}
	return &counts, nil
}

func (r *adminRepository) ClinicRollups(ctx context.Context) ([]*model.ClinicRollup, error) {
	query := `
		SELECT c.id::text AS clinic_id, c.name,
			(SELECT COUNT(*) FROM providers p WHERE p.clinic_id = c.id) AS providers,
			(SELECT COUNT(*) FROM services s WHERE s.clinic_id = c.id) AS services,
			(SELECT COUNT(*) FROM bookings b
				JOIN providers p ON p.id = b.provider_id
				WHERE p.clinic_id = c.id) AS bookings
		FROM clinics c
		ORDER BY c.name
	`
	var rollups []*model.ClinicRollup
	if err := sqlx.SelectContext(ctx, r.db, &rollups, query); err != nil {
		return nil, classify("failed to load clinic rollups", err)
	}
	return rollups, nil
}

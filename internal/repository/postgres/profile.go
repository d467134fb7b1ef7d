package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

const profileColumns = `id, auth_id, name, email, phone, role, created_at, updated_at`

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &profile, query, id); err != nil {
		return nil, classify("failed to get profile", err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByAuthID(ctx context.Context, authID string) (*model.Profile, error) {
	var profile model.Profile
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE auth_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &profile, query, authID); err != nil {
		return nil, classify("failed to get profile by auth id", err)
	}
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	profile.Touch()
	query := `
		INSERT INTO profiles (id, auth_id, name, email, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.AuthID,
		profile.Name,
		profile.Email,
		profile.Phone,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	return classify("failed to create profile", err)
}

func (r *profileRepository) CreateIfAbsent(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	profile.Touch()
	query := `
		INSERT INTO profiles (id, auth_id, name, email, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (auth_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.AuthID,
		profile.Name,
		profile.Email,
		profile.Phone,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return nil, classify("failed to create profile", err)
	}
	// A concurrent insert may have won; the stored row is authoritative.
	return r.GetByAuthID(ctx, profile.AuthID)
}

func (r *profileRepository) Update(ctx context.Context, profile *model.Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE profiles
		SET name = $1, email = $2, phone = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		profile.Name,
		profile.Email,
		profile.Phone,
		profile.UpdatedAt,
		profile.ID,
	)
	if err != nil {
		return classify("failed to update profile", err)
	}
	return expectOne("failed to update profile", result)
}

func (r *profileRepository) UpdateRole(ctx context.Context, id uuid.UUID, from, to model.Role) error {
	query := `UPDATE profiles SET role = $1, updated_at = $2 WHERE id = $3 AND role = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return classify("failed to update profile role", err)
	}
	return expectOneOrStale(ctx, r.db, "failed to update profile role", result, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`, id)
}

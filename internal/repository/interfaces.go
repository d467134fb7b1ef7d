package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
)

// Sentinel errors every implementation translates its driver errors into.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	ErrStale       = errors.New("record changed concurrently")
	ErrUnavailable = errors.New("storage unavailable")
)

// All repository interfaces in one file
type (
	ProfileRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
		GetByAuthID(ctx context.Context, authID string) (*model.Profile, error)
		Create(ctx context.Context, profile *model.Profile) error
		// CreateIfAbsent inserts profile unless its auth id exists and returns the stored row.
		CreateIfAbsent(ctx context.Context, profile *model.Profile) (*model.Profile, error)
		Update(ctx context.Context, profile *model.Profile) error
		UpdateRole(ctx context.Context, id uuid.UUID, from, to model.Role) error
	}

	ClinicRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		GetBySlug(ctx context.Context, slug string) (*model.Clinic, error)
		Create(ctx context.Context, clinic *model.Clinic) error
		// CreateIfAbsent inserts clinic unless its slug exists and returns the stored row.
		CreateIfAbsent(ctx context.Context, clinic *model.Clinic) (*model.Clinic, error)
	}

	ProviderRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
		Create(ctx context.Context, provider *model.Provider) error
		List(ctx context.Context, filters *model.ProviderFilters) ([]*model.ProviderListing, error)
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		ListByProvider(ctx context.Context, providerID uuid.UUID, activeOnly bool) ([]*model.Service, error)
	}

	BookingRepository interface {
		// HasConfirmed reports whether a confirmed booking occupies exactly this slot.
		HasConfirmed(ctx context.Context, slot model.Slot) (bool, error)
		// Create returns ErrDuplicate when a pending or confirmed booking holds the slot.
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error)
		// UpdateStatus only applies when the stored status still equals from.
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus) error
		Recent(ctx context.Context, limit int) ([]*model.BookingActivity, error)
	}

	IntegrationRepository interface {
		Create(ctx context.Context, integration *model.Integration) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending leases up to limit pending events for lease. Leased events
		// are skipped by other claimers until the lease expires or MarkFailed
		// releases it.
		ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, message string, maxRetries int) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AdminRepository interface {
		Counts(ctx context.Context) (*model.SummaryCounts, error)
		ClinicRollups(ctx context.Context) ([]*model.ClinicRollup, error)
	}

	// Repositories bundles repositories that share one connection or transaction.
	Repositories struct {
		Profiles     ProfileRepository
		Clinics      ClinicRepository
		Providers    ProviderRepository
		Services     ServiceRepository
		Bookings     BookingRepository
		Integrations IntegrationRepository
		Outbox       OutboxRepository
	}

	// Transactor runs fn against repositories bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transactor interface {
		WithTx(ctx context.Context, fn func(repos *Repositories) error) error
	}
)

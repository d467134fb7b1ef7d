package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/care-booking/config"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/service"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

const (
	summaryKey      = "summary"
	defaultRecent   = 10
	providerListCap = 200
)

type Service struct {
	admin     repository.AdminRepository
	bookings  repository.BookingRepository
	providers repository.ProviderRepository
	tx        repository.Transactor
	cache     *cache.Cache
	recent    int
}

// NewService caches the summary for cfg.SummaryCacheTTL; a zero TTL disables caching.
func NewService(
	admin repository.AdminRepository,
	bookings repository.BookingRepository,
	providers repository.ProviderRepository,
	tx repository.Transactor,
	cfg config.AdminConfig,
) *Service {
	s := &Service{
		admin:     admin,
		bookings:  bookings,
		providers: providers,
		tx:        tx,
		recent:    cfg.RecentActivity,
	}
	if s.recent <= 0 {
		s.recent = defaultRecent
	}
	if cfg.SummaryCacheTTL > 0 {
		s.cache = cache.New(cfg.SummaryCacheTTL, 2*cfg.SummaryCacheTTL)
	}
	return s
}

// Summary loads counts, the anonymized activity feed and clinic rollups.
// Any failing part fails the whole summary.
func (s *Service) Summary(ctx context.Context) (*model.AdminSummary, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(summaryKey); ok {
			return cached.(*model.AdminSummary), nil
		}
	}

	summary, err := s.loadSummary(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to load admin summary", err)
	}

	if s.cache != nil {
		s.cache.SetDefault(summaryKey, summary)
	}
	return summary, nil
}

func (s *Service) loadSummary(ctx context.Context) (*model.AdminSummary, error) {
	counts, err := s.admin.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	recent, err := s.bookings.Recent(ctx, s.recent)
	if err != nil {
		return nil, fmt.Errorf("recent bookings: %w", err)
	}
	rollups, err := s.admin.ClinicRollups(ctx)
	if err != nil {
		return nil, fmt.Errorf("clinic rollups: %w", err)
	}

	summary := &model.AdminSummary{
		Counts:         *counts,
		RecentActivity: make([]model.ActivityItem, 0, len(recent)),
		Clinics:        make([]model.ClinicRollup, 0, len(rollups)),
	}
	for _, b := range recent {
		summary.RecentActivity = append(summary.RecentActivity, model.ActivityItem{
			BookingID:    b.ID.String(),
			Patient:      Anonymize(b.PatientName),
			ProviderName: b.ProviderName,
			ServiceType:  b.ServiceType,
			Date:         b.Date,
			Time:         b.Time,
			Status:       b.Status,
		})
	}
	for _, r := range rollups {
		summary.Clinics = append(summary.Clinics, *r)
	}
	return summary, nil
}

// Anonymize keeps only the first letter of a patient name.
//
//	Anonymize("kai makoa") == "K***"
func Anonymize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "***"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r)) + "***"
}

func (s *Service) ListProviders(ctx context.Context, pendingOnly bool) ([]*model.ProviderListing, error) {
	providers, err := s.providers.List(ctx, &model.ProviderFilters{PendingOnly: pendingOnly, Limit: providerListCap})
	if err != nil {
		return nil, service.ReadError("provider", "failed to list providers", err)
	}
	return providers, nil
}

// ApproveProvider promotes the provider's profile from USER to PROVIDER.
func (s *Service) ApproveProvider(ctx context.Context, providerID uuid.UUID) (*model.Provider, error) {
	var provider *model.Provider
	err := s.tx.WithTx(ctx, func(repos *repository.Repositories) error {
		var err error
		if provider, err = repos.Providers.Get(ctx, providerID); err != nil {
			return service.ReadError("provider", "failed to get provider", err)
		}
		if err := repos.Profiles.UpdateRole(ctx, provider.ProfileID, model.RoleUser, model.RoleProvider); err != nil {
			if errors.Is(err, repository.ErrStale) {
				return apperrors.Conflict("provider is already approved", err)
			}
			return fmt.Errorf("failed to promote profile: %w", err)
		}
		event, err := model.NewOutboxEvent(model.EventProviderApproved, model.ProviderApprovedPayload{
			ProviderID: provider.ID,
			ProfileID:  provider.ProfileID,
			ClinicID:   provider.ClinicID,
		})
		if err != nil {
			return fmt.Errorf("failed to build approval event: %w", err)
		}
		return repos.Outbox.Create(ctx, event)
	})
	if err != nil {
		return nil, service.WriteError("failed to approve provider", err)
	}

	s.invalidate()
	return provider, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Delete(summaryKey)
	}
}


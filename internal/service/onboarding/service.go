package onboarding

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/service"
	"github.com/jwalitptl/care-booking/pkg/auth"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/metrics"
	"github.com/jwalitptl/care-booking/pkg/security"
	"github.com/jwalitptl/care-booking/pkg/slug"
)

// Result labels of the onboarding submissions counter.
const (
	resultCreated     = "created"
	resultInvalid     = "validation_failed"
	resultUnavailable = "unavailable"
	resultFailed      = "failed"
)

type Service struct {
	tx      repository.Transactor
	sealer  security.Encryptor
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(tx repository.Transactor, sealer security.Encryptor, logger *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		tx:      tx,
		sealer:  sealer,
		logger:  logger,
		metrics: m,
	}
}

// Submit writes the profile, clinic, provider, optional integration and the
// PROVIDER_ONBOARDED event in one transaction. A nil caller submits
// anonymously. Resubmitting creates another provider.
func (s *Service) Submit(ctx context.Context, req *model.OnboardingRequest, caller *auth.Caller) (*model.OnboardingResult, error) {
	if invalid := req.InvalidFields(); len(invalid) > 0 {
		s.metrics.OnboardingResults.WithLabelValues(resultInvalid).Inc()
		return nil, apperrors.ValidationFailed(invalid...)
	}

	var result *model.OnboardingResult
	err := s.tx.WithTx(ctx, func(repos *repository.Repositories) error {
		var err error
		result, err = s.write(ctx, repos, req, caller)
		return err
	})
	if err != nil {
		err = service.WriteError("failed to submit onboarding", err)
		if apperrors.Is(err, apperrors.KindPersistenceUnavailable) {
			s.metrics.OnboardingResults.WithLabelValues(resultUnavailable).Inc()
		} else {
			s.metrics.OnboardingResults.WithLabelValues(resultFailed).Inc()
		}
		s.metrics.PersistenceErrors.WithLabelValues("submit_onboarding", string(apperrors.KindOf(err))).Inc()
		return nil, err
	}

	s.metrics.OnboardingResults.WithLabelValues(resultCreated).Inc()
	s.logger.Info("provider onboarded",
		"provider_id", result.Provider.ID.String(),
		"clinic_id", result.Clinic.ID.String(),
		"clinic_reused", result.ClinicReused)
	return result, nil
}

func (s *Service) write(ctx context.Context, repos *repository.Repositories, req *model.OnboardingRequest, caller *auth.Caller) (*model.OnboardingResult, error) {
	profile, err := s.upsertProfile(ctx, repos.Profiles, req, caller)
	if err != nil {
		return nil, err
	}

	clinic, reused, err := s.findOrCreateClinic(ctx, repos.Clinics, req)
	if err != nil {
		return nil, err
	}

	provider := &model.Provider{
		ProfileID:   profile.ID,
		ClinicID:    clinic.ID,
		Bio:         strings.TrimSpace(req.Bio),
		Specialties: req.CleanSpecialties(),
		Slug:        slug.Make(req.Name),
	}
	if err := repos.Providers.Create(ctx, provider); err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	var integration *model.Integration
	if req.HasIntegration() {
		if integration, err = s.createIntegration(ctx, repos.Integrations, provider, req); err != nil {
			return nil, err
		}
	}

	payload := model.ProviderOnboardedPayload{
		ProviderID:     provider.ID,
		ProfileID:      profile.ID,
		ClinicID:       clinic.ID,
		ApplicantName:  profile.Name,
		ApplicantEmail: profile.Email,
		ClinicName:     clinic.Name,
	}
	if integration != nil {
		payload.IntegrationID = &integration.ID
		payload.CompanyID = integration.CompanyID
	}
	event, err := model.NewOutboxEvent(model.EventProviderOnboarded, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build onboarding event: %w", err)
	}
	if err := repos.Outbox.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to enqueue onboarding event: %w", err)
	}

	return &model.OnboardingResult{
		Profile:      profile,
		Clinic:       clinic,
		Provider:     provider,
		Integration:  integration,
		ClinicReused: reused,
	}, nil
}

func (s *Service) upsertProfile(ctx context.Context, profiles repository.ProfileRepository, req *model.OnboardingRequest, caller *auth.Caller) (*model.Profile, error) {
	fresh := &model.Profile{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
		Role:  model.RoleUser,
	}

	if caller == nil || strings.TrimSpace(caller.ID) == "" {
		id, err := anonymousAuthID()
		if err != nil {
			return nil, apperrors.Internal("failed to generate applicant id", err)
		}
		fresh.AuthID = id
		if err := profiles.Create(ctx, fresh); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		return fresh, nil
	}

	if fresh.Email == "" {
		fresh.Email = strings.TrimSpace(caller.Email)
	}
	fresh.AuthID = strings.TrimSpace(caller.ID)

	existing, err := profiles.GetByAuthID(ctx, fresh.AuthID)
	if errors.Is(err, repository.ErrNotFound) {
		// A concurrent identity resolution may insert the row first.
		created, err := profiles.CreateIfAbsent(ctx, fresh)
		if err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		if created.ID == fresh.ID {
			return created, nil
		}
		existing = created
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	existing.Name, existing.Phone = fresh.Name, fresh.Phone
	if fresh.Email != "" {
		existing.Email = fresh.Email
	}
	if err := profiles.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return existing, nil
}

// findOrCreateClinic reuses the clinic with the same slug. Different names
// that slug alike land on the same clinic.
func (s *Service) findOrCreateClinic(ctx context.Context, clinics repository.ClinicRepository, req *model.OnboardingRequest) (*model.Clinic, bool, error) {
	name := strings.TrimSpace(req.ClinicName)
	clinicSlug := slug.Make(name)

	existing, err := clinics.GetBySlug(ctx, clinicSlug)
	if err == nil {
		s.warnNameMismatch(existing, name)
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up clinic: %w", err)
	}

	clinic := &model.Clinic{
		Slug:    clinicSlug,
		Name:    name,
		Address: strings.TrimSpace(req.ClinicAddress),
		Island:  strings.TrimSpace(req.Island),
		Phone:   strings.TrimSpace(req.ClinicPhone),
	}
	stored, err := clinics.CreateIfAbsent(ctx, clinic)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create clinic: %w", err)
	}
	// Another submission created the slug between the lookup and the insert.
	if stored.ID != clinic.ID {
		s.warnNameMismatch(stored, name)
		return stored, true, nil
	}
	return stored, false, nil
}

func (s *Service) warnNameMismatch(stored *model.Clinic, submitted string) {
	if stored.Name != submitted {
		s.logger.Warn("clinic name differs from stored clinic with same slug",
			"slug", stored.Slug,
			"stored_name", stored.Name,
			"submitted_name", submitted)
	}
}

func (s *Service) createIntegration(ctx context.Context, integrations repository.IntegrationRepository, provider *model.Provider, req *model.OnboardingRequest) (*model.Integration, error) {
	sealed, err := s.sealer.Encrypt([]byte(strings.TrimSpace(req.APIKey)))
	if err != nil {
		return nil, apperrors.Internal("failed to seal integration key", err)
	}

	kind := strings.TrimSpace(req.IntegrationType)
	if kind == "" {
		kind = model.IntegrationTypeSimplyBook
	}
	integration := &model.Integration{
		ProviderID:   provider.ID,
		Type:         kind,
		CompanyID:    strings.TrimSpace(req.CompanyID),
		APIUser:      strings.TrimSpace(req.APIUser),
		APIKeySealed: sealed,
		Active:       false,
	}
	if err := integrations.Create(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}
	return integration, nil
}

func anonymousAuthID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("anon_%d_%s", time.Now().UnixNano(), hex.EncodeToString(b[:])), nil
}

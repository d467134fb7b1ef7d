// Package catalog manages the services a provider offers.
package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/service"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Service struct {
	providers repository.ProviderRepository
	services  repository.ServiceRepository
}

func NewService(providers repository.ProviderRepository, services repository.ServiceRepository) *Service {
	return &Service{providers: providers, services: services}
}

func (s *Service) ListActive(ctx context.Context, providerID uuid.UUID) ([]*model.Service, error) {
	services, err := s.services.ListByProvider(ctx, providerID, true)
	if err != nil {
		return nil, service.ReadError("service", "failed to list services", err)
	}
	return services, nil
}

// Create adds an active service at the provider's clinic.
func (s *Service) Create(ctx context.Context, providerID uuid.UUID, req *model.CreateServiceRequest) (*model.Service, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.ValidationFailed("name")
	}

	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, service.ReadError("provider", "failed to get provider", err)
	}

	svc := &model.Service{
		ProviderID:      provider.ID,
		ClinicID:        provider.ClinicID,
		Name:            name,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
		Active:          true,
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, service.WriteError("failed to create service", err)
	}
	return svc, nil
}

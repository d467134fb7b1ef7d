package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/service"
	"github.com/jwalitptl/care-booking/pkg/auth"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Service struct {
	profiles repository.ProfileRepository
}

func NewService(profiles repository.ProfileRepository) *Service {
	return &Service{profiles: profiles}
}

// ResolveOrCreate returns the profile bound to caller, creating a USER
// profile on first sight. Concurrent first calls converge on one row.
func (s *Service) ResolveOrCreate(ctx context.Context, caller auth.Caller) (*model.Profile, error) {
	authID := strings.TrimSpace(caller.ID)
	if authID == "" {
		return nil, apperrors.Unauthorized("")
	}

	profile, err := s.profiles.GetByAuthID(ctx, authID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, service.ReadError("profile", "failed to look up profile", err)
	}

	profile, err = s.profiles.CreateIfAbsent(ctx, &model.Profile{
		AuthID: authID,
		Name:   strings.TrimSpace(caller.Name),
		Email:  strings.TrimSpace(caller.Email),
		Role:   model.RoleUser,
	})
	if err != nil {
		return nil, service.WriteError("failed to create profile", err)
	}
	return profile, nil
}

// Package policy decides whether a caller holds administrative rights.
package policy

import (
	"context"
	"errors"
	"strings"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/pkg/auth"
)

// Evaluator answers the single admin question every admin surface asks.
type Evaluator interface {
	IsAdmin(ctx context.Context, caller auth.Caller) (bool, error)
}

// StaticAllowList grants admin to a configured set of emails.
type StaticAllowList struct {
	emails map[string]struct{}
}

func NewStaticAllowList(emails []string) *StaticAllowList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return &StaticAllowList{emails: set}
}

func (s *StaticAllowList) IsAdmin(_ context.Context, caller auth.Caller) (bool, error) {
	email := normalizeEmail(caller.Email)
	if email == "" {
		return false, nil
	}
	_, ok := s.emails[email]
	return ok, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// RoleEvaluator grants admin to callers whose stored profile has RoleAdmin.
type RoleEvaluator struct {
	profiles repository.ProfileRepository
}

func NewRoleEvaluator(profiles repository.ProfileRepository) *RoleEvaluator {
	return &RoleEvaluator{profiles: profiles}
}

func (r *RoleEvaluator) IsAdmin(ctx context.Context, caller auth.Caller) (bool, error) {
	if caller.ID == "" {
		return false, nil
	}
	profile, err := r.profiles.GetByAuthID(ctx, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return profile.Role == model.RoleAdmin, nil
}

type anyOf []Evaluator

// Any grants admin when at least one evaluator does. Evaluators run in order
// and stop at the first grant; an error is returned only if nothing granted.
func Any(evaluators ...Evaluator) Evaluator {
	return anyOf(evaluators)
}

func (a anyOf) IsAdmin(ctx context.Context, caller auth.Caller) (bool, error) {
	var firstErr error
	for _, e := range a {
		ok, err := e.IsAdmin(ctx, caller)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

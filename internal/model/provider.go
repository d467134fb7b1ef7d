package model

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Provider is a practitioner's application, owned by one profile and one clinic.
// A provider is approved once its profile carries RoleProvider.
type Provider struct {
	Base
	ProfileID   uuid.UUID      `db:"profile_id" json:"profile_id"`
	ClinicID    uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	Bio         string         `db:"bio" json:"bio"`
	Specialties pq.StringArray `db:"specialties" json:"specialties"`
	Slug        string         `db:"slug" json:"slug"`
}

// ProviderListing joins a provider with the state of its profile and clinic.
type ProviderListing struct {
	Provider
	Name       string `db:"name" json:"name"`
	Email      string `db:"email" json:"email"`
	Role       Role   `db:"role" json:"role"`
	ClinicName string `db:"clinic_name" json:"clinic_name"`
}

// Approved reports whether the owning profile has been promoted.
func (p ProviderListing) Approved() bool {
	return p.Role == RoleProvider
}

type ProviderFilters struct {
	PendingOnly bool
	Limit       int
}

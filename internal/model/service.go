package model

import (
	"github.com/google/uuid"
)

// Service is a billable offering of one provider at one clinic.
type Service struct {
	Base
	ProviderID      uuid.UUID `db:"provider_id" json:"provider_id"`
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name            string    `db:"name" json:"name"`
	PriceCents      int64     `db:"price_cents" json:"price_cents"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Active          bool      `db:"active" json:"active"`
}

type CreateServiceRequest struct {
	Name            string `json:"name" binding:"required,max=200"`
	PriceCents      int64  `json:"price_cents" binding:"gte=0"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,gt=0,lte=480"`
}

package model

import (
	"github.com/google/uuid"
)

const IntegrationTypeSimplyBook = "simplybook"

// Integration holds credentials for a third-party scheduling system.
// It stays inactive until the credentials are verified out of band.
type Integration struct {
	Base
	ProviderID   uuid.UUID `db:"provider_id" json:"provider_id"`
	Type         string    `db:"type" json:"type"`
	CompanyID    string    `db:"company_id" json:"company_id"`
	APIUser      string    `db:"api_user" json:"api_user"`
	APIKeySealed []byte    `db:"api_key_sealed" json:"-"`
	Active       bool      `db:"active" json:"active"`
}

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Event types written to the outbox.
const (
	EventProviderOnboarded = "PROVIDER_ONBOARDED"
	EventBookingCreated    = "BOOKING_CREATED"
	EventBookingStatus     = "BOOKING_STATUS_CHANGED"
	EventProviderApproved  = "PROVIDER_APPROVED"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	ClaimedUntil *time.Time      `db:"claimed_until" json:"-"`
}

// NewOutboxEvent marshals payload into a pending event.
func NewOutboxEvent(eventType string, payload interface{}) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   raw,
		Status:    OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ProviderOnboardedPayload is published after an onboarding commit.
type ProviderOnboardedPayload struct {
	ProviderID     uuid.UUID  `json:"provider_id"`
	ProfileID      uuid.UUID  `json:"profile_id"`
	ClinicID       uuid.UUID  `json:"clinic_id"`
	ApplicantName  string     `json:"applicant_name"`
	ApplicantEmail string     `json:"applicant_email,omitempty"`
	ClinicName     string     `json:"clinic_name"`
	IntegrationID  *uuid.UUID `json:"integration_id,omitempty"`
	CompanyID      string     `json:"company_id,omitempty"`
}

// BookingEventPayload is published for booking creation and status changes.
type BookingEventPayload struct {
	BookingID  uuid.UUID     `json:"booking_id"`
	PatientID  uuid.UUID     `json:"patient_id"`
	ProviderID uuid.UUID     `json:"provider_id"`
	Date       string        `json:"date"`
	Time       string        `json:"time"`
	Status     BookingStatus `json:"status"`
}

// ProviderApprovedPayload is published when an admin promotes an applicant.
type ProviderApprovedPayload struct {
	ProviderID uuid.UUID `json:"provider_id"`
	ProfileID  uuid.UUID `json:"profile_id"`
	ClinicID   uuid.UUID `json:"clinic_id"`
}

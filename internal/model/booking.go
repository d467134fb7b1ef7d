package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Wire formats of a slot's date and time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransition reports whether a booking may move from s to next.
// Completed and cancelled are terminal.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Slot identifies a bookable unit of time for one provider.
type Slot struct {
	ProviderID uuid.UUID
	Date       string
	Time       string
}

// Booking reserves a provider slot for a patient.
type Booking struct {
	Base
	PatientID   uuid.UUID     `db:"patient_id" json:"patient_id"`
	ProviderID  uuid.UUID     `db:"provider_id" json:"provider_id"`
	ServiceID   *uuid.UUID    `db:"service_id" json:"service_id,omitempty"`
	ServiceType string        `db:"service_type" json:"service_type"`
	Date        string        `db:"booking_date" json:"date"`
	Time        string        `db:"booking_time" json:"time"`
	Status      BookingStatus `db:"status" json:"status"`
	Notes       string        `db:"notes" json:"notes,omitempty"`
}

func (b *Booking) Slot() Slot {
	return Slot{ProviderID: b.ProviderID, Date: b.Date, Time: b.Time}
}

type CreateBookingRequest struct {
	ProviderID  string  `json:"provider_id"`
	ServiceID   *string `json:"service_id"`
	ServiceType string  `json:"service_type"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Notes       string  `json:"notes" binding:"max=1000"`
}

type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
}

type BookingFilters struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Status     BookingStatus
	Limit      int
}

// BookingActivity is a recent booking joined with names for the admin feed.
type BookingActivity struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	PatientName  string        `db:"patient_name" json:"patient_name"`
	ProviderName string        `db:"provider_name" json:"provider_name"`
	ServiceType  string        `db:"service_type" json:"service_type"`
	Date         string        `db:"booking_date" json:"date"`
	Time         string        `db:"booking_time" json:"time"`
	Status       BookingStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/service"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

const listLimit = 100

type Service struct {
	bookings repository.BookingRepository
	tx       repository.Transactor
	metrics  *metrics.Metrics
}

func NewService(bookings repository.BookingRepository, tx repository.Transactor, m *metrics.Metrics) *Service {
	return &Service{
		bookings: bookings,
		tx:       tx,
		metrics:  m,
	}
}

// ParseSlot validates the three slot fields together and reports every bad one.
func ParseSlot(providerID, date, clock string) (model.Slot, error) {
	var invalid []string
	id, err := uuid.Parse(strings.TrimSpace(providerID))
	if err != nil {
		invalid = append(invalid, "provider_id")
	}
	if !validDate(date) {
		invalid = append(invalid, "date")
	}
	if !validTime(clock) {
		invalid = append(invalid, "time")
	}
	if len(invalid) > 0 {
		return model.Slot{}, apperrors.ValidationFailed(invalid...)
	}
	return model.Slot{ProviderID: id, Date: date, Time: clock}, nil
}

func validDate(s string) bool {
	if len(s) != len(model.DateLayout) {
		return false
	}
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}

func validTime(s string) bool {
	if len(s) != len(model.TimeLayout) {
		return false
	}
	_, err := time.Parse(model.TimeLayout, s)
	return err == nil
}

// IsSlotAvailable is false only when a confirmed booking holds the exact slot.
// Pending bookings do not block availability.
func (s *Service) IsSlotAvailable(ctx context.Context, slot model.Slot) (bool, error) {
	taken, err := s.bookings.HasConfirmed(ctx, slot)
	if err != nil {
		return false, s.fail("check_availability", service.ReadError("booking", "failed to check availability", err))
	}
	return !taken, nil
}

func (s *Service) CreateBooking(ctx context.Context, patientID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, error) {
	booking, err := newBooking(patientID, req)
	if err != nil {
		return nil, err
	}

	available, err := s.IsSlotAvailable(ctx, booking.Slot())
	if err != nil {
		return nil, err
	}
	if !available {
		s.metrics.BookingConflicts.Inc()
		return nil, apperrors.Conflict("slot is already booked", nil)
	}

	err = s.tx.WithTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Bookings.Create(ctx, booking); err != nil {
			return err
		}
		return enqueue(ctx, repos, model.EventBookingCreated, booking)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		s.metrics.BookingConflicts.Inc()
		return nil, apperrors.Conflict("slot is already booked", err)
	}
	if err != nil {
		return nil, s.fail("create_booking", service.WriteError("failed to create booking", err))
	}

	s.metrics.BookingsCreated.Inc()
	return booking, nil
}

func newBooking(patientID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, error) {
	var invalid []string
	providerID, err := uuid.Parse(strings.TrimSpace(req.ProviderID))
	if err != nil {
		invalid = append(invalid, "provider_id")
	}
	var serviceID *uuid.UUID
	if req.ServiceID != nil && strings.TrimSpace(*req.ServiceID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.ServiceID))
		if err != nil {
			invalid = append(invalid, "service_id")
		} else {
			serviceID = &id
		}
	}
	serviceType := strings.TrimSpace(req.ServiceType)
	if serviceType == "" {
		invalid = append(invalid, "service_type")
	}
	if !validDate(req.Date) {
		invalid = append(invalid, "date")
	}
	if !validTime(req.Time) {
		invalid = append(invalid, "time")
	}
	if len(invalid) > 0 {
		return nil, apperrors.ValidationFailed(invalid...)
	}

	return &model.Booking{
		PatientID:   patientID,
		ProviderID:  providerID,
		ServiceID:   serviceID,
		ServiceType: serviceType,
		Date:        req.Date,
		Time:        req.Time,
		Status:      model.BookingStatusPending,
		Notes:       strings.TrimSpace(req.Notes),
	}, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Booking, error) {
	bookings, err := s.bookings.List(ctx, &model.BookingFilters{PatientID: patientID, Limit: listLimit})
	if err != nil {
		return nil, s.fail("list_bookings", service.ReadError("booking", "failed to list bookings", err))
	}
	return bookings, nil
}

// Cancel lets a patient cancel one of their own bookings.
func (s *Service) Cancel(ctx context.Context, patientID, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PatientID != patientID {
		return nil, apperrors.Forbidden("booking belongs to another patient")
	}
	return s.transition(ctx, booking, model.BookingStatusCancelled)
}

// UpdateStatus moves a booking along the status machine on behalf of an admin.
func (s *Service) UpdateStatus(ctx context.Context, bookingID uuid.UUID, to model.BookingStatus) (*model.Booking, error) {
	if !to.Valid() {
		return nil, apperrors.ValidationFailed("status")
	}
	booking, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, booking, to)
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, s.fail("get_booking", service.ReadError("booking", "failed to get booking", err))
	}
	return booking, nil
}

func (s *Service) transition(ctx context.Context, booking *model.Booking, to model.BookingStatus) (*model.Booking, error) {
	from := booking.Status
	if !from.CanTransition(to) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot move booking from %s to %s", from, to), nil)
	}

	err := s.tx.WithTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Bookings.UpdateStatus(ctx, booking.ID, from, to); err != nil {
			return err
		}
		booking.Status = to
		return enqueue(ctx, repos, model.EventBookingStatus, booking)
	})
	if err != nil {
		booking.Status = from
		if errors.Is(err, repository.ErrStale) {
			return nil, apperrors.Conflict("booking was changed concurrently", err)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking", err)
		}
		return nil, s.fail("update_booking_status", service.WriteError("failed to update booking", err))
	}

	s.metrics.BookingTransition.WithLabelValues(string(from), string(to)).Inc()
	return booking, nil
}

func enqueue(ctx context.Context, repos *repository.Repositories, eventType string, b *model.Booking) error {
	event, err := model.NewOutboxEvent(eventType, model.BookingEventPayload{
		BookingID:  b.ID,
		PatientID:  b.PatientID,
		ProviderID: b.ProviderID,
		Date:       b.Date,
		Time:       b.Time,
		Status:     b.Status,
	})
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	return repos.Outbox.Create(ctx, event)
}

func (s *Service) fail(op string, err error) error {
	s.metrics.PersistenceErrors.WithLabelValues(op, string(apperrors.KindOf(err))).Inc()
	return err
}

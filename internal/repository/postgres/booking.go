package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type bookingRepository struct {
	BaseRepository
}

func NewBookingRepository(base BaseRepository) repository.BookingRepository {
	return &bookingRepository{base}
}

const bookingColumns = `id, patient_id, provider_id, service_id, service_type, booking_date,
	booking_time, status, notes, created_at, updated_at`

func (r *bookingRepository) HasConfirmed(ctx context.Context, slot model.Slot) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE provider_id = $1 AND booking_date = $2 AND booking_time = $3 AND status = $4
		)
	`
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists, query,
		slot.ProviderID, slot.Date, slot.Time, model.BookingStatusConfirmed)
	if err != nil {
		return false, classify("failed to check slot", err)
	}
	return exists, nil
}

// Create relies on bookings_active_slot_key, a partial unique index over
// (provider_id, booking_date, booking_time) for pending and confirmed rows.
func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	booking.Touch()
	query := `
		INSERT INTO bookings (
			id, patient_id, provider_id, service_id, service_type, booking_date,
			booking_time, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.PatientID,
		booking.ProviderID,
		booking.ServiceID,
		booking.ServiceType,
		booking.Date,
		booking.Time,
		booking.Status,
		booking.Notes,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	return classify("failed to create booking", err)
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &booking, query, id); err != nil {
		return nil, classify("failed to get booking", err)
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	var where []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	limit := 100
	if filters != nil {
		if filters.PatientID != uuid.Nil {
			add("patient_id = $%d", filters.PatientID)
		}
		if filters.ProviderID != uuid.Nil {
			add("provider_id = $%d", filters.ProviderID)
		}
		if filters.Status != "" {
			add("status = $%d", filters.Status)
		}
		if filters.Limit > 0 {
			limit = filters.Limit
		}
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY booking_date DESC, booking_time DESC LIMIT $%d", len(args))

	var bookings []*model.Booking
	if err := sqlx.SelectContext(ctx, r.db, &bookings, query, args...); err != nil {
		return nil, classify("failed to list bookings", err)
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return classify("failed to update booking status", err)
	}
	return expectOneOrStale(ctx, r.db, "failed to update booking status", result,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id)
}

func (r *bookingRepository) Recent(ctx context.Context, limit int) ([]*model.BookingActivity, error) {
	query := `
		SELECT b.id, pa.name AS patient_name, pv.name AS provider_name, b.service_type,
			b.booking_date, b.booking_time, b.status, b.created_at
		FROM bookings b
		JOIN profiles pa ON pa.id = b.patient_id
		JOIN providers p ON p.id = b.provider_id
		JOIN profiles pv ON pv.id = p.profile_id
		ORDER BY b.created_at DESC
		LIMIT $1
	`
	var activity []*model.BookingActivity
	if err := sqlx.SelectContext(ctx, r.db, &activity, query, limit); err != nil {
		return nil, classify("failed to list recent bookings", err)
	}
	return activity, nil
}

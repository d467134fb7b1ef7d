package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestBookingHasConfirmed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(NewBaseRepository(db))
	slot := model.Slot{ProviderID: uuid.New(), Date: "2025-03-10", Time: "09:00"}

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(slot.ProviderID, slot.Date, slot.Time, model.BookingStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.HasConfirmed(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCreate(t *testing.T) {
	booking := func() *model.Booking {
		return &model.Booking{
			PatientID:   uuid.New(),
			ProviderID:  uuid.New(),
			ServiceType: "consultation",
			Date:        "2025-03-10",
			Time:        "09:00",
			Status:      model.BookingStatusPending,
		}
	}

	t.Run("inserts with generated id", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewBookingRepository(NewBaseRepository(db))
		b := booking()

		mock.ExpectExec(`INSERT INTO bookings`).
			WithArgs(sqlmock.AnyArg(), b.PatientID, b.ProviderID, nil, "consultation",
				"2025-03-10", "09:00", model.BookingStatusPending, "",
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(context.Background(), b))
		assert.NotEqual(t, uuid.Nil, b.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a duplicate", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewBookingRepository(NewBaseRepository(db))

		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_active_slot_key"})

		err := repo.Create(context.Background(), booking())
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	t.Run("connection failure is unavailable", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewBookingRepository(NewBaseRepository(db))

		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{Code: "08006"})

		err := repo.Create(context.Background(), booking())
		assert.ErrorIs(t, err, repository.ErrUnavailable)
	})
}

func TestBookingUpdateStatus(t *testing.T) {
	id := uuid.New()

	t.Run("applies when status matches", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewBookingRepository(NewBaseRepository(db))

		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(model.BookingStatusConfirmed, sqlmock.AnyArg(), id, model.BookingStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), id,
			model.BookingStatusPending, model.BookingStatusConfirmed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale when status moved on", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewBookingRepository(NewBaseRepository(db))

		mock.ExpectExec(`UPDATE bookings SET status`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.UpdateStatus(context.Background(), id,
			model.BookingStatusPending, model.BookingStatusConfirmed)
		assert.ErrorIs(t, err, repository.ErrStale)
	})

	t.Run("not found when missing", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewBookingRepository(NewBaseRepository(db))

		mock.ExpectExec(`UPDATE bookings SET status`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := repo.UpdateStatus(context.Background(), id,
			model.BookingStatusPending, model.BookingStatusConfirmed)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestBookingListFiltersByPatient(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(NewBaseRepository(db))
	patientID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "provider_id", "service_id", "service_type", "booking_date",
		"booking_time", "status", "notes", "created_at", "updated_at",
	}).AddRow(uuid.NewString(), patientID.String(), uuid.NewString(), nil, "consultation", "2025-03-10",
		"09:00", "pending", "", fixedTime, fixedTime)

	mock.ExpectQuery(`FROM bookings WHERE patient_id = \$1 ORDER BY .* LIMIT \$2`).
		WithArgs(patientID, 20).
		WillReturnRows(rows)

	bookings, err := repo.List(context.Background(), &model.BookingFilters{PatientID: patientID, Limit: 20})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, patientID, bookings[0].PatientID)
	assert.Nil(t, bookings[0].ServiceID)
	assert.Equal(t, model.BookingStatusPending, bookings[0].Status)
}

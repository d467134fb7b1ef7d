package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/config"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type seeded struct {
	clinic   *model.Clinic
	provider *model.Provider
	patient  *model.Profile
}

func seed(t *testing.T, store *memory.Store) seeded {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()

	doctor := &model.Profile{AuthID: "auth0|doc", Name: "Dr. Nalu", Role: model.RoleUser}
	patient := &model.Profile{AuthID: "auth0|pat", Name: "kai makoa", Role: model.RoleUser}
	require.NoError(t, repos.Profiles.Create(ctx, doctor))
	require.NoError(t, repos.Profiles.Create(ctx, patient))

	clinic := &model.Clinic{Slug: "hilo-health", Name: "Hilo Health"}
	require.NoError(t, repos.Clinics.Create(ctx, clinic))

	provider := &model.Provider{ProfileID: doctor.ID, ClinicID: clinic.ID, Slug: "dr-nalu"}
	require.NoError(t, repos.Providers.Create(ctx, provider))

	require.NoError(t, repos.Services.Create(ctx, &model.Service{ProviderID: provider.ID, ClinicID: clinic.ID, Name: "Checkup", Active: true}))
	require.NoError(t, repos.Services.Create(ctx, &model.Service{ProviderID: provider.ID, ClinicID: clinic.ID, Name: "Retired", Active: false}))

	for i, clock := range []string{"09:00", "10:00", "11:00"} {
		b := &model.Booking{
			PatientID:   patient.ID,
			ProviderID:  provider.ID,
			ServiceType: "Checkup",
			Date:        "2025-03-14",
			Time:        clock,
			Status:      model.BookingStatusPending,
		}
		b.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repos.Bookings.Create(ctx, b))
	}
	return seeded{clinic: clinic, provider: provider, patient: patient}
}

func newService(store *memory.Store, cfg config.AdminConfig) *Service {
	repos := store.Repositories()
	return NewService(store.Admin(), repos.Bookings, repos.Providers, store, cfg)
}

func TestAnonymize(t *testing.T) {
	assert.Equal(t, "K***", Anonymize("kai makoa"))
	assert.Equal(t, "Ō***", Anonymize(" ōla"))
	assert.Equal(t, "***", Anonymize(""))
}

func TestSummary(t *testing.T) {
	store := memory.New()
	s := seed(t, store)
	svc := newService(store, config.AdminConfig{RecentActivity: 2})

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.SummaryCounts{
		Providers:        1,
		PendingProviders: 1,
		Clinics:          1,
		ActiveServices:   1,
		Bookings:         3,
	}, summary.Counts)

	require.Len(t, summary.RecentActivity, 2)
	assert.Equal(t, "11:00", summary.RecentActivity[0].Time)
	for _, item := range summary.RecentActivity {
		assert.Equal(t, "K***", item.Patient)
		assert.Equal(t, "Dr. Nalu", item.ProviderName)
	}

	require.Len(t, summary.Clinics, 1)
	assert.Equal(t, model.ClinicRollup{
		ClinicID:  s.clinic.ID.String(),
		Name:      "Hilo Health",
		Providers: 1,
		Services:  2,
		Bookings:  3,
	}, summary.Clinics[0])
}

func TestSummaryFailsWhole(t *testing.T) {
	for _, op := range []string{"admin.Counts", "bookings.Recent", "admin.ClinicRollups"} {
		t.Run(op, func(t *testing.T) {
			store := memory.New()
			seed(t, store)
			store.Fail(op, errors.New("timeout"))

			summary, err := newService(store, config.AdminConfig{}).Summary(context.Background())
			assert.Nil(t, summary)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindInternal, appErr.Kind)
			assert.Equal(t, "failed to load admin summary", appErr.Message)
		})
	}
}

func TestSummaryCache(t *testing.T) {
	store := memory.New()
	s := seed(t, store)
	svc := newService(store, config.AdminConfig{SummaryCacheTTL: time.Minute})
	ctx := context.Background()

	first, err := svc.Summary(ctx)
	require.NoError(t, err)

	store.Fail("admin.Counts", errors.New("timeout"))
	cached, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Same(t, first, cached)
	store.Fail("admin.Counts", nil)

	_, err = svc.ApproveProvider(ctx, s.provider.ID)
	require.NoError(t, err)

	fresh, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fresh.Counts.PendingProviders)
}

func TestListProviders(t *testing.T) {
	store := memory.New()
	s := seed(t, store)
	svc := newService(store, config.AdminConfig{})
	ctx := context.Background()

	pending, err := svc.ListProviders(ctx, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Hilo Health", pending[0].ClinicName)
	assert.False(t, pending[0].Approved())

	_, err = svc.ApproveProvider(ctx, s.provider.ID)
	require.NoError(t, err)

	pending, err = svc.ListProviders(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := svc.ListProviders(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Approved())
}

func TestApproveProvider(t *testing.T) {
	store := memory.New()
	s := seed(t, store)
	svc := newService(store, config.AdminConfig{})
	ctx := context.Background()

	_, err := svc.ApproveProvider(ctx, s.provider.ID)
	require.NoError(t, err)
	assert.Len(t, store.Events(model.EventProviderApproved), 1)

	_, err = svc.ApproveProvider(ctx, s.provider.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	_, err = svc.ApproveProvider(ctx, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.Len(t, store.Events(model.EventProviderApproved), 1)
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

var errAbort = errors.New("abort")

func TestRollbackKeepsWritesMadeOutsideTransaction(t *testing.T) {
	store := New()
	ctx := context.Background()

	err := store.WithTx(ctx, func(repos *repository.Repositories) error {
		require.NoError(t, repos.Clinics.Create(ctx, &model.Clinic{Slug: "hilo-health", Name: "Hilo Health"}))

		done := make(chan error)
		go func() {
			_, err := store.Repositories().Profiles.CreateIfAbsent(ctx, &model.Profile{AuthID: "auth0|kai", Role: model.RoleUser})
			done <- err
		}()
		require.NoError(t, <-done)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	counts := store.Counts()
	assert.Equal(t, 1, counts["profiles"])
	assert.Zero(t, counts["clinics"])
}

func TestRollbackRestoresUpdatedRows(t *testing.T) {
	store := New()
	ctx := context.Background()
	profiles := store.Repositories().Profiles
	profile := &model.Profile{AuthID: "auth0|nalu", Role: model.RoleUser}
	require.NoError(t, profiles.Create(ctx, profile))

	err := store.WithTx(ctx, func(repos *repository.Repositories) error {
		require.NoError(t, repos.Profiles.UpdateRole(ctx, profile.ID, model.RoleUser, model.RoleProvider))
		require.NoError(t, repos.Profiles.UpdateRole(ctx, profile.ID, model.RoleProvider, model.RoleAdmin))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	stored, err := profiles.Get(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, stored.Role)
}

func TestRollbackOnPanic(t *testing.T) {
	store := New()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(repos *repository.Repositories) error {
			_ = repos.Clinics.Create(ctx, &model.Clinic{Slug: "kona", Name: "Kona"})
			panic("boom")
		})
	})
	assert.Zero(t, store.Counts()["clinics"])
}

func TestConcurrentIdentityWritesSurviveFailedTransactions(t *testing.T) {
	store := New()
	ctx := context.Background()
	const n = 25

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := store.Repositories().Profiles.CreateIfAbsent(ctx, &model.Profile{
				AuthID: fmt.Sprintf("auth0|%d", i),
				Role:   model.RoleUser,
			})
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			err := store.WithTx(ctx, func(repos *repository.Repositories) error {
				slug := fmt.Sprintf("clinic-%d", i)
				if err := repos.Clinics.Create(ctx, &model.Clinic{Slug: slug, Name: slug}); err != nil {
					return err
				}
				return errAbort
			})
			assert.ErrorIs(t, err, errAbort)
		}(i)
	}
	wg.Wait()

	counts := store.Counts()
	assert.Equal(t, n, counts["profiles"])
	assert.Zero(t, counts["clinics"])
}

func TestClinicCreateIfAbsentReturnsExisting(t *testing.T) {
	store := New()
	ctx := context.Background()
	clinics := store.Repositories().Clinics

	first, err := clinics.CreateIfAbsent(ctx, &model.Clinic{Slug: "hilo-health", Name: "Hilo Health"})
	require.NoError(t, err)

	second, err := clinics.CreateIfAbsent(ctx, &model.Clinic{Slug: "hilo-health", Name: "HILO health"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Hilo Health", second.Name)
	assert.Equal(t, 1, store.Counts()["clinics"])
}

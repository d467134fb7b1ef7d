package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	"github.com/jwalitptl/care-booking/pkg/auth"
)

type stubEvaluator struct {
	ok    bool
	err   error
	calls int
}

func (s *stubEvaluator) IsAdmin(context.Context, auth.Caller) (bool, error) {
	s.calls++
	return s.ok, s.err
}

func TestStaticAllowList(t *testing.T) {
	list := NewStaticAllowList([]string{" Admin@Example.com ", ""})
	ctx := context.Background()

	ok, err := list.IsAdmin(ctx, auth.Caller{ID: "a", Email: "admin@example.COM"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = list.IsAdmin(ctx, auth.Caller{ID: "b", Email: "someone@example.com"})
	assert.False(t, ok)

	ok, _ = list.IsAdmin(ctx, auth.Caller{ID: "c"})
	assert.False(t, ok)
}

func TestRoleEvaluator(t *testing.T) {
	store := memory.New()
	profiles := store.Repositories().Profiles
	ctx := context.Background()
	require.NoError(t, profiles.Create(ctx, &model.Profile{AuthID: "auth0|root", Role: model.RoleAdmin}))
	require.NoError(t, profiles.Create(ctx, &model.Profile{AuthID: "auth0|pat", Role: model.RoleUser}))

	eval := NewRoleEvaluator(profiles)

	ok, err := eval.IsAdmin(ctx, auth.Caller{ID: "auth0|root"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eval.IsAdmin(ctx, auth.Caller{ID: "auth0|pat"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = eval.IsAdmin(ctx, auth.Caller{ID: "auth0|nobody"})
	require.NoError(t, err)
	assert.False(t, ok)

	store.Fail("profiles.GetByAuthID", repository.ErrUnavailable)
	_, err = eval.IsAdmin(ctx, auth.Caller{ID: "auth0|root"})
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestAnyStopsAtFirstGrant(t *testing.T) {
	first := &stubEvaluator{ok: true}
	second := &stubEvaluator{ok: true}

	ok, err := Any(first, second).IsAdmin(context.Background(), auth.Caller{ID: "x"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestAnyErrors(t *testing.T) {
	boom := errors.New("store down")

	ok, err := Any(&stubEvaluator{err: boom}, &stubEvaluator{ok: true}).IsAdmin(context.Background(), auth.Caller{ID: "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Any(&stubEvaluator{err: boom}, &stubEvaluator{}).IsAdmin(context.Background(), auth.Caller{ID: "x"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	ok, err = Any().IsAdmin(context.Background(), auth.Caller{ID: "x"})
	assert.NoError(t, err)
	assert.False(t, ok)
}

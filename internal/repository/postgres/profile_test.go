package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

var profileCols = []string{"id", "auth_id", "name", "email", "phone", "role", "created_at", "updated_at"}

func TestProfileGetByAuthIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(NewBaseRepository(db))

	mock.ExpectQuery(`FROM profiles WHERE auth_id = \$1`).
		WithArgs("auth0|missing").
		WillReturnRows(sqlmock.NewRows(profileCols))

	_, err := repo.GetByAuthID(context.Background(), "auth0|missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileCreateIfAbsentReturnsStoredRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(NewBaseRepository(db))
	existing := uuid.New()

	// The insert loses the race and touches nothing.
	mock.ExpectExec(`INSERT INTO profiles .* ON CONFLICT \(auth_id\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM profiles WHERE auth_id = \$1`).
		WithArgs("auth0|abc").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow(existing.String(), "auth0|abc", "Kai", "", "", "USER", fixedTime, fixedTime))

	profile, err := repo.CreateIfAbsent(context.Background(), &model.Profile{AuthID: "auth0|abc", Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, existing, profile.ID)
	assert.Equal(t, "Kai", profile.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileUpdateRoleGuardsCurrentRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(NewBaseRepository(db))
	id := uuid.New()

	mock.ExpectExec(`UPDATE profiles SET role`).
		WithArgs(model.RoleProvider, sqlmock.AnyArg(), id, model.RoleUser).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.UpdateRole(context.Background(), id, model.RoleUser, model.RoleProvider)
	assert.ErrorIs(t, err, repository.ErrStale)
}

func TestProfileUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(NewBaseRepository(db))

	mock.ExpectExec(`UPDATE profiles`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Profile{Base: model.Base{ID: uuid.New()}, Name: "Kai"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/repository"
)

// BaseRepository provides common functionality for all repositories.
// db is either the pool or an open transaction.
type BaseRepository struct {
	db sqlx.ExtContext
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db sqlx.ExtContext) BaseRepository {
	return BaseRepository{db: db}
}

// Store owns the connection pool and hands out repositories bound to it or
// to a transaction.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB returns the database instance
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Repositories returns repositories running on the pool outside any transaction.
func (s *Store) Repositories() *repository.Repositories {
	return newRepositories(s.db)
}

// Admin returns the read-only aggregate repository.
func (s *Store) Admin() repository.AdminRepository {
	return NewAdminRepository(NewBaseRepository(s.db))
}

// Ping reports whether the database answers within ctx.
func (s *Store) Ping(ctx context.Context) error {
	return classify("failed to ping database", s.db.PingContext(ctx))
}

// WithTx executes fn within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("failed to commit transaction", err)
	}
	return nil
}

func newRepositories(db sqlx.ExtContext) *repository.Repositories {
	base := NewBaseRepository(db)
	return &repository.Repositories{
		Profiles:     NewProfileRepository(base),
		Clinics:      NewClinicRepository(base),
		Providers:    NewProviderRepository(base),
		Services:     NewServiceRepository(base),
		Bookings:     NewBookingRepository(base),
		Integrations: NewIntegrationRepository(base),
		Outbox:       NewOutboxRepository(base),
	}
}

var _ repository.Transactor = (*Store)(nil)

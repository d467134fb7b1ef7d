package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	now := time.Now().UTC()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, 0, $5, $6
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		string(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return classify("failed to create outbox event", err)
}

// ClaimPending leases pending events in a single statement. SKIP LOCKED keeps
// concurrent claimers from blocking on each other's rows, and the lease keeps
// them from re-claiming an event while it is being published.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	now := time.Now().UTC()
	query := `
		UPDATE outbox_events
		SET claimed_until = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = $3 AND (claimed_until IS NULL OR claimed_until < $2)
			ORDER BY created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, payload, status, error_message, retry_count,
			created_at, updated_at, processed_at, claimed_until
	`
	var events []*model.OutboxEvent
	if err := sqlx.SelectContext(ctx, r.db, &events, query,
		now.Add(lease), now, model.OutboxStatusPending, limit); err != nil {
		return nil, classify("failed to claim outbox events", err)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = $1, error_message = NULL, processed_at = $2, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, time.Now().UTC(), id)
	if err != nil {
		return classify("failed to mark outbox event processed", err)
	}
	return expectOne("failed to mark outbox event processed", result)
}

// MarkFailed records a delivery failure and releases the lease. The event
// stays pending until it has failed maxRetries times, then moves to FAILED
// for manual inspection.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string, maxRetries int) error {
	query := `
		UPDATE outbox_events
		SET retry_count = retry_count + 1,
			error_message = $1,
			claimed_until = NULL,
			status = CASE WHEN retry_count + 1 >= $2 THEN $3 ELSE status END,
			updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		message, maxRetries, model.OutboxStatusFailed, time.Now().UTC(), id)
	if err != nil {
		return classify("failed to mark outbox event failed", err)
	}
	return expectOne("failed to mark outbox event failed", result)
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM outbox_events WHERE status = $1 AND processed_at < $2`
	result, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, classify("failed to delete processed outbox events", err)
	}
	return result.RowsAffected()
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
)

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `
	id, venue_id, customer_id, name, event_date, status,
	phone_number, phone_number_sid, purchased_at, release_scheduled_for, released_at,
	custom_greeting_audio_url, ai_greeting_audio_url, greeting_text,
	max_recording_seconds, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (
			id, venue_id, customer_id, name, event_date, status,
			custom_greeting_audio_url, ai_greeting_audio_url, greeting_text,
			max_recording_seconds, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.VenueID,
		event.CustomerID,
		event.Name,
		event.EventDate,
		event.Status,
		event.CustomGreetingAudioURL,
		event.AIGreetingAudioURL,
		event.GreetingText,
		event.MaxRecordingSeconds,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var event model.Event
	err := r.db.GetContext(ctx, &event, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) GetActiveByPhoneNumber(ctx context.Context, number string) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE phone_number = $1 AND status = $2`

	var event model.Event
	err := r.db.GetContext(ctx, &event, query, number, model.EventStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event by phone number: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) AssignPhoneNumber(ctx context.Context, id uuid.UUID, assignment *model.PhoneAssignment) error {
	query := `
		UPDATE events
		SET phone_number = $1, phone_number_sid = $2, purchased_at = $3,
			release_scheduled_for = $4, updated_at = $5
		WHERE id = $6 AND phone_number IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		assignment.PhoneNumber,
		assignment.PhoneNumberSID,
		assignment.PurchasedAt,
		assignment.ReleaseScheduledFor,
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to assign phone number: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the event is gone or another writer got here first.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return repository.ErrNumberAlreadyAssigned
	}

	return nil
}

func (r *eventRepository) FindDueForProvisioning(ctx context.Context, before time.Time, limit int) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = $1
		  AND phone_number IS NULL
		  AND event_date <= $2
		  AND event_date >= now() - interval '1 day'
		ORDER BY event_date ASC
		LIMIT $3
	`
	var events []*model.Event
	err := r.db.SelectContext(ctx, &events, query, model.EventStatusActive, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find events due for provisioning: %w", err)
	}
	return events, nil
}

func (r *eventRepository) FindDueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE phone_number IS NOT NULL
		  AND released_at IS NULL
		  AND release_scheduled_for <= $1
		ORDER BY release_scheduled_for ASC
		LIMIT $2
	`
	var events []*model.Event
	err := r.db.SelectContext(ctx, &events, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find events due for release: %w", err)
	}
	return events, nil
}

func (r *eventRepository) MarkReleased(ctx context.Context, id uuid.UUID, releasedAt time.Time) error {
	query := `
		UPDATE events
		SET released_at = $1, updated_at = $2
		WHERE id = $3 AND released_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, releasedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event released: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Already marked by a concurrent run; idempotent.
		return nil
	}

	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	query := `
		INSERT INTO messages (
			id, event_id, call_sid, recording_sid, audio_url,
			duration_seconds, caller_number, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	message.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.EventID,
		message.CallSID,
		message.RecordingSID,
		message.AudioURL,
		message.DurationSeconds,
		message.CallerNumber,
		message.CreatedAt,
	)
	if err != nil {
		// A unique violation on recording_sid means the carrier
		// redelivered the callback; the message already exists.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByRecordingSID(ctx context.Context, recordingSID string) (*model.Message, error) {
	query := `
		SELECT id, event_id, call_sid, recording_sid, audio_url,
			   duration_seconds, caller_number, created_at
		FROM messages
		WHERE recording_sid = $1
	`
	var message model.Message
	err := r.db.GetContext(ctx, &message, query, recordingSID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message by recording sid: %w", err)
	}
	return &message, nil
}

func (r *messageRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Message, error) {
	query := `
		SELECT id, event_id, call_sid, recording_sid, audio_url,
			   duration_seconds, caller_number, created_at
		FROM messages
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	var messages []*model.Message
	err := r.db.SelectContext(ctx, &messages, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is one completed guest recording. Created once by the
// ingestion pipeline and never mutated by it; downstream editing
// (captions, tags) happens elsewhere.
type Message struct {
	ID              uuid.UUID `db:"id" json:"id"`
	EventID         uuid.UUID `db:"event_id" json:"event_id"`
	CallSID         string    `db:"call_sid" json:"call_sid"`
	RecordingSID    string    `db:"recording_sid" json:"recording_sid"`
	AudioURL        string    `db:"audio_url" json:"audio_url"`
	DurationSeconds int       `db:"duration_seconds" json:"duration_seconds"`
	CallerNumber    string    `db:"caller_number" json:"caller_number"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// DefaultMaxRecordingSeconds caps guest messages when an event has no
// per-event override.
const DefaultMaxRecordingSeconds = 240

// Event is a single celebration with a dedicated guest voicemail line.
// The phone assignment sub-state lives on the event itself: a number is
// assigned at most once and PhoneNumber is the sole arbiter of "has a
// number already".
type Event struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	VenueID    uuid.UUID   `db:"venue_id" json:"venue_id"`
	CustomerID uuid.UUID   `db:"customer_id" json:"customer_id"`
	Name       string      `db:"name" json:"name"`
	EventDate  time.Time   `db:"event_date" json:"event_date"`
	Status     EventStatus `db:"status" json:"status"`

	PhoneNumber         *string    `db:"phone_number" json:"phone_number,omitempty"`
	PhoneNumberSID      *string    `db:"phone_number_sid" json:"phone_number_sid,omitempty"`
	PurchasedAt         *time.Time `db:"purchased_at" json:"purchased_at,omitempty"`
	ReleaseScheduledFor *time.Time `db:"release_scheduled_for" json:"release_scheduled_for,omitempty"`
	ReleasedAt          *time.Time `db:"released_at" json:"released_at,omitempty"`

	CustomGreetingAudioURL *string `db:"custom_greeting_audio_url" json:"custom_greeting_audio_url,omitempty"`
	AIGreetingAudioURL     *string `db:"ai_greeting_audio_url" json:"ai_greeting_audio_url,omitempty"`
	GreetingText           *string `db:"greeting_text" json:"greeting_text,omitempty"`

	MaxRecordingSeconds *int `db:"max_recording_seconds" json:"max_recording_seconds,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PhoneAssignment is the sub-state written when a number is purchased.
// Persisted in a single write so a partial assignment can never exist.
type PhoneAssignment struct {
	PhoneNumber         string
	PhoneNumberSID      string
	PurchasedAt         time.Time
	ReleaseScheduledFor time.Time
}

// HasPhoneNumber reports whether a number has ever been assigned.
func (e *Event) HasPhoneNumber() bool {
	return e.PhoneNumber != nil && *e.PhoneNumber != ""
}

// RecordingLimitSeconds returns the per-event recording cap, falling
// back to the product default.
func (e *Event) RecordingLimitSeconds() int {
	if e.MaxRecordingSeconds != nil && *e.MaxRecordingSeconds > 0 {
		return *e.MaxRecordingSeconds
	}
	return DefaultMaxRecordingSeconds
}

// GreetingKind identifies which tier of the greeting chain won.
type GreetingKind string

const (
	GreetingCustomAudio GreetingKind = "custom_audio"
	GreetingAIAudio     GreetingKind = "ai_audio"
	GreetingText        GreetingKind = "text"
	GreetingFallback    GreetingKind = "fallback"
)

// Greeting resolves the greeting chain in strict priority order: custom
// uploaded audio, then AI-generated audio, then synthesized text.
// Exactly one tier applies.
func (e *Event) Greeting() (GreetingKind, string) {
	if e.CustomGreetingAudioURL != nil && *e.CustomGreetingAudioURL != "" {
		return GreetingCustomAudio, *e.CustomGreetingAudioURL
	}
	if e.AIGreetingAudioURL != nil && *e.AIGreetingAudioURL != "" {
		return GreetingAIAudio, *e.AIGreetingAudioURL
	}
	if e.GreetingText != nil && *e.GreetingText != "" {
		return GreetingText, *e.GreetingText
	}
	return GreetingFallback, ""
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/weddingringring/wrr-sub001/internal/model"
)

var (
	// ErrEventNotFound is returned when no event matches the query.
	ErrEventNotFound = errors.New("event not found")
	// ErrMessageNotFound is returned when no message matches the query.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNumberAlreadyAssigned is returned when a phone assignment
	// write finds the event already holding a number.
	ErrNumberAlreadyAssigned = errors.New("event already has a phone number assigned")
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// GetActiveByPhoneNumber resolves an inbound call's destination
	// number to its owning active event.
	GetActiveByPhoneNumber(ctx context.Context, number string) (*model.Event, error)
	// AssignPhoneNumber persists the full phone assignment sub-state in
	// one write. It fails if the event already has a number assigned,
	// which keeps the assignment single-writer under races.
	AssignPhoneNumber(ctx context.Context, id uuid.UUID, assignment *model.PhoneAssignment) error
	// FindDueForProvisioning selects active events without a number
	// whose event date falls within the purchase threshold.
	FindDueForProvisioning(ctx context.Context, before time.Time, limit int) ([]*model.Event, error)
	// FindDueForRelease selects events holding a number past their
	// retention window.
	FindDueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Event, error)
	MarkReleased(ctx context.Context, id uuid.UUID, releasedAt time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	GetByRecordingSID(ctx context.Context, recordingSID string) (*model.Message, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Message, error)
}

type VenueRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Venue, error)
}

type CustomerRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Customer, error)
}

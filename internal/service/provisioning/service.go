package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weddingringring/wrr-sub001/internal/carrier"
	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/notifier"
	"github.com/weddingringring/wrr-sub001/internal/repository"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
)

var (
	// ErrEventCancelled means provisioning was refused because the
	// event is cancelled; no carrier call is made.
	ErrEventCancelled = errors.New("event is cancelled")
	// ErrProvisionInFlight means another provisioning attempt for the
	// same event holds the lease. Benign: the other attempt's outcome
	// stands.
	ErrProvisionInFlight = errors.New("provisioning already in progress for event")
)

const leaseTTL = 30 * time.Second

type Config struct {
	// PublicBaseURL is where the carrier reaches our webhooks.
	PublicBaseURL string
	// PurchaseThreshold is how far ahead of the event date numbers are
	// purchased.
	PurchaseThreshold time.Duration
	// Retention is how long past the event date the number stays
	// reachable, so latecomer guests can still leave messages.
	Retention time.Duration
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.PurchaseThreshold <= 0 {
		c.PurchaseThreshold = 7 * 24 * time.Hour
	}
	if c.Retention <= 0 {
		c.Retention = 37 * 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

// Service purchases a number for an event, persists the assignment and
// compensates on partial failure.
type Service struct {
	events    repository.EventRepository
	venues    repository.VenueRepository
	customers repository.CustomerRepository
	carrier   carrier.Client
	notifier  notifier.Notifier
	locker    Locker
	logger    *logger.Logger
	metrics   *metrics.Metrics
	cfg       Config
}

func NewService(
	events repository.EventRepository,
	venues repository.VenueRepository,
	customers repository.CustomerRepository,
	carrierClient carrier.Client,
	notifierSvc notifier.Notifier,
	locker Locker,
	log *logger.Logger,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	return &Service{
		events:    events,
		venues:    venues,
		customers: customers,
		carrier:   carrierClient,
		notifier:  notifierSvc,
		locker:    locker,
		logger:    log,
		metrics:   m,
		cfg:       cfg.withDefaults(),
	}
}

// Result reports the outcome of one provisioning attempt.
type Result struct {
	PhoneNumber string `json:"phone_number"`
	// AlreadyAssigned is true when the event had a number before this
	// call; no carrier purchase happened.
	AlreadyAssigned bool `json:"already_assigned"`
}

// ProvisionNumber acquires a carrier number for the event and persists
// the assignment. Idempotent: an event that already has a number is a
// no-op success returning the existing number.
func (s *Service) ProvisionNumber(ctx context.Context, eventID uuid.UUID, areaCodeHint string) (*Result, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	if event.HasPhoneNumber() {
		return &Result{PhoneNumber: *event.PhoneNumber, AlreadyAssigned: true}, nil
	}

	if event.Status == model.EventStatusCancelled {
		return nil, ErrEventCancelled
	}

	acquired, err := s.locker.Acquire(ctx, eventID.String(), leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire provisioning lease: %w", err)
	}
	if !acquired {
		return nil, ErrProvisionInFlight
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), eventID.String()); err != nil {
			s.logger.Warn("failed to release provisioning lease", "event_id", eventID.String())
		}
	}()

	// Re-read under the lease: a concurrent attempt may have finished
	// between the first read and lease acquisition.
	event, err = s.events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload event: %w", err)
	}
	if event.HasPhoneNumber() {
		return &Result{PhoneNumber: *event.PhoneNumber, AlreadyAssigned: true}, nil
	}

	venue, err := s.venues.Get(ctx, event.VenueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load venue: %w", err)
	}

	hint := areaCodeHint
	if hint == "" && venue.AreaCodeHint != nil {
		hint = *venue.AreaCodeHint
	}

	candidates, err := s.carrier.SearchAvailable(ctx, venue.CountryCode, hint)
	if err != nil {
		s.countFailure(err)
		return nil, fmt.Errorf("number search failed: %w", err)
	}

	purchased, err := s.carrier.Purchase(ctx, candidates[0].PhoneNumber, carrier.CallbackConfig{
		VoiceURL:          s.cfg.PublicBaseURL + "/webhooks/voice",
		StatusCallbackURL: s.cfg.PublicBaseURL + "/webhooks/call-status",
	})
	if err != nil {
		s.countFailure(err)
		return nil, fmt.Errorf("number purchase failed: %w", err)
	}

	now := time.Now()
	assignment := &model.PhoneAssignment{
		PhoneNumber:         purchased.PhoneNumber,
		PhoneNumberSID:      purchased.SID,
		PurchasedAt:         now,
		ReleaseScheduledFor: event.EventDate.Add(s.cfg.Retention),
	}

	if err := s.events.AssignPhoneNumber(ctx, eventID, assignment); err != nil {
		// A purchased-but-unrecorded number is a silent cost leak;
		// release it before surfacing the persistence error.
		s.compensate(ctx, eventID, purchased.SID)
		s.countFailure(err)
		return nil, fmt.Errorf("failed to persist phone assignment: %w", err)
	}

	s.metrics.NumbersPurchased.Inc()
	s.logger.Info("phone number provisioned",
		"event_id", eventID.String(),
		"phone_number", purchased.PhoneNumber,
		"release_scheduled_for", assignment.ReleaseScheduledFor.Format(time.RFC3339),
	)

	event.PhoneNumber = &assignment.PhoneNumber
	event.PhoneNumberSID = &assignment.PhoneNumberSID
	event.PurchasedAt = &assignment.PurchasedAt
	event.ReleaseScheduledFor = &assignment.ReleaseScheduledFor
	s.notify(ctx, event, venue)

	return &Result{PhoneNumber: purchased.PhoneNumber}, nil
}

// compensate releases a number whose assignment could not be
// persisted. Best effort: its own failure is logged, not re-raised,
// and the next release scan cannot catch it, so it is alert-worthy.
func (s *Service) compensate(ctx context.Context, eventID uuid.UUID, sid string) {
	if err := s.carrier.Release(context.WithoutCancel(ctx), sid); err != nil {
		s.logger.Critical(err, "failed to release orphaned number after persist failure",
			"event_id", eventID.String(),
			"phone_number_sid", sid,
		)
		return
	}
	s.metrics.ProvisionCompensated.Inc()
	s.logger.Warn("released number after failed persist",
		"event_id", eventID.String(),
		"phone_number_sid", sid,
	)
}

// notify sends confirmations to the customer and venue. Failures are
// logged and never surfaced: the purchase stands regardless.
func (s *Service) notify(ctx context.Context, event *model.Event, venue *model.Venue) {
	customer, err := s.customers.Get(ctx, event.CustomerID)
	if err != nil {
		s.logger.Error(err, "failed to load customer for notification", "event_id", event.ID.String())
		return
	}
	if err := s.notifier.NotifyNumberAssigned(ctx, event, venue, customer); err != nil {
		s.logger.Error(err, "failed to send number assignment notification", "event_id", event.ID.String())
	}
}

func (s *Service) countFailure(err error) {
	reason := "internal"
	switch {
	case errors.Is(err, carrier.ErrNoInventory):
		reason = "no_inventory"
	case errors.Is(err, carrier.ErrPurchaseRejected):
		reason = "purchase_rejected"
	case carrier.IsTransient(err):
		reason = "transient"
	}
	s.metrics.ProvisionFailures.WithLabelValues(reason).Inc()
}

// RunDailyScan provisions numbers for every active event entering the
// purchase threshold. It is the primary driver for far-future events
// and the safety net for failed immediate purchases or date changes.
// Per-item failures are isolated; the scan continues and aggregates.
func (s *Service) RunDailyScan(ctx context.Context, now time.Time) (*model.ProvisionRunSummary, error) {
	due, err := s.events.FindDueForProvisioning(ctx, now.Add(s.cfg.PurchaseThreshold), s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to select events for provisioning: %w", err)
	}

	summary := &model.ProvisionRunSummary{}
	for _, event := range due {
		res, err := s.ProvisionNumber(ctx, event.ID, "")
		if err != nil {
			if errors.Is(err, ErrProvisionInFlight) {
				continue
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", event.ID, err))
			s.logger.Error(err, "scan provisioning failed", "event_id", event.ID.String())
			continue
		}
		if !res.AlreadyAssigned {
			summary.Purchased++
		}
	}

	s.logger.Info("provisioning scan finished",
		"candidates", len(due),
		"purchased", summary.Purchased,
		"failed", summary.Failed,
	)
	return summary, nil
}

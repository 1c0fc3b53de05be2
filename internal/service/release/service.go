package release

import (
	"context"
	"fmt"
	"time"

	"github.com/weddingringring/wrr-sub001/internal/carrier"
	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
)

const defaultBatchSize = 50

// Service returns numbers past their retention window to the carrier.
// Naturally idempotent: a failed candidate is left untouched and the
// next run retries it; "already gone" carrier-side counts as released.
type Service struct {
	events    repository.EventRepository
	carrier   carrier.Client
	logger    *logger.Logger
	metrics   *metrics.Metrics
	batchSize int
}

func NewService(events repository.EventRepository, carrierClient carrier.Client, log *logger.Logger, m *metrics.Metrics, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		events:    events,
		carrier:   carrierClient,
		logger:    log,
		metrics:   m,
		batchSize: batchSize,
	}
}

// RunDailyScan releases every number whose retention window has passed,
// bounded to one batch per run. Per-candidate failures are isolated:
// the scan continues and reports an aggregate summary.
func (s *Service) RunDailyScan(ctx context.Context, now time.Time) (*model.ReleaseRunSummary, error) {
	due, err := s.events.FindDueForRelease(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to select events for release: %w", err)
	}

	summary := &model.ReleaseRunSummary{}
	for _, event := range due {
		if err := s.releaseOne(ctx, event, now); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", event.ID, err))
			continue
		}
		summary.Released++
	}

	s.logger.Info("release scan finished",
		"candidates", len(due),
		"released", summary.Released,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *Service) releaseOne(ctx context.Context, event *model.Event, now time.Time) error {
	if event.PhoneNumberSID == nil {
		// A number without a carrier handle cannot be released
		// remotely; mark it so the scan stops selecting it.
		s.logger.Warn("event has phone number but no carrier handle", "event_id", event.ID.String())
		return s.events.MarkReleased(ctx, event.ID, now)
	}

	if err := s.carrier.Release(ctx, *event.PhoneNumberSID); err != nil {
		s.metrics.ReleaseFailures.Inc()
		s.logger.Error(err, "failed to release number",
			"event_id", event.ID.String(),
			"phone_number_sid", *event.PhoneNumberSID,
		)
		return err
	}

	if err := s.events.MarkReleased(ctx, event.ID, now); err != nil {
		// The carrier-side release succeeded; the next run will call
		// release again, which treats "already gone" as success.
		s.metrics.ReleaseFailures.Inc()
		s.logger.Error(err, "failed to mark event released", "event_id", event.ID.String())
		return err
	}

	s.metrics.NumbersReleased.Inc()
	s.logger.Info("phone number released",
		"event_id", event.ID.String(),
		"phone_number_sid", *event.PhoneNumberSID,
	)
	return nil
}

// ReleaseEvent releases a single event's number immediately, for the
// admin trigger. Same semantics as the scan path.
func (s *Service) ReleaseEvent(ctx context.Context, event *model.Event, now time.Time) error {
	if !event.HasPhoneNumber() {
		return fmt.Errorf("event has no phone number assigned")
	}
	if event.ReleasedAt != nil {
		return nil
	}
	return s.releaseOne(ctx, event, now)
}

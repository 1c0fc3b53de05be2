package recording

import (
	"context"
	"errors"
	"fmt"

	"github.com/weddingringring/wrr-sub001/internal/carrier"
	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
	"github.com/weddingringring/wrr-sub001/internal/storage"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/messaging"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
	"github.com/weddingringring/wrr-sub001/pkg/validator"
)

var (
	// ErrInvalidCallback means the carrier payload is missing required
	// fields; nothing durable is created.
	ErrInvalidCallback = errors.New("recording callback is missing required fields")
	// ErrEventNotFound means the called number no longer maps to an
	// active event. The carrier does not resend, so this is data loss,
	// logged but not retried.
	ErrEventNotFound = errors.New("no active event for called number")
)

const alertsChannel = "alerts"

// Callback is the carrier's recording-complete payload.
type Callback struct {
	RecordingSID    string
	RecordingURL    string
	DurationSeconds int
	CallSID         string
	CalledNumber    string
	CallerNumber    string
}

func (c Callback) validate() error {
	if c.RecordingSID == "" || c.RecordingURL == "" || c.CallSID == "" {
		return ErrInvalidCallback
	}
	if !validator.IsE164(c.CalledNumber) {
		return ErrInvalidCallback
	}
	return nil
}

// Service ingests completed recordings: fetch from the carrier, persist
// to durable storage, create the message record.
type Service struct {
	events   repository.EventRepository
	messages repository.MessageRepository
	carrier  carrier.Client
	store    storage.MediaStore
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	events repository.EventRepository,
	messages repository.MessageRepository,
	carrierClient carrier.Client,
	store storage.MediaStore,
	broker messaging.Broker,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		events:   events,
		messages: messages,
		carrier:  carrierClient,
		store:    store,
		broker:   broker,
		logger:   log,
		metrics:  m,
	}
}

// Ingest processes one recording callback. Failures past validation are
// critical: the carrier retains raw recordings only briefly and does
// not guarantee redelivery, so the voice message is at risk of
// permanent loss. Those paths log at the highest severity and publish
// an operator alert.
func (s *Service) Ingest(ctx context.Context, cb Callback) (*model.Message, error) {
	if err := cb.validate(); err != nil {
		return nil, err
	}

	event, err := s.events.GetActiveByPhoneNumber(ctx, cb.CalledNumber)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			// The number may have been released mid-call. Rare race.
			s.logger.Warn("recording arrived for unassigned number",
				"called_number", cb.CalledNumber,
				"recording_sid", cb.RecordingSID,
			)
			return nil, ErrEventNotFound
		}
		return nil, s.critical(ctx, cb, fmt.Errorf("failed to resolve event: %w", err))
	}

	media, contentType, err := s.carrier.FetchRecording(ctx, cb.RecordingURL)
	if err != nil {
		return nil, s.critical(ctx, cb, fmt.Errorf("failed to fetch recording media: %w", err))
	}
	defer media.Close()

	audioURL, size, err := s.store.Save(ctx, event.ID, cb.RecordingSID, media, contentType)
	if err != nil {
		return nil, s.critical(ctx, cb, fmt.Errorf("failed to persist recording media: %w", err))
	}

	message := &model.Message{
		EventID:         event.ID,
		CallSID:         cb.CallSID,
		RecordingSID:    cb.RecordingSID,
		AudioURL:        audioURL,
		DurationSeconds: cb.DurationSeconds,
		CallerNumber:    cb.CallerNumber,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, s.critical(ctx, cb, fmt.Errorf("failed to create message record: %w", err))
	}

	s.metrics.RecordingsIngested.Inc()
	s.metrics.RecordingBytes.Add(float64(size))
	s.logger.Info("recording ingested",
		"event_id", event.ID.String(),
		"recording_sid", cb.RecordingSID,
		"duration_seconds", cb.DurationSeconds,
		"bytes", size,
	)
	return message, nil
}

// critical records an at-risk recording: highest log severity, loss
// metric, and an operator alert on the broker. The alert publish is
// itself best effort.
func (s *Service) critical(ctx context.Context, cb Callback, err error) error {
	s.metrics.RecordingsLost.Inc()
	s.logger.Critical(err, "recording ingestion failed, voice message at risk of loss",
		"recording_sid", cb.RecordingSID,
		"call_sid", cb.CallSID,
		"called_number", cb.CalledNumber,
	)

	if s.broker != nil {
		alert := messaging.Message{
			Type: "recording_ingestion_failed",
			Payload: map[string]interface{}{
				"recording_sid": cb.RecordingSID,
				"call_sid":      cb.CallSID,
				"called_number": cb.CalledNumber,
				"error":         err.Error(),
			},
		}
		if pubErr := s.broker.Publish(context.WithoutCancel(ctx), alertsChannel, alert); pubErr != nil {
			s.logger.Error(pubErr, "failed to publish ingestion alert", "recording_sid", cb.RecordingSID)
		}
	}
	return err
}

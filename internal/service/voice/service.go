package voice

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
	"github.com/weddingringring/wrr-sub001/internal/twiml"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
)

const (
	fallbackGreeting = "Hello! Please leave a message for the happy couple after the beep."
	thankYouPhrase   = "Thank you for your message. Goodbye!"
	stalePhrase      = "Sorry, this number is not in service for an event right now. Goodbye!"
	errorPhrase      = "Sorry, an error occurred. Please try again later."

	lookupCacheTTL = time.Minute
)

// Service routes inbound calls: it resolves the called number to an
// event and produces the call-treatment document the carrier executes.
type Service struct {
	events        repository.EventRepository
	cache         *gocache.Cache
	logger        *logger.Logger
	metrics       *metrics.Metrics
	publicBaseURL string
}

func NewService(events repository.EventRepository, log *logger.Logger, m *metrics.Metrics, publicBaseURL string) *Service {
	return &Service{
		events:        events,
		cache:         gocache.New(lookupCacheTTL, 5*time.Minute),
		logger:        log,
		metrics:       m,
		publicBaseURL: publicBaseURL,
	}
}

// InboundCall is the carrier's view of a ringing call.
type InboundCall struct {
	To      string
	From    string
	CallSID string
}

// HandleInboundCall never fails: the carrier blocks on the response to
// decide call treatment, and a missing or malformed document plays a
// raw failure tone at the guest. Every path returns a valid document.
func (s *Service) HandleInboundCall(ctx context.Context, call InboundCall) *twiml.Response {
	event, err := s.lookupEvent(ctx, call.To)
	if err != nil {
		s.metrics.InboundCalls.WithLabelValues("error").Inc()
		s.logger.Error(err, "inbound call lookup failed",
			"called_number", call.To,
			"call_sid", call.CallSID,
		)
		return (&twiml.Response{}).Add(
			twiml.Say{Text: errorPhrase},
			twiml.Hangup{},
		)
	}

	if event == nil {
		// Stale or misconfigured number. Terminal, user-facing.
		s.metrics.InboundCalls.WithLabelValues("stale_number").Inc()
		s.logger.Warn("inbound call to unassigned number",
			"called_number", call.To,
			"call_sid", call.CallSID,
		)
		return (&twiml.Response{}).Add(
			twiml.Say{Text: stalePhrase},
			twiml.Hangup{},
		)
	}

	s.metrics.InboundCalls.WithLabelValues("answered").Inc()
	s.logger.Info("inbound call routed",
		"event_id", event.ID.String(),
		"call_sid", call.CallSID,
	)

	resp := &twiml.Response{}
	s.addGreeting(resp, event)
	resp.Add(
		// No action override: once the caller stops or the cap is
		// hit, execution falls through to the verbs below.
		twiml.Record{
			MaxLength:               event.RecordingLimitSeconds(),
			Trim:                    "trim-silence",
			RecordingStatusCallback: s.publicBaseURL + "/webhooks/recording",
			Transcribe:              false,
			PlayBeep:                true,
		},
		twiml.Say{Text: thankYouPhrase},
		twiml.Hangup{},
	)
	return resp
}

func (s *Service) addGreeting(resp *twiml.Response, event *model.Event) {
	kind, value := event.Greeting()
	switch kind {
	case model.GreetingCustomAudio, model.GreetingAIAudio:
		resp.Add(twiml.Play{URL: value})
	case model.GreetingText:
		resp.Add(twiml.Say{Text: value})
	default:
		resp.Add(twiml.Say{Text: fallbackGreeting})
	}
}

// lookupEvent resolves the called number through a short-lived cache;
// repeated calls to the same event's line within a minute skip the
// database. Returns (nil, nil) when no active event owns the number.
func (s *Service) lookupEvent(ctx context.Context, number string) (*model.Event, error) {
	if cached, found := s.cache.Get(number); found {
		return cached.(*model.Event), nil
	}

	event, err := s.events.GetActiveByPhoneNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, nil
		}
		return nil, err
	}

	s.cache.Set(number, event, lookupCacheTTL)
	return event, nil
}

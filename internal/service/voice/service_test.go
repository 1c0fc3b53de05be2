package voice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
	"github.com/weddingringring/wrr-sub001/internal/twiml"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
)

var testMetrics = metrics.New("voice_test")

type fakeEventRepo struct {
	byNumber map[string]*model.Event
	fail     bool
	lookups  int
}

func (f *fakeEventRepo) Create(ctx context.Context, event *model.Event) error { return nil }

func (f *fakeEventRepo) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return nil, repository.ErrEventNotFound
}

func (f *fakeEventRepo) GetActiveByPhoneNumber(ctx context.Context, number string) (*model.Event, error) {
	f.lookups++
	if f.fail {
		return nil, fmt.Errorf("db down")
	}
	if e, ok := f.byNumber[number]; ok {
		return e, nil
	}
	return nil, repository.ErrEventNotFound
}

func (f *fakeEventRepo) AssignPhoneNumber(ctx context.Context, id uuid.UUID, assignment *model.PhoneAssignment) error {
	return nil
}

func (f *fakeEventRepo) FindDueForProvisioning(ctx context.Context, before time.Time, limit int) ([]*model.Event, error) {
	return nil, nil
}

func (f *fakeEventRepo) FindDueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Event, error) {
	return nil, nil
}

func (f *fakeEventRepo) MarkReleased(ctx context.Context, id uuid.UUID, releasedAt time.Time) error {
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newTestService(repo *fakeEventRepo) *Service {
	return NewService(repo, logger.NewLogger(nil), testMetrics, "https://app.example.com")
}

func testEvent(number string) *model.Event {
	return &model.Event{
		ID:          uuid.New(),
		Name:        "Ana & Ben",
		Status:      model.EventStatusActive,
		PhoneNumber: strPtr(number),
	}
}

func verbsOf(resp *twiml.Response) []interface{} {
	return resp.Verbs
}

func TestCustomAudioWinsOverGreetingText(t *testing.T) {
	event := testEvent("+15550001111")
	event.CustomGreetingAudioURL = strPtr("https://cdn.example.com/greeting.mp3")
	event.GreetingText = strPtr("Welcome to our wedding line")

	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	svc := newTestService(repo)

	resp := svc.HandleInboundCall(context.Background(), InboundCall{To: "+15550001111", From: "+15559998888", CallSID: "CA1"})

	verbs := verbsOf(resp)
	require.NotEmpty(t, verbs)
	play, ok := verbs[0].(twiml.Play)
	require.True(t, ok, "first verb should play the custom audio, got %T", verbs[0])
	assert.Equal(t, "https://cdn.example.com/greeting.mp3", play.URL)

	for _, v := range verbs {
		if say, ok := v.(twiml.Say); ok {
			assert.NotEqual(t, "Welcome to our wedding line", say.Text, "greeting text must not be synthesized when custom audio exists")
		}
	}
}

func TestAIGreetingBeatsTextAndFallback(t *testing.T) {
	event := testEvent("+15550001111")
	event.AIGreetingAudioURL = strPtr("https://cdn.example.com/ai.mp3")
	event.GreetingText = strPtr("text greeting")

	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	play, ok := verbsOf(resp)[0].(twiml.Play)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/ai.mp3", play.URL)
}

func TestGreetingTextSynthesizedWhenNoAudio(t *testing.T) {
	event := testEvent("+15550001111")
	event.GreetingText = strPtr("Leave us a message!")

	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	say, ok := verbsOf(resp)[0].(twiml.Say)
	require.True(t, ok)
	assert.Equal(t, "Leave us a message!", say.Text)
}

func TestFallbackGreetingWhenNothingConfigured(t *testing.T) {
	event := testEvent("+15550001111")

	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	say, ok := verbsOf(resp)[0].(twiml.Say)
	require.True(t, ok)
	assert.Equal(t, fallbackGreeting, say.Text)
}

func TestDefaultRecordingCap(t *testing.T) {
	event := testEvent("+15550001111")

	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	record := findRecord(t, resp)
	assert.Equal(t, 240, record.MaxLength)
	assert.Equal(t, "trim-silence", record.Trim)
	assert.False(t, record.Transcribe)
	assert.Equal(t, "https://app.example.com/webhooks/recording", record.RecordingStatusCallback)
}

func TestPerEventRecordingCap(t *testing.T) {
	event := testEvent("+15550001111")
	event.MaxRecordingSeconds = intPtr(90)

	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	assert.Equal(t, 90, findRecord(t, resp).MaxLength)
}

func TestThankYouAndHangupFollowRecord(t *testing.T) {
	event := testEvent("+15550001111")

	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	verbs := verbsOf(resp)
	require.GreaterOrEqual(t, len(verbs), 4)
	say, ok := verbs[len(verbs)-2].(twiml.Say)
	require.True(t, ok)
	assert.Equal(t, thankYouPhrase, say.Text)
	_, ok = verbs[len(verbs)-1].(twiml.Hangup)
	assert.True(t, ok)
}

func TestStaleNumberGetsApologyWithoutRecording(t *testing.T) {
	repo := &fakeEventRepo{byNumber: map[string]*model.Event{}}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550009999"})

	verbs := verbsOf(resp)
	require.Len(t, verbs, 2)
	say, ok := verbs[0].(twiml.Say)
	require.True(t, ok)
	assert.Equal(t, stalePhrase, say.Text)
	_, ok = verbs[1].(twiml.Hangup)
	assert.True(t, ok)
}

func TestLookupFailureStillProducesValidDocument(t *testing.T) {
	repo := &fakeEventRepo{fail: true}
	resp := newTestService(repo).HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	verbs := verbsOf(resp)
	require.Len(t, verbs, 2)
	say, ok := verbs[0].(twiml.Say)
	require.True(t, ok)
	assert.Equal(t, errorPhrase, say.Text)

	_, err := resp.Render()
	assert.NoError(t, err)
}

func TestLookupCacheSkipsRepeatQueries(t *testing.T) {
	event := testEvent("+15550001111")
	repo := &fakeEventRepo{byNumber: map[string]*model.Event{"+15550001111": event}}
	svc := newTestService(repo)

	svc.HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})
	svc.HandleInboundCall(context.Background(), InboundCall{To: "+15550001111"})

	assert.Equal(t, 1, repo.lookups)
}

func findRecord(t *testing.T, resp *twiml.Response) twiml.Record {
	t.Helper()
	for _, v := range resp.Verbs {
		if record, ok := v.(twiml.Record); ok {
			return record
		}
	}
	t.Fatal("no Record verb in response")
	return twiml.Record{}
}

package provisioning

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddingringring/wrr-sub001/internal/carrier"
	"github.com/weddingringring/wrr-sub001/internal/model"
	"github.com/weddingringring/wrr-sub001/internal/repository"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
)

var testMetrics = metrics.New("provisioning_test")

type fakeEventRepo struct {
	events      map[uuid.UUID]*model.Event
	assignErr   error
	assignments int
}

func (f *fakeEventRepo) Create(ctx context.Context, event *model.Event) error { return nil }

func (f *fakeEventRepo) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if e, ok := f.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, repository.ErrEventNotFound
}

func (f *fakeEventRepo) GetActiveByPhoneNumber(ctx context.Context, number string) (*model.Event, error) {
	return nil, repository.ErrEventNotFound
}

func (f *fakeEventRepo) AssignPhoneNumber(ctx context.Context, id uuid.UUID, a *model.PhoneAssignment) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	event, ok := f.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if event.PhoneNumber != nil {
		return repository.ErrNumberAlreadyAssigned
	}
	f.assignments++
	event.PhoneNumber = &a.PhoneNumber
	event.PhoneNumberSID = &a.PhoneNumberSID
	event.PurchasedAt = &a.PurchasedAt
	event.ReleaseScheduledFor = &a.ReleaseScheduledFor
	return nil
}

func (f *fakeEventRepo) FindDueForProvisioning(ctx context.Context, before time.Time, limit int) ([]*model.Event, error) {
	var due []*model.Event
	for _, e := range f.events {
		if e.Status == model.EventStatusActive && e.PhoneNumber == nil && !e.EventDate.After(before) {
			due = append(due, e)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeEventRepo) FindDueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Event, error) {
	return nil, nil
}

func (f *fakeEventRepo) MarkReleased(ctx context.Context, id uuid.UUID, releasedAt time.Time) error {
	return nil
}

type fakeVenueRepo struct {
	venue *model.Venue
}

func (f *fakeVenueRepo) Get(ctx context.Context, id uuid.UUID) (*model.Venue, error) {
	return f.venue, nil
}

type fakeCustomerRepo struct {
	customer *model.Customer
}

func (f *fakeCustomerRepo) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return f.customer, nil
}

type fakeCarrier struct {
	searchErr   error
	purchaseErr error
	searches    int
	purchases   int
	releases    []string
	releaseErr  error
}

func (f *fakeCarrier) SearchAvailable(ctx context.Context, countryCode, areaCodeHint string) ([]carrier.AvailableNumber, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return []carrier.AvailableNumber{
		{PhoneNumber: "+15550001111"},
		{PhoneNumber: "+15550002222"},
	}, nil
}

func (f *fakeCarrier) Purchase(ctx context.Context, number string, callbacks carrier.CallbackConfig) (*carrier.PurchasedNumber, error) {
	f.purchases++
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return &carrier.PurchasedNumber{SID: "PN123", PhoneNumber: number}, nil
}

func (f *fakeCarrier) Release(ctx context.Context, sid string) error {
	f.releases = append(f.releases, sid)
	return f.releaseErr
}

func (f *fakeCarrier) FetchRecording(ctx context.Context, mediaURL string) (io.ReadCloser, string, error) {
	return nil, "", fmt.Errorf("not implemented")
}

type fakeNotifier struct {
	notified int
	err      error
}

func (f *fakeNotifier) NotifyNumberAssigned(ctx context.Context, event *model.Event, venue *model.Venue, customer *model.Customer) error {
	f.notified++
	return f.err
}

type fakeLocker struct {
	denied   bool
	acquired int
	released int
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.denied {
		return false, nil
	}
	f.acquired++
	return true, nil
}

func (f *fakeLocker) Release(ctx context.Context, key string) error {
	f.released++
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeEventRepo
	carrier  *fakeCarrier
	notifier *fakeNotifier
	locker   *fakeLocker
	event    *model.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	event := &model.Event{
		ID:         uuid.New(),
		VenueID:    uuid.New(),
		CustomerID: uuid.New(),
		Name:       "Ana & Ben",
		EventDate:  time.Now().Add(3 * 24 * time.Hour),
		Status:     model.EventStatusActive,
	}
	repo := &fakeEventRepo{events: map[uuid.UUID]*model.Event{event.ID: event}}
	carrierClient := &fakeCarrier{}
	notifierSvc := &fakeNotifier{}
	locker := &fakeLocker{}
	venueRepo := &fakeVenueRepo{venue: &model.Venue{ID: event.VenueID, CountryCode: "GB", ContactEmail: "venue@example.com"}}
	customerRepo := &fakeCustomerRepo{customer: &model.Customer{ID: event.CustomerID, Email: "couple@example.com"}}

	svc := NewService(repo, venueRepo, customerRepo, carrierClient, notifierSvc, locker,
		logger.NewLogger(nil), testMetrics,
		Config{PublicBaseURL: "https://app.example.com"})

	return &fixture{svc: svc, repo: repo, carrier: carrierClient, notifier: notifierSvc, locker: locker, event: event}
}

func TestProvisionNumberHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", result.PhoneNumber)
	assert.False(t, result.AlreadyAssigned)
	assert.Equal(t, 1, f.carrier.purchases)
	assert.Equal(t, 1, f.notifier.notified)

	stored := f.repo.events[f.event.ID]
	require.NotNil(t, stored.PhoneNumber)
	assert.Equal(t, "+15550001111", *stored.PhoneNumber)
	require.NotNil(t, stored.ReleaseScheduledFor)
	expected := f.event.EventDate.Add(37 * 24 * time.Hour)
	assert.WithinDuration(t, expected, *stored.ReleaseScheduledFor, time.Second)
}

func TestProvisionNumberIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	require.NoError(t, err)

	second, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	require.NoError(t, err)

	assert.Equal(t, first.PhoneNumber, second.PhoneNumber)
	assert.True(t, second.AlreadyAssigned)
	assert.Equal(t, 1, f.carrier.purchases, "second call must not hit the carrier purchase endpoint")
	assert.Equal(t, 1, f.carrier.searches)
}

func TestProvisionNumberRefusesCancelledEvent(t *testing.T) {
	f := newFixture(t)
	f.repo.events[f.event.ID].Status = model.EventStatusCancelled

	_, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	assert.ErrorIs(t, err, ErrEventCancelled)
	assert.Zero(t, f.carrier.searches, "no carrier calls for cancelled events")
	assert.Zero(t, f.carrier.purchases)
}

func TestProvisionNumberCompensatesOnPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.assignErr = fmt.Errorf("write timeout")

	_, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write timeout")
	require.Len(t, f.carrier.releases, 1, "purchased number must be released when the persist fails")
	assert.Equal(t, "PN123", f.carrier.releases[0])
}

func TestProvisionNumberSurfacesNoInventory(t *testing.T) {
	f := newFixture(t)
	f.carrier.searchErr = carrier.ErrNoInventory

	_, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	assert.ErrorIs(t, err, carrier.ErrNoInventory)
	assert.Zero(t, f.carrier.purchases)
}

func TestProvisionNumberWhileLeaseHeld(t *testing.T) {
	f := newFixture(t)
	f.locker.denied = true

	_, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	assert.ErrorIs(t, err, ErrProvisionInFlight)
	assert.Zero(t, f.carrier.purchases)
}

func TestNotifierFailureDoesNotFailProvisioning(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = fmt.Errorf("smtp down")

	result, err := f.svc.ProvisionNumber(context.Background(), f.event.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", result.PhoneNumber)
}

func TestDailyScanProvisionsEventsInsideThreshold(t *testing.T) {
	f := newFixture(t)

	farFuture := &model.Event{
		ID:         uuid.New(),
		VenueID:    f.event.VenueID,
		CustomerID: f.event.CustomerID,
		EventDate:  time.Now().Add(60 * 24 * time.Hour),
		Status:     model.EventStatusActive,
	}
	f.repo.events[farFuture.ID] = farFuture

	summary, err := f.svc.RunDailyScan(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Purchased)
	assert.Zero(t, summary.Failed)
	assert.Nil(t, f.repo.events[farFuture.ID].PhoneNumber, "events outside the threshold are untouched")
	assert.NotNil(t, f.repo.events[f.event.ID].PhoneNumber)
}

func TestDailyScanIsolatesPerEventFailures(t *testing.T) {
	f := newFixture(t)
	f.carrier.purchaseErr = carrier.ErrPurchaseRejected

	summary, err := f.svc.RunDailyScan(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Zero(t, summary.Purchased)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], f.event.ID.String())
}

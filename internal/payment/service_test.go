package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"theatre-ticketing/internal/config"
	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/models"
	"theatre-ticketing/internal/payment"
	paydb "theatre-ticketing/internal/payment/db"
	"theatre-ticketing/internal/payment/provider"

	"github.com/stretchr/testify/assert"
)

// Mock implementations for testing

type MockPaymentDB struct {
	payments     map[int64]*models.Payment
	reservations map[int64]*models.Reservation
	totals       map[int64]int64
	nextID       int64
	shouldFailOn string
	errorMsg     string
}

func NewMockPaymentDB() *MockPaymentDB {
	return &MockPaymentDB{
		payments:     make(map[int64]*models.Payment),
		reservations: make(map[int64]*models.Reservation),
		totals:       make(map[int64]int64),
		nextID:       1,
	}
}

func (m *MockPaymentDB) GetActivePayment(_ context.Context, reservationID int64, providerName string, now time.Time) (*models.Payment, error) {
	if m.shouldFailOn == "GetActivePayment" {
		return nil, errors.New(m.errorMsg)
	}
	for _, p := range m.payments {
		if p.ReservationID == reservationID && p.Provider == providerName &&
			p.Status == models.StatusPending && p.ExpiresAt.After(now) {
			return p, nil
		}
	}
	return nil, paydb.ErrNotFound
}

func (m *MockPaymentDB) CreatePayment(_ context.Context, p *models.Payment) error {
	if m.shouldFailOn == "CreatePayment" {
		return errors.New(m.errorMsg)
	}
	for _, existing := range m.payments {
		if existing.ReservationID == p.ReservationID {
			return paydb.ErrDuplicatePayment
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.payments[p.ID] = p
	return nil
}

func (m *MockPaymentDB) GetPaymentByExternalID(_ context.Context, externalID string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	return nil, paydb.ErrNotFound
}

func (m *MockPaymentDB) UpdatePaymentStatus(_ context.Context, id int64, status models.PaymentStatus) error {
	if m.shouldFailOn == "UpdatePaymentStatus" {
		return errors.New(m.errorMsg)
	}
	p, ok := m.payments[id]
	if !ok {
		return paydb.ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *MockPaymentDB) GetReservationForUser(_ context.Context, reservationID int64, userID string) (*models.Reservation, error) {
	reservation, ok := m.reservations[reservationID]
	if !ok || reservation.UserID != userID {
		return nil, paydb.ErrNotFound
	}
	return reservation, nil
}

func (m *MockPaymentDB) GetReservationTotal(_ context.Context, reservationID int64) (int64, error) {
	return m.totals[reservationID], nil
}

type MockProvider struct {
	name         string
	session      *provider.Session
	createErr    error
	verifyErr    error
	event        *provider.Event
	createCalls  int
	lastCheckout provider.CheckoutRequest
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) CreateCheckoutSession(_ context.Context, req provider.CheckoutRequest) (*provider.Session, error) {
	m.createCalls++
	m.lastCheckout = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.session, nil
}

func (m *MockProvider) VerifyWebhook(_ []byte, _ string) (*provider.Event, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return m.event, nil
}

type MockStatusEvents struct {
	published []models.PaymentStatusEvent
}

func (m *MockStatusEvents) PublishPaymentStatus(event models.PaymentStatusEvent) error {
	m.published = append(m.published, event)
	return nil
}

type fixture struct {
	db       *MockPaymentDB
	provider *MockProvider
	events   *MockStatusEvents
	service  *payment.Service
}

func newFixture() *fixture {
	prov := &MockProvider{
		name: "stripe",
		session: &provider.Session{
			ExternalID:  "cs_test_1",
			CheckoutURL: "https://checkout.example/cs_test_1",
			ExpiresAt:   time.Now().Add(30 * time.Minute),
		},
	}
	f := &fixture{
		db:       NewMockPaymentDB(),
		provider: prov,
		events:   &MockStatusEvents{},
	}
	cfg := config.PaymentConfig{
		Provider:                 "stripe",
		Currency:                 "usd",
		SessionExpirationMinutes: 30,
		ProviderTimeout:          5 * time.Second,
	}
	f.service = payment.NewService(f.db, provider.NewRegistry(prov), f.events, cfg, logger.NewLogger())

	f.db.reservations[1] = &models.Reservation{ID: 1, UserID: "user123"}
	f.db.totals[1] = 9000
	return f
}

func TestAcquireCheckoutSessionCreates(t *testing.T) {
	f := newFixture()

	url, err := f.service.AcquireCheckoutSession(context.Background(), 1, "user123", "user@example.com")
	assert.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_test_1", url)
	assert.Equal(t, 1, f.provider.createCalls)
	assert.Equal(t, int64(9000), f.provider.lastCheckout.AmountMinor)
	assert.Equal(t, "usd", f.provider.lastCheckout.Currency)

	// The payment row was persisted as pending.
	stored, err := f.db.GetPaymentByExternalID(context.Background(), "cs_test_1")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestAcquireCheckoutSessionReusesActive(t *testing.T) {
	f := newFixture()

	first, err := f.service.AcquireCheckoutSession(context.Background(), 1, "user123", "")
	assert.NoError(t, err)

	second, err := f.service.AcquireCheckoutSession(context.Background(), 1, "user123", "")
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	// The provider is only called once.
	assert.Equal(t, 1, f.provider.createCalls)
}

func TestAcquireCheckoutSessionExpiredIsNotReused(t *testing.T) {
	f := newFixture()

	f.db.payments[99] = &models.Payment{
		ID:            99,
		ReservationID: 2,
		Provider:      "stripe",
		Status:        models.StatusPending,
		ExternalID:    "cs_old",
		CheckoutURL:   "https://checkout.example/cs_old",
		ExpiresAt:     time.Now().Add(-time.Hour),
	}
	f.db.reservations[2] = &models.Reservation{ID: 2, UserID: "user123"}
	f.db.totals[2] = 4500

	// An expired pending payment blocks the create on the unique
	// constraint; the duplicate maps back to the stale row being dead.
	_, err := f.service.AcquireCheckoutSession(context.Background(), 2, "user123", "")
	assert.ErrorIs(t, err, paydb.ErrDuplicatePayment)
	assert.Equal(t, 1, f.provider.createCalls)
}

func TestAcquireCheckoutSessionUnknownReservation(t *testing.T) {
	f := newFixture()

	_, err := f.service.AcquireCheckoutSession(context.Background(), 42, "user123", "")
	assert.ErrorIs(t, err, payment.ErrReservationNotFound)

	// Ownership is part of the lookup.
	_, err = f.service.AcquireCheckoutSession(context.Background(), 1, "someone-else", "")
	assert.ErrorIs(t, err, payment.ErrReservationNotFound)
}

func TestAcquireCheckoutSessionProviderFailure(t *testing.T) {
	f := newFixture()
	f.provider.createErr = errors.New("stripe timeout")

	_, err := f.service.AcquireCheckoutSession(context.Background(), 1, "user123", "")
	assert.ErrorIs(t, err, payment.ErrProvider)

	// No orphaned payment row after a provider failure.
	assert.Empty(t, f.db.payments)
}

func TestWebhookConfirmsPayment(t *testing.T) {
	f := newFixture()

	_, err := f.service.AcquireCheckoutSession(context.Background(), 1, "user123", "")
	assert.NoError(t, err)

	f.provider.event = &provider.Event{Type: provider.EventCheckoutCompleted, ExternalID: "cs_test_1"}
	err = f.service.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)

	stored, err := f.db.GetPaymentByExternalID(context.Background(), "cs_test_1")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)

	assert.Len(t, f.events.published, 1)
	assert.Equal(t, models.StatusConfirmed, f.events.published[0].Status)
}

func TestWebhookRedeliveryIsNoOp(t *testing.T) {
	f := newFixture()

	_, err := f.service.AcquireCheckoutSession(context.Background(), 1, "user123", "")
	assert.NoError(t, err)

	f.provider.event = &provider.Event{Type: provider.EventCheckoutCompleted, ExternalID: "cs_test_1"}
	assert.NoError(t, f.service.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.NoError(t, f.service.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	// Only the first delivery publishes an event.
	assert.Len(t, f.events.published, 1)
}

func TestWebhookInvalidSignature(t *testing.T) {
	f := newFixture()
	f.provider.verifyErr = provider.ErrInvalidSignature

	err := f.service.HandleWebhook(context.Background(), []byte("{}"), "bad-sig")
	var webhookErr *payment.WebhookError
	assert.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, 400, webhookErr.StatusCode)
	assert.Equal(t, "validation", webhookErr.Category)
}

func TestWebhookUnknownSession(t *testing.T) {
	f := newFixture()
	f.provider.event = &provider.Event{Type: provider.EventCheckoutCompleted, ExternalID: "cs_unknown"}

	err := f.service.HandleWebhook(context.Background(), []byte("{}"), "sig")
	var webhookErr *payment.WebhookError
	assert.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, 404, webhookErr.StatusCode)
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestWebhookIgnoresUnhandledEventTypes(t *testing.T) {
	f := newFixture()
	f.provider.event = &provider.Event{Type: "payment_intent.created", ExternalID: "pi_1"}

	err := f.service.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)
	assert.Empty(t, f.events.published)
}

func TestUnsupportedProvider(t *testing.T) {
	f := newFixture()

	cfg := config.PaymentConfig{Provider: "paypal", ProviderTimeout: time.Second}
	service := payment.NewService(f.db, provider.NewRegistry(f.provider), nil, cfg, logger.NewLogger())

	_, err := service.AcquireCheckoutSession(context.Background(), 1, "user123", "")
	assert.ErrorIs(t, err, provider.ErrUnsupportedProvider)
}

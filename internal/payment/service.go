package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"theatre-ticketing/internal/config"
	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/models"
	paydb "theatre-ticketing/internal/payment/db"
	"theatre-ticketing/internal/payment/provider"
)

var (
	// ErrReservationNotFound covers a checkout request for a missing
	// reservation or one owned by another user.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrProvider wraps failures of the outbound provider call;
	// retryable from the caller's point of view.
	ErrProvider = errors.New("payment provider error")

	// ErrPaymentNotFound means a webhook referenced an unknown session.
	ErrPaymentNotFound = errors.New("payment not found")
)

// WebhookError carries an HTTP-mappable classification of a webhook
// processing failure.
type WebhookError struct {
	Category      string // "validation", "processing"
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error {
	return e.OriginalErr
}

type DBLayer interface {
	GetActivePayment(ctx context.Context, reservationID int64, providerName string, now time.Time) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByExternalID(ctx context.Context, externalID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error
	GetReservationForUser(ctx context.Context, reservationID int64, userID string) (*models.Reservation, error)
	GetReservationTotal(ctx context.Context, reservationID int64) (int64, error)
}

type EventPublisher interface {
	PublishPaymentStatus(event models.PaymentStatusEvent) error
}

// Service is the payment lifecycle tracker. It owns the pending ->
// confirmed transition and the checkout-session reuse rule; expiry stays
// a lazily derived state (models.Payment.IsExpired), never swept.
type Service struct {
	DB        DBLayer
	Providers *provider.Registry
	Events    EventPublisher
	Config    config.PaymentConfig
	Logger    *logger.Logger

	now func() time.Time
}

func NewService(database DBLayer, providers *provider.Registry, events EventPublisher, cfg config.PaymentConfig, log *logger.Logger) *Service {
	return &Service{
		DB:        database,
		Providers: providers,
		Events:    events,
		Config:    cfg,
		Logger:    log,
		now:       time.Now,
	}
}

// AcquireCheckoutSession returns the checkout URL for a reservation,
// reusing an unexpired pending payment when one exists. Otherwise it
// calls the provider and only then persists the payment row, so a
// provider timeout never leaves an orphaned row. The lookup-then-create
// window is closed by the unique reservation_id constraint: the losing
// side of a race gets the already-created payment's URL.
func (s *Service) AcquireCheckoutSession(ctx context.Context, reservationID int64, userID, email string) (string, error) {
	reservation, err := s.DB.GetReservationForUser(ctx, reservationID, userID)
	if errors.Is(err, paydb.ErrNotFound) {
		return "", ErrReservationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reservation lookup: %w", err)
	}

	now := s.now().UTC()

	existing, err := s.DB.GetActivePayment(ctx, reservation.ID, s.Config.Provider, now)
	if err == nil {
		s.Logger.Info("PAYMENT", fmt.Sprintf("Reusing pending checkout session for reservation %d", reservation.ID))
		return existing.CheckoutURL, nil
	}
	if !errors.Is(err, paydb.ErrNotFound) {
		return "", fmt.Errorf("active payment lookup: %w", err)
	}

	total, err := s.DB.GetReservationTotal(ctx, reservation.ID)
	if err != nil {
		return "", fmt.Errorf("reservation total: %w", err)
	}

	prov, err := s.Providers.For(s.Config.Provider)
	if err != nil {
		return "", err
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.Config.ProviderTimeout)
	defer cancel()

	session, err := prov.CreateCheckoutSession(providerCtx, provider.CheckoutRequest{
		ReservationID: reservation.ID,
		Description:   fmt.Sprintf("Reservation #%d", reservation.ID),
		AmountMinor:   total,
		Currency:      s.Config.Currency,
		CustomerEmail: email,
		ExpiresAt:     now.Add(time.Duration(s.Config.SessionExpirationMinutes) * time.Minute),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	payment := &models.Payment{
		ReservationID: reservation.ID,
		Provider:      prov.Name(),
		Status:        models.StatusPending,
		CheckoutURL:   session.CheckoutURL,
		ExternalID:    session.ExternalID,
		ExpiresAt:     session.ExpiresAt,
		CreatedAt:     now,
	}
	if err := s.DB.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, paydb.ErrDuplicatePayment) {
			// Lost the create race; hand back the winner's URL.
			winner, lookupErr := s.DB.GetActivePayment(ctx, reservation.ID, s.Config.Provider, now)
			if lookupErr == nil {
				return winner.CheckoutURL, nil
			}
			return "", err
		}
		return "", fmt.Errorf("persist payment: %w", err)
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("Created pending payment %d for reservation %d (session %s)",
		payment.ID, reservation.ID, payment.ExternalID))

	return session.CheckoutURL, nil
}

// HandleWebhook verifies and applies one provider notification. It is
// safe under at-least-once delivery: confirming an already-confirmed
// payment is a no-op. Unrecognized event types are ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	prov, err := s.Providers.For(s.Config.Provider)
	if err != nil {
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: err.Error(),
			OriginalErr:   err,
		}
	}

	event, err := prov.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Webhook signature verification failed",
			InternalError: fmt.Sprintf("signature verification failed: %v", err),
			OriginalErr:   err,
		}
	}

	s.Logger.Info("WEBHOOK", fmt.Sprintf("Processing webhook event: %s", event.Type))

	switch event.Type {
	case provider.EventCheckoutCompleted:
		return s.confirmPayment(ctx, event.ExternalID)
	default:
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Ignoring unhandled event type: %s", event.Type))
		return nil
	}
}

func (s *Service) confirmPayment(ctx context.Context, externalID string) error {
	payment, err := s.DB.GetPaymentByExternalID(ctx, externalID)
	if errors.Is(err, paydb.ErrNotFound) {
		s.Logger.Error("WEBHOOK", fmt.Sprintf("No payment for external session %s", externalID))
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusNotFound,
			PublicError:   "Payment not found",
			InternalError: fmt.Sprintf("no payment for external id %s", externalID),
			OriginalErr:   ErrPaymentNotFound,
		}
	}
	if err != nil {
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: fmt.Sprintf("payment lookup for %s: %v", externalID, err),
			OriginalErr:   err,
		}
	}

	if payment.Status == models.StatusConfirmed {
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Payment %d already confirmed, ignoring redelivery", payment.ID))
		return nil
	}

	// TODO: verify the session against the provider API before
	// confirming instead of trusting the webhook payload alone.
	if err := s.DB.UpdatePaymentStatus(ctx, payment.ID, models.StatusConfirmed); err != nil {
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to process payment",
			InternalError: fmt.Sprintf("confirm payment %d: %v", payment.ID, err),
			OriginalErr:   err,
		}
	}

	s.Logger.Info("WEBHOOK", fmt.Sprintf("Payment %d confirmed (session %s)", payment.ID, externalID))

	if s.Events != nil {
		statusEvent := models.PaymentStatusEvent{
			PaymentID:     payment.ID,
			ReservationID: payment.ReservationID,
			ExternalID:    externalID,
			Status:        models.StatusConfirmed,
			OccurredAt:    s.now().UTC(),
		}
		if err := s.Events.PublishPaymentStatus(statusEvent); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish payment status event: %v", err))
		}
	}

	return nil
}

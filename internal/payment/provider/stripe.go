package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"theatre-ticketing/internal/logger"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeConfig is the injected provider configuration; nothing is read
// from ambient globals.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// StripeProvider implements Provider on Stripe checkout sessions.
type StripeProvider struct {
	client *client.API
	config StripeConfig
	log    *logger.Logger
}

func NewStripeProvider(config StripeConfig, log *logger.Logger) (*StripeProvider, error) {
	if config.SecretKey == "" {
		log.Error("STRIPE", "Stripe secret key not configured")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(config.SecretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeProvider{client: sc, config: config, log: log}, nil
}

func (p *StripeProvider) Name() string {
	return "stripe"
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	p.log.Info("STRIPE", fmt.Sprintf("Creating checkout session for reservation %d (%d %s)",
		req.ReservationID, req.AmountMinor, req.Currency))

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.config.SuccessURL),
		CancelURL:  stripe.String(p.config.CancelURL),
		ExpiresAt:  stripe.Int64(req.ExpiresAt.Unix()),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(uuid.NewString())
	params.AddMetadata("reservation_id", strconv.FormatInt(req.ReservationID, 10))

	sess, err := p.client.CheckoutSessions.New(params)
	if err != nil {
		p.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session: %v", err))
		return nil, err
	}

	p.log.Info("STRIPE", fmt.Sprintf("Checkout session %s created for reservation %d", sess.ID, req.ReservationID))

	return &Session{
		ExternalID:  sess.ID,
		CheckoutURL: sess.URL,
		ExpiresAt:   time.Unix(sess.ExpiresAt, 0).UTC(),
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header and parses the event.
// A verification failure wraps ErrInvalidSignature.
func (p *StripeProvider) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, p.config.WebhookSecret, opts)
	if err != nil {
		p.log.Error("WEBHOOK", fmt.Sprintf("Signature verification failed: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	parsed := &Event{Type: string(event.Type)}

	if parsed.Type == EventCheckoutCompleted {
		var sess struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("unmarshal checkout session: %w", err)
		}
		parsed.ExternalID = sess.ID
	}

	return parsed, nil
}

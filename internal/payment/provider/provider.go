package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupportedProvider is returned by the registry for unknown
	// provider names.
	ErrUnsupportedProvider = errors.New("unsupported payment provider")

	// ErrInvalidSignature means webhook signature verification failed.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// EventCheckoutCompleted is the provider-neutral type for a completed
// checkout session. Other event types are ignored by the tracker.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutRequest carries everything a provider needs to open a session.
type CheckoutRequest struct {
	ReservationID int64
	Description   string
	// AmountMinor is the total charge in minor currency units.
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	ExpiresAt     time.Time
}

// Session is the provider's handle on a created checkout session.
type Session struct {
	ExternalID  string
	CheckoutURL string
	ExpiresAt   time.Time
}

// Event is a verified, parsed webhook notification.
type Event struct {
	Type       string
	ExternalID string
}

// Provider is the external payment capability: open checkout sessions
// and verify webhook deliveries.
type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	VerifyWebhook(payload []byte, sigHeader string) (*Event, error)
}

// Registry resolves providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		registry.providers[p.Name()] = p
	}
	return registry
}

func (r *Registry) For(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

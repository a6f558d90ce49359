package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusConfirmed PaymentStatus = "confirmed"
	StatusExpired   PaymentStatus = "expired"
	// StatusCancelled is a declared state with no producing transition yet.
	StatusCancelled PaymentStatus = "cancelled"
)

// Payment tracks a checkout session against a reservation. The unique
// reservation_id column backs the one-payment-per-reservation rule.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID            int64         `bun:"id,pk,autoincrement" json:"id"`
	ReservationID int64         `bun:"reservation_id,notnull,unique" json:"reservation_id"`
	Provider      string        `bun:"provider,notnull" json:"provider"`
	Status        PaymentStatus `bun:"status,notnull" json:"status"`
	CheckoutURL   string        `bun:"checkout_url,notnull" json:"checkout_url"`
	ExternalID    string        `bun:"external_id,notnull" json:"external_id"`
	ExpiresAt     time.Time     `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// IsExpired reports the lazily derived expired state. No sweeper marks
// rows expired; readers compare against the clock.
func (p *Payment) IsExpired(now time.Time) bool {
	return p.Status == StatusPending && !p.ExpiresAt.After(now)
}

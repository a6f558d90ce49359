package models

import "time"

// ReservationCreatedEvent is streamed to Kafka after a booking commits.
type ReservationCreatedEvent struct {
	ReservationID int64     `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	TicketCount   int       `json:"ticket_count"`
	TotalPrice    int64     `json:"total_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentStatusEvent is streamed to Kafka on payment state transitions.
type PaymentStatusEvent struct {
	PaymentID     int64         `json:"payment_id"`
	ReservationID int64         `json:"reservation_id"`
	ExternalID    string        `json:"external_id"`
	Status        PaymentStatus `json:"status"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

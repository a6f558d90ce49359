package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Ticket is a booked seat. The unique group on (performance, zone, row,
// seat) is the authoritative double-booking guard; everything above it is
// advisory pre-flight validation.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID            int64 `bun:"id,pk,autoincrement" json:"id"`
	PerformanceID int64 `bun:"performance_id,notnull,unique:uq_performance_seat" json:"performance_id"`
	ZoneID        int64 `bun:"zone_id,notnull,unique:uq_performance_seat" json:"zone_id"`
	Row           int   `bun:"row,notnull,unique:uq_performance_seat" json:"row"`
	Seat          int   `bun:"seat,notnull,unique:uq_performance_seat" json:"seat"`
	// Price is the ZonePrice snapshot taken at booking time, minor units.
	Price         int64 `bun:"price,notnull" json:"price"`
	ReservationID int64 `bun:"reservation_id,notnull" json:"reservation_id"`
}

// TicketDetail is a ticket joined with its play and zone names for
// reservation listings.
type TicketDetail struct {
	ID            int64  `json:"id"`
	PerformanceID int64  `json:"performance_id"`
	PlayTitle     string `json:"play_title"`
	ZoneName      string `json:"zone_name"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
	Price         int64  `json:"price"`
	QRCode        []byte `json:"qr_code,omitempty"`
}

type ReservationWithTickets struct {
	Reservation
	PaymentStatus PaymentStatus  `json:"payment_status,omitempty"`
	Tickets       []TicketDetail `json:"tickets"`
}

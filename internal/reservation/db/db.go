package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"theatre-ticketing/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// ErrDuplicateSeat maps a storage uniqueness violation on
// (performance, zone, row, seat) to the authoritative "seat taken"
// signal.
var ErrDuplicateSeat = errors.New("seat already booked")

type DB struct {
	Bun *bun.DB
}

// CreateReservationWithTickets inserts the reservation and all its
// tickets as one transaction. A duplicate-seat violation rolls the
// whole unit back and returns ErrDuplicateSeat; no partial rows survive
// any failure.
func (d *DB) CreateReservationWithTickets(ctx context.Context, reservation *models.Reservation, tickets []models.Ticket) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(reservation).Exec(ctx); err != nil {
			return err
		}
		for i := range tickets {
			tickets[i].ReservationID = reservation.ID
		}
		if _, err := tx.NewInsert().Model(&tickets).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrDuplicateSeat
	}
	return err
}

// HasPendingPayment reports whether any of the user's reservations has a
// payment in pending status. Expiry is deliberately not considered here;
// it mirrors the strict status check of the booking rule.
func (d *DB) HasPendingPayment(ctx context.Context, userID string) (bool, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Reservation)(nil)).
		Join("JOIN payments AS p ON p.reservation_id = reservation.id").
		Where("reservation.user_id = ?", userID).
		Where("p.status = ?", models.StatusPending).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := d.Bun.NewSelect().
		Model(&reservation).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetReservationsWithTicketsByUser returns the user's reservations,
// newest first, each with its tickets joined against play and zone
// names and the payment status if a payment exists.
func (d *DB) GetReservationsWithTicketsByUser(ctx context.Context, userID string) ([]models.ReservationWithTickets, error) {
	var reservations []models.Reservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return []models.ReservationWithTickets{}, nil
	}

	result := make([]models.ReservationWithTickets, 0, len(reservations))
	for _, reservation := range reservations {
		details, err := d.getTicketDetails(ctx, reservation.ID)
		if err != nil {
			return nil, err
		}

		status, err := d.paymentStatus(ctx, reservation.ID)
		if err != nil {
			return nil, err
		}

		result = append(result, models.ReservationWithTickets{
			Reservation:   reservation,
			PaymentStatus: status,
			Tickets:       details,
		})
	}
	return result, nil
}

func (d *DB) getTicketDetails(ctx context.Context, reservationID int64) ([]models.TicketDetail, error) {
	var details []models.TicketDetail
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr(`ticket.id, ticket.performance_id, ticket."row", ticket.seat, ticket.price`).
		ColumnExpr("p.title AS play_title").
		ColumnExpr("z.name AS zone_name").
		Join("JOIN performances AS perf ON perf.id = ticket.performance_id").
		Join("JOIN plays AS p ON p.id = perf.play_id").
		Join("JOIN zones AS z ON z.id = ticket.zone_id").
		Where("ticket.reservation_id = ?", reservationID).
		Order("ticket.id").
		Scan(ctx, &details)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = []models.TicketDetail{}
	}
	return details, nil
}

func (d *DB) paymentStatus(ctx context.Context, reservationID int64) (models.PaymentStatus, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("reservation_id = ?", reservationID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return payment.Status, nil
}

// isUniqueViolation recognizes unique-constraint failures from both the
// postgres driver and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

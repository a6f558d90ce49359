package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"theatre-ticketing/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned for payment or reservation lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrDuplicatePayment means the one-to-one constraint on
	// reservation_id rejected a second payment row. Concurrent
	// lookup-then-create races end here, never in duplicate rows.
	ErrDuplicatePayment = errors.New("payment already exists for reservation")
)

type DB struct {
	Bun *bun.DB
}

// GetActivePayment returns the reservation's pending, unexpired payment
// for a provider, or ErrNotFound.
func (d *DB) GetActivePayment(ctx context.Context, reservationID int64, providerName string, now time.Time) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("reservation_id = ?", reservationID).
		Where("provider = ?", providerName).
		Where("status = ?", models.StatusPending).
		Where("expires_at > ?", now).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (d *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	_, err := d.Bun.NewInsert().Model(payment).Exec(ctx)
	if isUniqueViolation(err) {
		return ErrDuplicatePayment
	}
	return err
}

func (d *DB) GetPaymentByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (d *DB) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Payment)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// GetReservationForUser loads a reservation scoped to its owner.
func (d *DB) GetReservationForUser(ctx context.Context, reservationID int64, userID string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := d.Bun.NewSelect().
		Model(&reservation).
		Where("id = ?", reservationID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetReservationTotal sums the ticket price snapshots of a reservation,
// in minor units.
func (d *DB) GetReservationTotal(ctx context.Context, reservationID int64) (int64, error) {
	var total sql.NullInt64
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("SUM(price)").
		Where("reservation_id = ?", reservationID).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

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

package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"theatre-ticketing/internal/models"
	"theatre-ticketing/internal/payment/db"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	tables := []interface{}{
		(*models.Reservation)(nil),
		(*models.Ticket)(nil),
		(*models.Payment)(nil),
	}
	for _, model := range tables {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		if err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedReservation(t *testing.T, bunDB *bun.DB, userID string) *models.Reservation {
	reservation := &models.Reservation{UserID: userID, CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(reservation).Exec(context.Background())
	assert.NoError(t, err)
	return reservation
}

func TestCreatePaymentAndDuplicate(t *testing.T) {
	payDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	reservation := seedReservation(t, bunDB, "user123")

	payment := &models.Payment{
		ReservationID: reservation.ID,
		Provider:      "stripe",
		Status:        models.StatusPending,
		CheckoutURL:   "https://checkout.example/s1",
		ExternalID:    "cs_test_1",
		ExpiresAt:     time.Now().Add(30 * time.Minute),
		CreatedAt:     time.Now(),
	}
	err := payDB.CreatePayment(ctx, payment)
	assert.NoError(t, err)
	assert.NotZero(t, payment.ID)

	// A second payment for the same reservation hits the unique
	// constraint even with a different session.
	duplicate := &models.Payment{
		ReservationID: reservation.ID,
		Provider:      "stripe",
		Status:        models.StatusPending,
		CheckoutURL:   "https://checkout.example/s2",
		ExternalID:    "cs_test_2",
		ExpiresAt:     time.Now().Add(30 * time.Minute),
		CreatedAt:     time.Now(),
	}
	err = payDB.CreatePayment(ctx, duplicate)
	assert.ErrorIs(t, err, db.ErrDuplicatePayment)
}

func TestGetActivePayment(t *testing.T) {
	payDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	now := time.Now()
	reservation := seedReservation(t, bunDB, "user123")

	_, err := payDB.GetActivePayment(ctx, reservation.ID, "stripe", now)
	assert.ErrorIs(t, err, db.ErrNotFound)

	payment := &models.Payment{
		ReservationID: reservation.ID,
		Provider:      "stripe",
		Status:        models.StatusPending,
		CheckoutURL:   "https://checkout.example/s1",
		ExternalID:    "cs_test_1",
		ExpiresAt:     now.Add(30 * time.Minute),
		CreatedAt:     now,
	}
	assert.NoError(t, payDB.CreatePayment(ctx, payment))

	active, err := payDB.GetActivePayment(ctx, reservation.ID, "stripe", now)
	assert.NoError(t, err)
	assert.Equal(t, "cs_test_1", active.ExternalID)

	// Past the expiry it no longer counts as active.
	_, err = payDB.GetActivePayment(ctx, reservation.ID, "stripe", now.Add(time.Hour))
	assert.ErrorIs(t, err, db.ErrNotFound)

	// A different provider name never matches.
	_, err = payDB.GetActivePayment(ctx, reservation.ID, "paypal", now)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetActivePaymentIgnoresConfirmed(t *testing.T) {
	payDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	now := time.Now()
	reservation := seedReservation(t, bunDB, "user123")

	payment := &models.Payment{
		ReservationID: reservation.ID,
		Provider:      "stripe",
		Status:        models.StatusConfirmed,
		CheckoutURL:   "https://checkout.example/s1",
		ExternalID:    "cs_test_1",
		ExpiresAt:     now.Add(30 * time.Minute),
		CreatedAt:     now,
	}
	assert.NoError(t, payDB.CreatePayment(ctx, payment))

	_, err := payDB.GetActivePayment(ctx, reservation.ID, "stripe", now)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestUpdatePaymentStatus(t *testing.T) {
	payDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	reservation := seedReservation(t, bunDB, "user123")

	payment := &models.Payment{
		ReservationID: reservation.ID,
		Provider:      "stripe",
		Status:        models.StatusPending,
		CheckoutURL:   "https://checkout.example/s1",
		ExternalID:    "cs_test_1",
		ExpiresAt:     time.Now().Add(30 * time.Minute),
		CreatedAt:     time.Now(),
	}
	assert.NoError(t, payDB.CreatePayment(ctx, payment))

	assert.NoError(t, payDB.UpdatePaymentStatus(ctx, payment.ID, models.StatusConfirmed))

	stored, err := payDB.GetPaymentByExternalID(ctx, "cs_test_1")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestGetReservationForUser(t *testing.T) {
	payDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	reservation := seedReservation(t, bunDB, "user123")

	found, err := payDB.GetReservationForUser(ctx, reservation.ID, "user123")
	assert.NoError(t, err)
	assert.Equal(t, reservation.ID, found.ID)

	_, err = payDB.GetReservationForUser(ctx, reservation.ID, "someone-else")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetReservationTotal(t *testing.T) {
	payDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	reservation := seedReservation(t, bunDB, "user123")

	total, err := payDB.GetReservationTotal(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)

	tickets := []models.Ticket{
		{PerformanceID: 1, ZoneID: 1, Row: 1, Seat: 1, Price: 4500, ReservationID: reservation.ID},
		{PerformanceID: 1, ZoneID: 1, Row: 1, Seat: 2, Price: 3000, ReservationID: reservation.ID},
	}
	_, err = bunDB.NewInsert().Model(&tickets).Exec(ctx)
	assert.NoError(t, err)

	total, err = payDB.GetReservationTotal(ctx, reservation.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(7500), total)
}

package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/models"
	resdb "theatre-ticketing/internal/reservation/db"
	"theatre-ticketing/internal/theatre"
	theatredb "theatre-ticketing/internal/theatre/db"
)

// MaxTicketsPerReservation is the hard cap on one booking request.
const MaxTicketsPerReservation = 10

var (
	// ErrPendingPaymentExists blocks a user who already has a pending
	// payment on another reservation. Expiry of that payment is not
	// considered; only its status.
	ErrPendingPaymentExists = errors.New("user has a pending payment on another reservation")

	// ErrSeatTaken is the conflict surfaced when the storage constraint
	// rejects a duplicate seat at commit time.
	ErrSeatTaken = errors.New("one or more requested seats are already booked")

	// ErrConcurrentRequest means another booking by the same user holds
	// the reservation lock right now.
	ErrConcurrentRequest = errors.New("another reservation request is in progress for this user")
)

type DBLayer interface {
	CreateReservationWithTickets(ctx context.Context, reservation *models.Reservation, tickets []models.Ticket) error
	HasPendingPayment(ctx context.Context, userID string) (bool, error)
	GetReservationsWithTicketsByUser(ctx context.Context, userID string) ([]models.ReservationWithTickets, error)
}

// Catalog is the slice of the availability engine the coordinator needs.
type Catalog interface {
	ZoneByID(ctx context.Context, id int64) (*models.Zone, error)
	ZonePriceFor(ctx context.Context, performanceID, zoneID int64) (*models.ZonePrice, error)
}

// UserLock serializes booking attempts per user to close the
// check-then-act window on the pending-payment rule.
type UserLock interface {
	AcquireUserLock(ctx context.Context, userID string) (bool, error)
	ReleaseUserLock(ctx context.Context, userID string) error
}

// Payments acquires (or reuses) a checkout session for a reservation.
type Payments interface {
	AcquireCheckoutSession(ctx context.Context, reservationID int64, userID, email string) (string, error)
}

type EventPublisher interface {
	PublishReservationCreated(event models.ReservationCreatedEvent) error
}

type Service struct {
	DB       DBLayer
	Catalog  Catalog
	Lock     UserLock
	Payments Payments
	Events   EventPublisher
	Logger   *logger.Logger

	now func() time.Time
}

func NewService(database DBLayer, catalog Catalog, lock UserLock, payments Payments, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:       database,
		Catalog:  catalog,
		Lock:     lock,
		Payments: payments,
		Events:   events,
		Logger:   log,
		now:      time.Now,
	}
}

// Create runs the whole booking state machine: validate every requested
// ticket, check user eligibility, persist reservation plus tickets
// atomically, then trigger checkout-session creation. Validation errors
// abort the whole request with aggregated field detail; a seat conflict
// at commit time surfaces as ErrSeatTaken. A payment-session failure
// after commit does not roll the reservation back - the response carries
// the reservation id and the client retries checkout.
func (s *Service) Create(ctx context.Context, userID, email string, requests []models.TicketRequest) (*models.ReservationResponse, error) {
	tickets, err := s.validateTickets(ctx, requests)
	if err != nil {
		return nil, err
	}

	if s.Lock != nil {
		ok, err := s.Lock.AcquireUserLock(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("user lock: %w", err)
		}
		if !ok {
			return nil, ErrConcurrentRequest
		}
		defer func() {
			if err := s.Lock.ReleaseUserLock(ctx, userID); err != nil {
				s.Logger.Warn("RESERVATION", fmt.Sprintf("Failed to release user lock for %s: %v", userID, err))
			}
		}()
	}

	pending, err := s.DB.HasPendingPayment(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("pending payment check: %w", err)
	}
	if pending {
		return nil, ErrPendingPaymentExists
	}

	reservation := &models.Reservation{
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}

	if err := s.DB.CreateReservationWithTickets(ctx, reservation, tickets); err != nil {
		if errors.Is(err, resdb.ErrDuplicateSeat) {
			return nil, ErrSeatTaken
		}
		return nil, fmt.Errorf("persist reservation: %w", err)
	}

	s.Logger.LogReservation("CREATE", reservation.ID, fmt.Sprintf("%d tickets booked for user %s", len(tickets), userID))

	if s.Events != nil {
		event := models.ReservationCreatedEvent{
			ReservationID: reservation.ID,
			UserID:        userID,
			TicketCount:   len(tickets),
			TotalPrice:    totalPrice(tickets),
			CreatedAt:     reservation.CreatedAt,
		}
		if err := s.Events.PublishReservationCreated(event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish reservation created event: %v", err))
		}
	}

	response := &models.ReservationResponse{ReservationID: reservation.ID}

	checkoutURL, err := s.Payments.AcquireCheckoutSession(ctx, reservation.ID, userID, email)
	if err != nil {
		// The reservation is committed; checkout is retried through the
		// checkout endpoint.
		s.Logger.Error("PAYMENT", fmt.Sprintf("Checkout session for reservation %d failed: %v", reservation.ID, err))
		response.PaymentError = "checkout session could not be created, retry via the checkout endpoint"
		return response, nil
	}
	response.CheckoutURL = checkoutURL

	return response, nil
}

// validateTickets applies the request cap, the zone-offered check and the
// seat-range check per ticket, aggregating field errors. Any error means
// no reservation is created. Prices are snapshotted from the zone offer.
func (s *Service) validateTickets(ctx context.Context, requests []models.TicketRequest) ([]models.Ticket, error) {
	verr := &theatre.ValidationError{}

	if len(requests) == 0 {
		verr.Add(-1, "tickets", "at least one ticket is required")
		return nil, verr
	}
	if len(requests) > MaxTicketsPerReservation {
		verr.Add(-1, "tickets", fmt.Sprintf("cannot add more than %d tickets to one reservation", MaxTicketsPerReservation))
		return nil, verr
	}

	tickets := make([]models.Ticket, 0, len(requests))
	for i, request := range requests {
		price, err := s.Catalog.ZonePriceFor(ctx, request.PerformanceID, request.ZoneID)
		if errors.Is(err, theatre.ErrZoneNotOffered) {
			verr.Add(i, "zone", "zone is not offered for this performance")
			continue
		}
		if err != nil {
			return nil, err
		}

		zone, err := s.Catalog.ZoneByID(ctx, request.ZoneID)
		if errors.Is(err, theatredb.ErrNotFound) {
			verr.Add(i, "zone", "zone does not exist")
			continue
		}
		if err != nil {
			return nil, err
		}

		if seatErr := theatre.ValidateSeatInRange(i, request.Row, request.Seat, zone); seatErr != nil {
			verr.Fields = append(verr.Fields, seatErr.Fields...)
			continue
		}

		tickets = append(tickets, models.Ticket{
			PerformanceID: request.PerformanceID,
			ZoneID:        request.ZoneID,
			Row:           request.Row,
			Seat:          request.Seat,
			Price:         price.TicketPrice,
		})
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return tickets, nil
}

// ListForUser returns the caller's reservations with ticket detail.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.ReservationWithTickets, error) {
	return s.DB.GetReservationsWithTicketsByUser(ctx, userID)
}

func totalPrice(tickets []models.Ticket) int64 {
	var total int64
	for _, ticket := range tickets {
		total += ticket.Price
	}
	return total
}

package theatre

import (
	"context"
	"errors"
	"fmt"

	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/models"
	"theatre-ticketing/internal/theatre/db"
)

// ErrZoneNotOffered means no ZonePrice row links the zone to the
// performance, so the zone is not bookable there.
var ErrZoneNotOffered = errors.New("zone is not offered for this performance")

type DBLayer interface {
	GetZone(ctx context.Context, id int64) (*models.Zone, error)
	GetZonePrice(ctx context.Context, performanceID, zoneID int64) (*models.ZonePrice, error)
	GetOfferedZones(ctx context.Context, performanceID int64) ([]models.Zone, error)
	CountTickets(ctx context.Context, performanceID int64) (int, error)

	GetPlay(ctx context.Context, id int64) (*models.Play, error)
	ListPlays(ctx context.Context) ([]models.Play, error)
	GetActorsForPlay(ctx context.Context, playID int64) ([]models.Actor, error)
	GetGenresForPlay(ctx context.Context, playID int64) ([]models.Genre, error)
	GetPerformance(ctx context.Context, id int64) (*models.Performance, error)
	ListPerformances(ctx context.Context) ([]models.Performance, error)
	GetTheatreHall(ctx context.Context, id int64) (*models.TheatreHall, error)
	GetZonePrices(ctx context.Context, performanceID int64) ([]models.ZonePrice, error)
	GetTicketsForPerformance(ctx context.Context, performanceID int64) ([]models.Ticket, error)
}

// Service is the seat availability engine plus read-only catalog access.
// It never mutates anything.
type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(database DBLayer, log *logger.Logger) *Service {
	return &Service{DB: database, Logger: log}
}

// ZoneByID loads zone geometry for validation.
func (s *Service) ZoneByID(ctx context.Context, id int64) (*models.Zone, error) {
	return s.DB.GetZone(ctx, id)
}

// ZonePriceFor returns the offer for (performance, zone) or
// ErrZoneNotOffered.
func (s *Service) ZonePriceFor(ctx context.Context, performanceID, zoneID int64) (*models.ZonePrice, error) {
	price, err := s.DB.GetZonePrice(ctx, performanceID, zoneID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrZoneNotOffered
	}
	if err != nil {
		return nil, fmt.Errorf("zone price lookup: %w", err)
	}
	return price, nil
}

// ValidateSeatInRange checks a seat coordinate against zone geometry.
// Bounds are inclusive; row and seat are reported independently.
func ValidateSeatInRange(ticketIndex, row, seat int, zone *models.Zone) *ValidationError {
	verr := &ValidationError{}
	if row < 1 || row > zone.Rows {
		verr.Add(ticketIndex, "row", fmt.Sprintf("row must be in range [1, %d], got %d", zone.Rows, row))
	}
	if seat < 1 || seat > zone.SeatsInRow {
		verr.Add(ticketIndex, "seat", fmt.Sprintf("seat must be in range [1, %d], got %d", zone.SeatsInRow, seat))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ComputeAvailable returns total capacity minus booked tickets for a
// performance. Capacity counts each offered zone once even if the join
// produces duplicate rows. A negative result signals corrupt data and is
// returned as-is.
func (s *Service) ComputeAvailable(ctx context.Context, performanceID int64) (int, error) {
	zones, err := s.DB.GetOfferedZones(ctx, performanceID)
	if err != nil {
		return 0, fmt.Errorf("offered zones for performance %d: %w", performanceID, err)
	}

	seen := make(map[int64]bool, len(zones))
	capacity := 0
	for _, zone := range zones {
		if seen[zone.ID] {
			continue
		}
		seen[zone.ID] = true
		capacity += zone.Capacity()
	}

	booked, err := s.DB.CountTickets(ctx, performanceID)
	if err != nil {
		return 0, fmt.Errorf("ticket count for performance %d: %w", performanceID, err)
	}

	return capacity - booked, nil
}

// ---------------- CATALOG READS ----------------

func (s *Service) GetPlayView(ctx context.Context, id int64) (*models.PlayView, error) {
	play, err := s.DB.GetPlay(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildPlayView(ctx, *play)
}

func (s *Service) ListPlayViews(ctx context.Context) ([]models.PlayView, error) {
	plays, err := s.DB.ListPlays(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.PlayView, 0, len(plays))
	for _, play := range plays {
		view, err := s.buildPlayView(ctx, play)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *Service) buildPlayView(ctx context.Context, play models.Play) (*models.PlayView, error) {
	actors, err := s.DB.GetActorsForPlay(ctx, play.ID)
	if err != nil {
		return nil, fmt.Errorf("actors for play %d: %w", play.ID, err)
	}
	genres, err := s.DB.GetGenresForPlay(ctx, play.ID)
	if err != nil {
		return nil, fmt.Errorf("genres for play %d: %w", play.ID, err)
	}

	view := models.PlayView{Play: play, Actors: []string{}, Genres: []string{}}
	for _, actor := range actors {
		view.Actors = append(view.Actors, actor.FullName())
	}
	for _, genre := range genres {
		view.Genres = append(view.Genres, genre.Name)
	}
	return &view, nil
}

func (s *Service) ListPerformanceSummaries(ctx context.Context) ([]models.PerformanceSummary, error) {
	performances, err := s.DB.ListPerformances(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.PerformanceSummary, 0, len(performances))
	for _, performance := range performances {
		summary, err := s.buildSummary(ctx, performance)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

func (s *Service) GetPerformanceDetail(ctx context.Context, id int64) (*models.PerformanceDetail, error) {
	performance, err := s.DB.GetPerformance(ctx, id)
	if err != nil {
		return nil, err
	}

	summary, err := s.buildSummary(ctx, *performance)
	if err != nil {
		return nil, err
	}

	prices, err := s.DB.GetZonePrices(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("zone prices for performance %d: %w", id, err)
	}
	offers := make([]models.ZoneOffer, 0, len(prices))
	for _, price := range prices {
		zone, err := s.DB.GetZone(ctx, price.ZoneID)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", price.ZoneID, err)
		}
		offers = append(offers, models.ZoneOffer{Zone: *zone, TicketPrice: price.TicketPrice})
	}

	tickets, err := s.DB.GetTicketsForPerformance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tickets for performance %d: %w", id, err)
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}

	return &models.PerformanceDetail{
		PerformanceSummary: *summary,
		ZoneOffers:         offers,
		Tickets:            tickets,
	}, nil
}

func (s *Service) buildSummary(ctx context.Context, performance models.Performance) (*models.PerformanceSummary, error) {
	play, err := s.DB.GetPlay(ctx, performance.PlayID)
	if err != nil {
		return nil, fmt.Errorf("play %d: %w", performance.PlayID, err)
	}
	hall, err := s.DB.GetTheatreHall(ctx, performance.TheatreHallID)
	if err != nil {
		return nil, fmt.Errorf("hall %d: %w", performance.TheatreHallID, err)
	}
	available, err := s.ComputeAvailable(ctx, performance.ID)
	if err != nil {
		return nil, err
	}

	return &models.PerformanceSummary{
		ID:               performance.ID,
		PlayTitle:        play.Title,
		TheatreHall:      hall.Name,
		ShowTime:         performance.ShowTime.UTC().Format("2006-01-02T15:04:05Z"),
		AvailableTickets: available,
	}, nil
}

package theatre_test

import (
	"context"
	"errors"
	"testing"

	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/models"
	"theatre-ticketing/internal/theatre"
	"theatre-ticketing/internal/theatre/db"

	"github.com/stretchr/testify/assert"
)

// Mock implementations for testing

type MockTheatreDB struct {
	zones        map[int64]*models.Zone
	prices       map[[2]int64]*models.ZonePrice
	offeredZones []models.Zone
	ticketCount  int
	shouldFailOn string
	errorMsg     string
}

func NewMockTheatreDB() *MockTheatreDB {
	return &MockTheatreDB{
		zones:  make(map[int64]*models.Zone),
		prices: make(map[[2]int64]*models.ZonePrice),
	}
}

func (m *MockTheatreDB) GetZone(_ context.Context, id int64) (*models.Zone, error) {
	if m.shouldFailOn == "GetZone" {
		return nil, errors.New(m.errorMsg)
	}
	zone, ok := m.zones[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return zone, nil
}

func (m *MockTheatreDB) GetZonePrice(_ context.Context, performanceID, zoneID int64) (*models.ZonePrice, error) {
	if m.shouldFailOn == "GetZonePrice" {
		return nil, errors.New(m.errorMsg)
	}
	price, ok := m.prices[[2]int64{performanceID, zoneID}]
	if !ok {
		return nil, db.ErrNotFound
	}
	return price, nil
}

func (m *MockTheatreDB) GetOfferedZones(_ context.Context, _ int64) ([]models.Zone, error) {
	if m.shouldFailOn == "GetOfferedZones" {
		return nil, errors.New(m.errorMsg)
	}
	return m.offeredZones, nil
}

func (m *MockTheatreDB) CountTickets(_ context.Context, _ int64) (int, error) {
	if m.shouldFailOn == "CountTickets" {
		return 0, errors.New(m.errorMsg)
	}
	return m.ticketCount, nil
}

func (m *MockTheatreDB) GetPlay(_ context.Context, _ int64) (*models.Play, error) {
	return nil, db.ErrNotFound
}

func (m *MockTheatreDB) ListPlays(_ context.Context) ([]models.Play, error) {
	return nil, nil
}

func (m *MockTheatreDB) GetActorsForPlay(_ context.Context, _ int64) ([]models.Actor, error) {
	return nil, nil
}

func (m *MockTheatreDB) GetGenresForPlay(_ context.Context, _ int64) ([]models.Genre, error) {
	return nil, nil
}

func (m *MockTheatreDB) GetPerformance(_ context.Context, _ int64) (*models.Performance, error) {
	return nil, db.ErrNotFound
}

func (m *MockTheatreDB) ListPerformances(_ context.Context) ([]models.Performance, error) {
	return nil, nil
}

func (m *MockTheatreDB) GetTheatreHall(_ context.Context, _ int64) (*models.TheatreHall, error) {
	return nil, db.ErrNotFound
}

func (m *MockTheatreDB) GetZonePrices(_ context.Context, _ int64) ([]models.ZonePrice, error) {
	return nil, nil
}

func (m *MockTheatreDB) GetTicketsForPerformance(_ context.Context, _ int64) ([]models.Ticket, error) {
	return nil, nil
}

func newTestService(mockDB *MockTheatreDB) *theatre.Service {
	return theatre.NewService(mockDB, logger.NewLogger())
}

func TestValidateSeatInRange(t *testing.T) {
	zone := &models.Zone{ID: 1, Rows: 5, SeatsInRow: 10}

	// Bounds are inclusive on both ends.
	assert.Nil(t, theatre.ValidateSeatInRange(0, 1, 1, zone))
	assert.Nil(t, theatre.ValidateSeatInRange(0, 5, 10, zone))

	verr := theatre.ValidateSeatInRange(0, 0, 1, zone)
	assert.NotNil(t, verr)
	assert.Len(t, verr.Fields, 1)
	assert.Equal(t, "row", verr.Fields[0].Field)

	verr = theatre.ValidateSeatInRange(0, 6, 1, zone)
	assert.NotNil(t, verr)
	assert.Equal(t, "row", verr.Fields[0].Field)

	verr = theatre.ValidateSeatInRange(2, 1, 11, zone)
	assert.NotNil(t, verr)
	assert.Equal(t, "seat", verr.Fields[0].Field)
	assert.Equal(t, 2, verr.Fields[0].Ticket)
}

func TestValidateSeatInRangeReportsBothFields(t *testing.T) {
	zone := &models.Zone{ID: 1, Rows: 3, SeatsInRow: 4}

	verr := theatre.ValidateSeatInRange(1, 9, 9, zone)
	assert.NotNil(t, verr)
	assert.Len(t, verr.Fields, 2)
}

func TestZonePriceFor(t *testing.T) {
	mockDB := NewMockTheatreDB()
	mockDB.prices[[2]int64{1, 1}] = &models.ZonePrice{ZoneID: 1, PerformanceID: 1, TicketPrice: 3000}
	service := newTestService(mockDB)

	price, err := service.ZonePriceFor(context.Background(), 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(3000), price.TicketPrice)

	_, err = service.ZonePriceFor(context.Background(), 1, 2)
	assert.ErrorIs(t, err, theatre.ErrZoneNotOffered)
}

func TestComputeAvailable(t *testing.T) {
	mockDB := NewMockTheatreDB()
	mockDB.offeredZones = []models.Zone{
		{ID: 1, Rows: 10, SeatsInRow: 20},
		{ID: 2, Rows: 5, SeatsInRow: 10},
	}
	mockDB.ticketCount = 30
	service := newTestService(mockDB)

	available, err := service.ComputeAvailable(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 220, available)
}

func TestComputeAvailableDeduplicatesZones(t *testing.T) {
	mockDB := NewMockTheatreDB()
	// The join can repeat a zone row; capacity must count it once.
	mockDB.offeredZones = []models.Zone{
		{ID: 1, Rows: 10, SeatsInRow: 20},
		{ID: 1, Rows: 10, SeatsInRow: 20},
	}
	service := newTestService(mockDB)

	available, err := service.ComputeAvailable(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 200, available)
}

func TestComputeAvailableNegative(t *testing.T) {
	mockDB := NewMockTheatreDB()
	mockDB.offeredZones = []models.Zone{{ID: 1, Rows: 2, SeatsInRow: 2}}
	mockDB.ticketCount = 7
	service := newTestService(mockDB)

	// Corrupt data is surfaced, not clamped.
	available, err := service.ComputeAvailable(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, -3, available)
}

func TestComputeAvailableError(t *testing.T) {
	mockDB := NewMockTheatreDB()
	mockDB.shouldFailOn = "GetOfferedZones"
	mockDB.errorMsg = "db down"
	service := newTestService(mockDB)

	_, err := service.ComputeAvailable(context.Background(), 1)
	assert.Error(t, err)
}

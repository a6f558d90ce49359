package db

import (
	"context"
	"database/sql"
	"errors"

	"theatre-ticketing/internal/models"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned for catalog lookups that miss.
var ErrNotFound = errors.New("not found")

type DB struct {
	Bun *bun.DB
}

// ---------------- ZONES & PRICING ----------------

func (d *DB) GetZone(ctx context.Context, id int64) (*models.Zone, error) {
	var zone models.Zone
	err := d.Bun.NewSelect().
		Model(&zone).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// GetZonePrice returns the offer linking a zone to a performance, or
// ErrNotFound when the zone is not offered for that performance.
func (d *DB) GetZonePrice(ctx context.Context, performanceID, zoneID int64) (*models.ZonePrice, error) {
	var price models.ZonePrice
	err := d.Bun.NewSelect().
		Model(&price).
		Where("performance_id = ?", performanceID).
		Where("zone_id = ?", zoneID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// GetOfferedZones returns the zones priced for a performance. Rows may
// repeat if join data is dirty; callers deduplicate by zone ID before
// summing capacity.
func (d *DB) GetOfferedZones(ctx context.Context, performanceID int64) ([]models.Zone, error) {
	var zones []models.Zone
	err := d.Bun.NewSelect().
		Model(&zones).
		Join("JOIN zone_prices AS zp ON zp.zone_id = zone.id").
		Where("zp.performance_id = ?", performanceID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// CountTickets returns the number of distinct booked seats for a
// performance. Tickets are unique per seat, so a plain count is already
// distinct.
func (d *DB) CountTickets(ctx context.Context, performanceID int64) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("performance_id = ?", performanceID).
		Count(ctx)
}

// ---------------- CATALOG ----------------

func (d *DB) GetPlay(ctx context.Context, id int64) (*models.Play, error) {
	var play models.Play
	err := d.Bun.NewSelect().
		Model(&play).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &play, nil
}

func (d *DB) ListPlays(ctx context.Context) ([]models.Play, error) {
	var plays []models.Play
	err := d.Bun.NewSelect().
		Model(&plays).
		Order("title").
		Scan(ctx)
	return plays, err
}

func (d *DB) GetActorsForPlay(ctx context.Context, playID int64) ([]models.Actor, error) {
	var actors []models.Actor
	err := d.Bun.NewSelect().
		Model(&actors).
		Join("JOIN play_actors AS pa ON pa.actor_id = actor.id").
		Where("pa.play_id = ?", playID).
		Order("actor.last_name").
		Scan(ctx)
	return actors, err
}

func (d *DB) GetGenresForPlay(ctx context.Context, playID int64) ([]models.Genre, error) {
	var genres []models.Genre
	err := d.Bun.NewSelect().
		Model(&genres).
		Join("JOIN play_genres AS pg ON pg.genre_id = genre.id").
		Where("pg.play_id = ?", playID).
		Order("genre.name").
		Scan(ctx)
	return genres, err
}

func (d *DB) GetPerformance(ctx context.Context, id int64) (*models.Performance, error) {
	var performance models.Performance
	err := d.Bun.NewSelect().
		Model(&performance).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &performance, nil
}

func (d *DB) ListPerformances(ctx context.Context) ([]models.Performance, error) {
	var performances []models.Performance
	err := d.Bun.NewSelect().
		Model(&performances).
		Order("show_time").
		Scan(ctx)
	return performances, err
}

func (d *DB) GetTheatreHall(ctx context.Context, id int64) (*models.TheatreHall, error) {
	var hall models.TheatreHall
	err := d.Bun.NewSelect().
		Model(&hall).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hall, nil
}

// GetZonePrices returns all offers for a performance with zone geometry.
func (d *DB) GetZonePrices(ctx context.Context, performanceID int64) ([]models.ZonePrice, error) {
	var prices []models.ZonePrice
	err := d.Bun.NewSelect().
		Model(&prices).
		Where("performance_id = ?", performanceID).
		Order("zone_id").
		Scan(ctx)
	return prices, err
}

// GetTicketsForPerformance returns the booked seats of a performance.
func (d *DB) GetTicketsForPerformance(ctx context.Context, performanceID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("performance_id = ?", performanceID).
		Order("zone_id", "row", "seat").
		Scan(ctx)
	return tickets, err
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Actor struct {
	bun.BaseModel `bun:"table:actors"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	FirstName string `bun:"first_name,notnull" json:"first_name"`
	LastName  string `bun:"last_name,notnull" json:"last_name"`
}

func (a Actor) FullName() string {
	return a.FirstName + " " + a.LastName
}

type Genre struct {
	bun.BaseModel `bun:"table:genres"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

type Play struct {
	bun.BaseModel `bun:"table:plays"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Title       string `bun:"title,notnull" json:"title"`
	Description string `bun:"description,nullzero" json:"description,omitempty"`
}

// PlayActor and PlayGenre are the many-to-many join rows. Queries go
// through explicit joins, not bun relations.
type PlayActor struct {
	bun.BaseModel `bun:"table:play_actors"`

	PlayID  int64 `bun:"play_id,notnull" json:"play_id"`
	ActorID int64 `bun:"actor_id,notnull" json:"actor_id"`
}

type PlayGenre struct {
	bun.BaseModel `bun:"table:play_genres"`

	PlayID  int64 `bun:"play_id,notnull" json:"play_id"`
	GenreID int64 `bun:"genre_id,notnull" json:"genre_id"`
}

type TheatreHall struct {
	bun.BaseModel `bun:"table:theatre_halls"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

// Zone is a rectangular seating block within a hall. Valid seat
// coordinates are row in [1, Rows], seat in [1, SeatsInRow].
type Zone struct {
	bun.BaseModel `bun:"table:zones"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	Name          string `bun:"name,notnull,unique:uq_zone_name_hall" json:"name"`
	TheatreHallID int64  `bun:"theatre_hall_id,notnull,unique:uq_zone_name_hall" json:"theatre_hall_id"`
	Rows          int    `bun:"rows,notnull" json:"rows"`
	SeatsInRow    int    `bun:"seats_in_row,notnull" json:"seats_in_row"`
}

func (z Zone) Capacity() int {
	return z.Rows * z.SeatsInRow
}

type Performance struct {
	bun.BaseModel `bun:"table:performances"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	PlayID        int64     `bun:"play_id,notnull" json:"play_id"`
	TheatreHallID int64     `bun:"theatre_hall_id,notnull" json:"theatre_hall_id"`
	ShowTime      time.Time `bun:"show_time,notnull" json:"show_time"`
}

// ZonePrice offers a zone for a performance at a price. A zone without a
// ZonePrice row is not bookable for that performance. Price is in minor
// currency units.
type ZonePrice struct {
	bun.BaseModel `bun:"table:zone_prices"`

	ID            int64 `bun:"id,pk,autoincrement" json:"id"`
	ZoneID        int64 `bun:"zone_id,notnull,unique:uq_zone_performance" json:"zone_id"`
	PerformanceID int64 `bun:"performance_id,notnull,unique:uq_zone_performance" json:"performance_id"`
	TicketPrice   int64 `bun:"ticket_price,notnull" json:"ticket_price"`
}

package models

// TicketRequest is one requested seat inside a booking request.
type TicketRequest struct {
	PerformanceID int64 `json:"performance_id"`
	ZoneID        int64 `json:"zone_id"`
	Row           int   `json:"row"`
	Seat          int   `json:"seat"`
}

type ReservationRequest struct {
	Tickets []TicketRequest `json:"tickets"`
}

type ReservationResponse struct {
	ReservationID int64  `json:"reservation_id"`
	CheckoutURL   string `json:"checkout_url,omitempty"`
	// PaymentError is set when the reservation was created but the
	// checkout session could not be; the client retries via the
	// checkout endpoint.
	PaymentError string `json:"payment_error,omitempty"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// PerformanceSummary is a performance row decorated for listings.
type PerformanceSummary struct {
	ID               int64  `json:"id"`
	PlayTitle        string `json:"play_title"`
	TheatreHall      string `json:"theatre_hall"`
	ShowTime         string `json:"show_time"`
	AvailableTickets int    `json:"available_tickets"`
}

// ZoneOffer pairs a zone's geometry with its price for one performance.
type ZoneOffer struct {
	Zone        Zone  `json:"zone"`
	TicketPrice int64 `json:"ticket_price"`
}

type PerformanceDetail struct {
	PerformanceSummary
	ZoneOffers []ZoneOffer `json:"zone_prices"`
	Tickets    []Ticket    `json:"tickets"`
}

type PlayView struct {
	Play
	Actors []string `json:"actors"`
	Genres []string `json:"genres"`
}

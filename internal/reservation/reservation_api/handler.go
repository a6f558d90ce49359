package reservation_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"theatre-ticketing/internal/auth"
	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/models"
	"theatre-ticketing/internal/reservation"
	"theatre-ticketing/internal/theatre"
	"theatre-ticketing/internal/tickets/qr"
	"theatre-ticketing/internal/utils"
)

// Handler exposes booking and reservation listing for the
// authenticated user.
type Handler struct {
	Service     *reservation.Service
	QRGenerator *qr.QRGenerator
	Logger      *logger.Logger
}

func NewHandler(service *reservation.Service, qrGen *qr.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{Service: service, QRGenerator: qrGen, Logger: log}
}

// CreateReservation books the requested seats for the caller and
// returns the reservation id plus a checkout URL.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	email := auth.UserEmail(r.Context())

	var req models.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	response, err := h.Service.Create(r.Context(), userID, email, req.Tickets)
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Reservation created", response))
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error) {
	var verr *theatre.ValidationError
	if errors.As(err, &verr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(verr)
		return
	}

	switch {
	case errors.Is(err, reservation.ErrPendingPaymentExists):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Reservation rejected", err.Error()))
	case errors.Is(err, reservation.ErrSeatTaken):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Seat conflict", err.Error()))
	case errors.Is(err, reservation.ErrConcurrentRequest):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Request in progress", err.Error()))
	default:
		h.Logger.Error("API", "Failed to create reservation: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to create reservation", err.Error()))
	}
}

// ListReservations returns the caller's reservations, newest first.
// Tickets of paid reservations carry an encrypted QR code.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reservations, err := h.Service.ListForUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", "Failed to list reservations: "+err.Error())
		http.Error(w, "Failed to fetch reservations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.attachQRCodes(reservations)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reservations)
}

func (h *Handler) attachQRCodes(reservations []models.ReservationWithTickets) {
	if h.QRGenerator == nil {
		return
	}
	for i := range reservations {
		if reservations[i].PaymentStatus != models.StatusConfirmed {
			continue
		}
		for j := range reservations[i].Tickets {
			detail := &reservations[i].Tickets[j]
			code, err := h.QRGenerator.GenerateEncryptedQR(models.Ticket{
				ID:            detail.ID,
				PerformanceID: detail.PerformanceID,
				Row:           detail.Row,
				Seat:          detail.Seat,
				ReservationID: reservations[i].ID,
			})
			if err != nil {
				h.Logger.Warn("API", fmt.Sprintf("QR generation for ticket %d failed: %v", detail.ID, err))
				continue
			}
			detail.QRCode = code
		}
	}
}

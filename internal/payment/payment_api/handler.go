package payment_api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"theatre-ticketing/internal/auth"
	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/models"
	"theatre-ticketing/internal/payment"
	"theatre-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Stripe caps webhook payloads at 64KB; anything larger is not ours.
const maxWebhookBodyBytes = 65536

type Handler struct {
	Service *payment.Service
	Logger  *logger.Logger
}

func NewHandler(service *payment.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// Checkout returns the checkout URL for a reservation, creating the
// provider session if no live one exists.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reservationID, err := strconv.ParseInt(chi.URLParam(r, "reservationID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid reservation id", http.StatusBadRequest)
		return
	}

	checkoutURL, err := h.Service.AcquireCheckoutSession(r.Context(), reservationID, userID, auth.UserEmail(r.Context()))
	switch {
	case errors.Is(err, payment.ErrReservationNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Reservation not found", err.Error()))
		return
	case errors.Is(err, payment.ErrProvider):
		h.Logger.Error("PAYMENT", "Provider call failed: "+err.Error())
		utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse("Payment provider unavailable", err.Error()))
		return
	case err != nil:
		h.Logger.Error("PAYMENT", "Checkout failed: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to create checkout session", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CheckoutResponse{CheckoutURL: checkoutURL})
}

// Webhook receives provider notifications. The raw body is needed for
// signature verification, so it is read before any decoding.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes+1))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(payload) > maxWebhookBodyBytes {
		http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.Service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		var webhookErr *payment.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Error("WEBHOOK", webhookErr.InternalError)
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}
		h.Logger.Error("WEBHOOK", "Webhook processing failed: "+err.Error())
		http.Error(w, "Webhook processing error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

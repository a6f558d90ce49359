package theatre_api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"theatre-ticketing/internal/logger"
	"theatre-ticketing/internal/theatre"
	"theatre-ticketing/internal/theatre/db"

	"github.com/go-chi/chi/v5"
)

// Handler serves the read-only catalog: plays and performances with
// availability.
type Handler struct {
	Service *theatre.Service
	Logger  *logger.Logger
}

func NewHandler(service *theatre.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) ListPlays(w http.ResponseWriter, r *http.Request) {
	plays, err := h.Service.ListPlayViews(r.Context())
	if err != nil {
		h.Logger.Error("API", "Failed to list plays: "+err.Error())
		http.Error(w, "Failed to fetch plays: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plays)
}

func (h *Handler) GetPlay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "playID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid play id", http.StatusBadRequest)
		return
	}

	play, err := h.Service.GetPlayView(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Play not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", "Failed to fetch play: "+err.Error())
		http.Error(w, "Failed to fetch play: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(play)
}

func (h *Handler) ListPerformances(w http.ResponseWriter, r *http.Request) {
	performances, err := h.Service.ListPerformanceSummaries(r.Context())
	if err != nil {
		h.Logger.Error("API", "Failed to list performances: "+err.Error())
		http.Error(w, "Failed to fetch performances: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(performances)
}

func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "performanceID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid performance id", http.StatusBadRequest)
		return
	}

	detail, err := h.Service.GetPerformanceDetail(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Performance not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", "Failed to fetch performance: "+err.Error())
		http.Error(w, "Failed to fetch performance: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/repository"
	"github.com/gorilla/mux"
)

type HistoryHandler struct {
	repo repository.HistoryRepository
	log  logger.Logger
}

type HistoryResponse struct {
	Conversions []models.ConversionRecord `json:"conversions"`
}

func NewHistoryHandler(repo repository.HistoryRepository, log logger.Logger) *HistoryHandler {
	return &HistoryHandler{repo: repo, log: log}
}

func (h *HistoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/history", h.List).Methods("GET")
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondWithError(w, http.StatusNotFound, "Conversion history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.log.Warn("Invalid history limit", logger.StringField("limit", raw))
			respondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to list conversion history", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list conversion history")
		return
	}
	if records == nil {
		records = []models.ConversionRecord{}
	}
	respondWithJSON(w, http.StatusOK, HistoryResponse{Conversions: records})
}

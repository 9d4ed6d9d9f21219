package handler

import (
	"net/http"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/gorilla/mux"
)

type CurrencyHandler struct {
	catalog *usecase.Catalog
	log     logger.Logger
}

type CurrenciesResponse struct {
	Currencies []models.CurrencyOption `json:"currencies"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Currencies int    `json:"currencies"`
	Sessions   int    `json:"sessions"`
}

func NewCurrencyHandler(catalog *usecase.Catalog, log logger.Logger) *CurrencyHandler {
	return &CurrencyHandler{catalog: catalog, log: log}
}

func (h *CurrencyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/currencies", h.List).Methods("GET")
}

// List returns the catalog, filtered by the q query parameter. An empty
// list means the catalog failed to load.
func (h *CurrencyHandler) List(w http.ResponseWriter, r *http.Request) {
	options := h.catalog.Search(r.URL.Query().Get("q"))
	respondWithJSON(w, http.StatusOK, CurrenciesResponse{Currencies: options})
}

// Health reports "degraded" while the catalog is empty, since every
// currency selection is rejected then.
func Health(catalog *usecase.Catalog, sessions *usecase.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:     "ok",
			Currencies: catalog.Len(),
			Sessions:   sessions.Len(),
		}
		code := http.StatusOK
		if resp.Currencies == 0 {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		respondWithJSON(w, code, resp)
	}
}

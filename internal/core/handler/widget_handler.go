package handler

import (
	"net/http"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/Nzyazin/fxwidget/internal/core/view"
	"github.com/gorilla/mux"
)

type WidgetHandler struct {
	sessions *usecase.SessionStore
	renderer *view.Renderer
	log      logger.Logger
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type CurrencyRequest struct {
	Currency string `json:"currency"`
}

func NewWidgetHandler(sessions *usecase.SessionStore, renderer *view.Renderer, log logger.Logger) *WidgetHandler {
	return &WidgetHandler{sessions: sessions, renderer: renderer, log: log}
}

func (h *WidgetHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/widgets", h.Create).Methods("POST")
	router.HandleFunc("/api/v1/widgets/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/v1/widgets/{id}", h.Delete).Methods("DELETE")
	router.HandleFunc("/api/v1/widgets/{id}/amount", h.SetAmount).Methods("PUT")
	router.HandleFunc("/api/v1/widgets/{id}/from", h.SetFrom).Methods("PUT")
	router.HandleFunc("/api/v1/widgets/{id}/to", h.SetTo).Methods("PUT")
	router.HandleFunc("/api/v1/widgets/{id}/swap", h.Swap).Methods("POST")
}

func (h *WidgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	widget := h.sessions.Create()
	respondWithJSON(w, http.StatusCreated, h.renderer.Render(widget.Snapshot()))
}

func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	widget, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, h.renderer.Render(widget.Snapshot()))
}

func (h *WidgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := widgetID(r)
	if err == nil {
		err = h.sessions.Delete(id)
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WidgetHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	widget, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req AmountRequest
	if err := decodeBody(w, r, h.log, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.renderer.Render(widget.SetAmount(req.Amount)))
}

func (h *WidgetHandler) SetFrom(w http.ResponseWriter, r *http.Request) {
	h.selectCurrency(w, r, (*usecase.Widget).SetFrom)
}

func (h *WidgetHandler) SetTo(w http.ResponseWriter, r *http.Request) {
	h.selectCurrency(w, r, (*usecase.Widget).SetTo)
}

func (h *WidgetHandler) Swap(w http.ResponseWriter, r *http.Request) {
	widget, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, h.renderer.Render(widget.Swap()))
}

func (h *WidgetHandler) selectCurrency(w http.ResponseWriter, r *http.Request, set func(*usecase.Widget, string) (usecase.WidgetSnapshot, error)) {
	widget, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req CurrencyRequest
	if err := decodeBody(w, r, h.log, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	snap, err := set(widget, req.Currency)
	if err != nil {
		h.handleError(w, r, err, logger.StringField("currency", req.Currency))
		return
	}
	respondWithJSON(w, http.StatusOK, h.renderer.Render(snap))
}

func (h *WidgetHandler) lookup(w http.ResponseWriter, r *http.Request) (*usecase.Widget, bool) {
	id, err := widgetID(r)
	if err != nil {
		h.handleError(w, r, err)
		return nil, false
	}
	widget, err := h.sessions.Get(id)
	if err != nil {
		h.handleError(w, r, err)
		return nil, false
	}
	return widget, true
}

func (h *WidgetHandler) handleError(w http.ResponseWriter, r *http.Request, err error, fields ...logger.Field) {
	code, message := statusFor(err)
	fields = append(fields,
		logger.StringField("path", r.URL.Path),
		logger.ErrorField("error", err),
	)
	if code >= http.StatusInternalServerError {
		h.log.Error("Failed to process widget request", fields...)
	} else {
		h.log.Warn(message, fields...)
	}
	respondWithError(w, code, message)
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

var errInvalidPayload = errors.New("invalid request payload")

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error"}`)) // Fallback response
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func decodeBody(w http.ResponseWriter, r *http.Request, log logger.Logger, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		return errInvalidPayload
	}
	return nil
}

func widgetID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", usecase.ErrWidgetNotFound, mux.Vars(r)["id"])
	}
	return id, nil
}

// statusFor maps usecase errors onto HTTP status codes and client messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrWidgetNotFound):
		return http.StatusNotFound, "Widget not found"
	case errors.Is(err, usecase.ErrUnknownCurrency):
		return http.StatusBadRequest, "Unknown currency"
	case errors.Is(err, usecase.ErrCatalogUnavailable):
		return http.StatusConflict, "Currency list unavailable"
	case errors.Is(err, errInvalidPayload):
		return http.StatusBadRequest, "Invalid request payload"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

package middleware

import (
	"net/http"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
)

type ErrorHandler struct {
	handler http.Handler
	log     logger.Logger
}

func WithErrorHandler(log logger.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return &ErrorHandler{handler: h, log: log}
	}
}

// ServeHTTP turns a panic in a widget or currency handler into a JSON 500.
func (eh *ErrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			eh.log.Error("request processing failed",
				logger.StringField("method", r.Method),
				logger.StringField("path", r.URL.Path),
				logger.AnyField("error", err),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Internal Server Error"}`))
		}
	}()

	eh.handler.ServeHTTP(w, r)
}

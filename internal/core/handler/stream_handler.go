package handler

import (
	"net/http"
	"time"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/Nzyazin/fxwidget/internal/core/view"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes the widget view over a websocket every time the
// widget state changes.
type StreamHandler struct {
	sessions *usecase.SessionStore
	renderer *view.Renderer
	log      logger.Logger
}

func NewStreamHandler(sessions *usecase.SessionStore, renderer *view.Renderer, log logger.Logger) *StreamHandler {
	return &StreamHandler{sessions: sessions, renderer: renderer, log: log}
}

func (h *StreamHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/widgets/{id}/stream", h.Stream).Methods("GET")
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, err := widgetID(r)
	if err != nil {
		code, message := statusFor(err)
		respondWithError(w, code, message)
		return
	}
	widget, err := h.sessions.Get(id)
	if err != nil {
		code, message := statusFor(err)
		respondWithError(w, code, message)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", logger.ErrorField("error", err))
		return
	}
	defer conn.Close()

	signals, unsubscribe := widget.Subscribe()
	defer unsubscribe()

	widgetField := logger.StringField("widget_id", id.String())
	h.log.Info("Widget stream opened", widgetField)

	closed := make(chan struct{})
	go h.readPump(conn, widget, closed, widgetField)

	if err := h.push(conn, widget); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.log.Info("Widget stream closed by client", widgetField)
			return
		case _, ok := <-signals:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "widget closed"))
				h.log.Info("Widget stream ended with session", widgetField)
				return
			}
			if err := h.push(conn, widget); err != nil {
				h.log.Warn("Failed to push widget view", widgetField, logger.ErrorField("error", err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) push(conn *websocket.Conn, widget *usecase.Widget) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(h.renderer.Render(widget.Snapshot()))
}

// readPump keeps the session alive while the client is connected and
// closes done when the connection goes away. Incoming messages are ignored.
func (h *StreamHandler) readPump(conn *websocket.Conn, widget *usecase.Widget, done chan<- struct{}, widgetField logger.Field) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		widget.Touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn("WebSocket error", widgetField, logger.ErrorField("error", err))
			}
			return
		}
		widget.Touch()
	}
}

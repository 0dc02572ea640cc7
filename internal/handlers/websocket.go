package handlers

import (
	"context"
	"net/http"
	"time"

	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"

	"github.com/gorilla/websocket"
)

const (
	wsPathPrefix   = "/ws/session/"
	wsReadLimit    = 64 * 1024
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingPeriod   = 30 * time.Second
)

// socketMessage описывает кадр, отправляемый клиенту
type socketMessage struct {
	Type    string              `json:"type"`
	View    *models.SessionView `json:"view,omitempty"`
	Message string              `json:"message,omitempty"`
}

// SessionSocketHandler держит WebSocket-соединение сессии и отправляет представление
// при подключении, при каждом изменении сессии и при каждом новом снимке заказов
type SessionSocketHandler struct {
	sessions SessionProvider
	views    *SessionViews
	feed     OrderFeed
	location *time.Location
	upgrader websocket.Upgrader
	log      *logger.Logger
	timeout  time.Duration
}

// NewSessionSocketHandler создает обработчик WebSocket; allowedOrigins с "*" разрешает любой Origin
func NewSessionSocketHandler(sessions SessionProvider, views *SessionViews, feed OrderFeed, location *time.Location, log *logger.Logger, allowedOrigins []string) *SessionSocketHandler {
	return &SessionSocketHandler{
		sessions: sessions,
		views:    views,
		feed:     feed,
		location: location,
		log:      log,
		timeout:  defaultRequestTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Connect обрабатывает GET /ws/session/{id}
func (h *SessionSocketHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, suffix, err := extractSessionID(r.URL.Path, wsPathPrefix)
	if err != nil || suffix != "" {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid session path")
		return
	}

	sc, err := h.sessions.Open(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load session")
		return
	}
	defer h.sessions.Release(sc)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).WithField("session_id", id).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	entry := h.log.WithField("session_id", id)
	entry.Info("Session socket connected")
	defer entry.Info("Session socket disconnected")

	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	unsubscribeSession := sc.Subscribe(func(models.SessionState) { notify() })
	defer unsubscribeSession()
	unsubscribeFeed := h.feed.Subscribe(func(*models.Snapshot) { notify() })
	defer unsubscribeFeed()

	intents := make(chan IntentRequest)
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go h.readLoop(conn, intents, done, stop)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	if err := h.push(conn, sc.State()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case req := <-intents:
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			err := ApplyIntent(ctx, sc, &req, h.location)
			cancel()
			if err != nil {
				if werr := h.write(conn, socketMessage{Type: "error", Message: err.Error()}); werr != nil {
					return
				}
			}
		case <-changed:
			if err := h.push(conn, sc.State()); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop читает намерения клиента до ошибки чтения
func (h *SessionSocketHandler) readLoop(conn *websocket.Conn, intents chan<- IntentRequest, done chan<- struct{}, stop <-chan struct{}) {
	defer close(done)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		var req IntentRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WithError(err).Debug("Session socket read failed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		select {
		case intents <- req:
		case <-stop:
			return
		}
	}
}

func (h *SessionSocketHandler) push(conn *websocket.Conn, state models.SessionState) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	view, err := h.views.Build(ctx, state)
	if err != nil {
		view = &models.SessionView{Session: state, Error: err.Error()}
	}
	return h.write(conn, socketMessage{Type: "view", View: view})
}

func (h *SessionSocketHandler) write(conn *websocket.Conn, msg socketMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.WithError(err).Debug("Session socket write failed")
		return err
	}
	return nil
}

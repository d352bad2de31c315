package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/numerix/numerix-backend/internal/response"
	"github.com/numerix/numerix-backend/internal/service"
)

const (
	clockTickInterval = time.Second
	clockWriteTimeout = 5 * time.Second
)

// clockTick is one frame of the countdown stream. The server clock is the
// only authority - clients render these values, they never compute expiry.
type clockTick struct {
	RemainingSeconds int       `json:"remaining_seconds"`
	ExpiresAt        time.Time `json:"expires_at"`
	ServerTime       time.Time `json:"server_time"`
	Completed        bool      `json:"completed"`
}

// ClockHandler streams the authoritative exam countdown over a WebSocket.
type ClockHandler struct {
	sessions *service.ExamSessionService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewClockHandler creates a new ClockHandler. An empty origins list permits
// any origin (dev default).
func NewClockHandler(sessions *service.ExamSessionService, allowedOrigins []string, log zerolog.Logger) *ClockHandler {
	return &ClockHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.With().Str("component", "clock_handler").Logger(),
	}
}

// Serve handles GET /ws/v1/exam/sessions/:id/clock.
func (h *ClockHandler) Serve(c *gin.Context) {
	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	session, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if session.Completed() {
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		h.log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain reads so client close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(clockTickInterval)
	defer ticker.Stop()

	expiresAt := session.ExpiresAt
	for {
		now := time.Now()
		remaining := int(expiresAt.Sub(now) / time.Second)
		if remaining < 0 {
			remaining = 0
		}

		tick := clockTick{
			RemainingSeconds: remaining,
			ExpiresAt:        expiresAt,
			ServerTime:       now,
			Completed:        remaining == 0,
		}

		conn.SetWriteDeadline(time.Now().Add(clockWriteTimeout))
		if err := conn.WriteJSON(tick); err != nil {
			return
		}

		if remaining == 0 {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "time expired"))
			return
		}

		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// originChecker builds the upgrade origin policy from the configured list.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	permitted := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		permitted[origin] = true
	}
	return func(r *http.Request) bool {
		return permitted[r.Header.Get("Origin")]
	}
}

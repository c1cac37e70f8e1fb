package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/bookings"
	"github.com/iliyamo/sup-parking/internal/middleware"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/spots"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes live snapshots over WebSocket.  Each connection owns
// one subscription, released when the connection ends.
type StreamHandler struct {
	Directory *spots.Directory
	Ledger    *bookings.Ledger
	Now       func() time.Time
}

// NewStreamHandler returns a handler streaming spot snapshots from d and
// booking snapshots from l.
func NewStreamHandler(d *spots.Directory, l *bookings.Ledger) *StreamHandler {
	return &StreamHandler{Directory: d, Ledger: l, Now: time.Now}
}

// SpotStream sends the full spot list grouped by floor on every change.
func (h *StreamHandler) SpotStream(c echo.Context) error {
	sub, err := h.Directory.Subscribe(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return nil
	}
	pump(conn, sub.Updates(), floorsResp)
	return nil
}

// BookingStream sends the caller's bookings, newest first, on every
// change.
func (h *StreamHandler) BookingStream(c echo.Context) error {
	sub, err := h.Ledger.Subscribe(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return nil
	}
	pump(conn, sub.Updates(), func(list []model.Booking) echo.Map {
		return echo.Map{"bookings": bookingsOut(list, h.Now())}
	})
	return nil
}

// pump writes every update as a JSON text message and pings the peer until
// the update channel closes or the peer goes away.
func pump[T, M any](conn *websocket.Conn, updates <-chan T, render func(T) M) {
	defer conn.Close()
	gone := readPump(conn)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case v, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(render(v)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
// The returned channel is closed when the connection fails.
func readPump(conn *websocket.Conn) <-chan struct{} {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()
	return gone
}

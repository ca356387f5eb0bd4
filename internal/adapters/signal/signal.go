// Package signal is the websocket adapter binding connections to
// session groups and dispatching channel events.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/config"
	"github.com/tavernkeep/tavern/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Coord      *app.Coordinator
	readLimit  int64
	pingPeriod time.Duration
}

func NewController(coord *app.Coordinator, cfg *config.Config) *Controller {
	return &Controller{
		Coord:      coord,
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
	}
}

// WsConn is one upgraded connection. Writes funnel through the send
// channel so each recipient sees one sender's frames in send order.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it
// drops. Each connection gets a fresh transient channel identifier; it
// stays Unbound until a join event names a session and a role.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	cid := core.ChannelID(uuid.NewString())
	log.Info().Str("module", "signal").Str("channel", string(cid)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Registry.Track(cid, conn, cancel)

	go ctl.writePump(ctx, conn)
	ctl.readPump(ctx, cid, conn)
}

func (ctl *Controller) sendJSON(conn *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = conn.TrySend(b)
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (ctl *Controller) sendError(conn *WsConn, msg string) {
	ctl.sendJSON(conn, errorEvent{Type: "error", Error: msg})
}

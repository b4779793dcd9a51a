package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Cast/internal/app/orch"
	"github.com/dkeye/Cast/internal/config"
	"github.com/dkeye/Cast/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SignalWSController is the message router. It owns no state of its own
// beyond the rate limiter: everything shared lives behind Orch.
type SignalWSController struct {
	Orch *orch.Orchestrator

	cfg      *config.Config
	limiter  *RateLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:    o,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateInterval),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsSignalConn struct {
	conn      *websocket.Conn
	send      chan core.Frame
	writeWait time.Duration

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait))
}

// markClosed stops further sends. It reports whether this call did it.
func (c *wsSignalConn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

func (c *wsSignalConn) Close() {
	c.markClosed()
	_ = c.conn.Close()
}

// Shutdown sends a normal-closure frame and leaves the socket open for the
// peer's reply; the read pump or a writeWait timer closes it.
func (c *wsSignalConn) Shutdown(reason string) {
	if !c.markClosed() {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil {
		_ = c.conn.Close()
		return
	}
	time.AfterFunc(c.writeWait, func() { _ = c.conn.Close() })
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	sc := &wsSignalConn{
		conn:      ws,
		send:      make(chan core.Frame, ctl.cfg.SendBuffer),
		writeWait: ctl.cfg.WriteWait,
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, err := ctl.Orch.Connect(sc, cancel)
	if err != nil {
		cancel()
		log.Error().Err(err).Str("module", "signal").Msg("register connection")
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registry unavailable")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ctl.cfg.WriteWait))
		_ = ws.Close()
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.ID)).Str("client_token", token).Str("remote", c.Request.RemoteAddr).Msg("new WS connection")

	id := conn.ID
	ws.SetPongHandler(func(string) error {
		ctl.Orch.Touch(id)
		return nil
	})

	go ctl.writePump(ctx, id, sc)
	go ctl.readPump(ctx, id, sc)
}

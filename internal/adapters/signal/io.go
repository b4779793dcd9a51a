package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, id core.ConnID, c *wsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, id core.ConnID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		ctl.disconnect(id)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(id, c, data)
		}
	}
}

// handleSignal dispatches one inbound frame. Frames from one connection are
// handled in arrival order because only its read pump calls this.
func (ctl *SignalWSController) handleSignal(id core.ConnID, c core.SignalConnection, data []byte) {
	if !ctl.limiter.Allow(id) {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("rate limit exceeded")
		ctl.replyError(id, c, ErrRateLimited)
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad frame")
		ctl.replyError(id, c, err)
		return
	}

	switch m := msg.(type) {
	case protocol.HostReady:
		ctl.handleHostReady(id, c, m)
	case protocol.ViewerJoin:
		ctl.handleViewerJoin(id, c, m)
	case protocol.Offer:
		ctl.handleOffer(id, c, m)
	case protocol.Answer:
		ctl.handleAnswer(id, c, m)
	case protocol.ICECandidate:
		ctl.handleCandidate(id, c, m)
	case protocol.Cursor:
		ctl.handleCursor(id, c, m)
	case protocol.Stats:
		ctl.handleStats(id, c, m)
	case protocol.Ping:
		ctl.handlePing(id, c)
	case protocol.Unknown:
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("type", m.Name).Msg("unknown signal")
	}
}

// reply sends v back to the sender of the frame being handled.
func (ctl *SignalWSController) reply(id core.ConnID, c core.SignalConnection, v any) {
	f, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("reply marshal")
		return
	}
	_ = ctl.push(id, c, f)
}

func (ctl *SignalWSController) replyError(id core.ConnID, c core.SignalConnection, err error) {
	ctl.reply(id, c, protocol.NewError(clientMessage(err)))
}

// deliver sends v to a connection resolved by the orchestrator.
func (ctl *SignalWSController) deliver(target *app.Connection, v any) error {
	f, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("deliver marshal")
		return err
	}
	return ctl.push(target.ID, target.Signal, f)
}

func (ctl *SignalWSController) push(id core.ConnID, sig core.SignalConnection, f core.Frame) error {
	err := sig.TrySend(f)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrBackpressure):
		ctl.onBackpressure(id, sig)
	default:
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("send skipped")
	}
	return err
}

func (ctl *SignalWSController) onBackpressure(id core.ConnID, sig core.SignalConnection) {
	conn, ok := ctl.Orch.Registry.Lookup(id)
	if !ok {
		return
	}
	switch ctl.Orch.Policy.OnBackPressure(conn) {
	case app.Disconnect:
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("send queue full, disconnecting")
		// The read pump notices the closed transport and runs the disconnect path.
		sig.Close()
	case app.DropFrame:
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("send queue full, frame dropped")
	}
}

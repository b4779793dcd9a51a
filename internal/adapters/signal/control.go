package signal

import (
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/dkeye/Cast/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(id core.ConnID, c core.SignalConnection) {
	ctl.Orch.Touch(id)
	ctl.reply(id, c, protocol.NewPong())
}

// handleCursor fans the frame out unchanged to everyone else in the session.
func (ctl *SignalWSController) handleCursor(id core.ConnID, c core.SignalConnection, m protocol.Cursor) {
	r, err := ctl.Orch.RouteBroadcast(id)
	if err != nil {
		ctl.routeFailed(id, c, m.Type(), err)
		return
	}
	for _, target := range r.Targets {
		_ = ctl.push(target.ID, target.Signal, core.Frame(m.Raw))
	}
}

func (ctl *SignalWSController) handleStats(id core.ConnID, c core.SignalConnection, m protocol.Stats) {
	if err := ctl.Orch.RecordStats(id, domain.SessionID(m.Session), m.Bytes(), m.Data); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("stats rejected")
		ctl.replyError(id, c, err)
	}
}

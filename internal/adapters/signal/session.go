package signal

import (
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/dkeye/Cast/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleHostReady(id core.ConnID, c core.SignalConnection, m protocol.HostReady) {
	sid, err := domain.ParseSessionID(m.Session)
	if err != nil {
		ctl.replyError(id, c, err)
		return
	}
	res, err := ctl.Orch.HostReady(id, sid)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Str("session", string(sid)).Msg("host-ready rejected")
		ctl.replyError(id, c, err)
		return
	}
	ctl.reply(id, c, protocol.NewHostReadyAck(string(sid)))
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("session", string(sid)).Int("viewers", res.ViewerCount).Msg("host ready")
}

func (ctl *SignalWSController) handleViewerJoin(id core.ConnID, c core.SignalConnection, m protocol.ViewerJoin) {
	sid, err := domain.ParseSessionID(m.Session)
	if err != nil {
		ctl.replyError(id, c, err)
		return
	}
	vid, err := domain.ParseViewerID(m.ViewerID)
	if err != nil {
		ctl.replyError(id, c, err)
		return
	}

	res, err := ctl.Orch.ViewerJoin(id, sid, vid)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Str("session", string(sid)).Str("viewer", string(vid)).Msg("viewer-join rejected")
		ctl.replyError(id, c, err)
		return
	}

	ctl.reply(id, c, protocol.NewViewerJoinedAck(string(sid), string(vid)))
	if res.Host != nil {
		_ = ctl.deliver(res.Host, protocol.NewViewerJoined(string(vid), res.ViewerCount))
	}
}

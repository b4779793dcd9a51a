package signal

import (
	"errors"

	"github.com/dkeye/Cast/internal/app/orch"
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/dkeye/Cast/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleOffer(id core.ConnID, c core.SignalConnection, m protocol.Offer) {
	r, err := ctl.Orch.RouteToViewer(id, domain.SessionID(m.Session), domain.ViewerID(m.TargetViewerID))
	if err != nil {
		ctl.routeFailed(id, c, m.Type(), err)
		return
	}
	ctl.forward(r, protocol.NewOffer(string(r.Session), m.Data, string(r.From.ID)))
}

func (ctl *SignalWSController) handleAnswer(id core.ConnID, c core.SignalConnection, m protocol.Answer) {
	r, err := ctl.Orch.RouteToHost(id, domain.SessionID(m.Session))
	if err != nil {
		ctl.routeFailed(id, c, m.Type(), err)
		return
	}
	ctl.forward(r, protocol.NewAnswer(string(r.Session), m.Data, string(r.From.Viewer)))
}

func (ctl *SignalWSController) handleCandidate(id core.ConnID, c core.SignalConnection, m protocol.ICECandidate) {
	r, err := ctl.Orch.RouteCandidate(id, domain.SessionID(m.Session), domain.ViewerID(m.TargetViewerID))
	if err != nil {
		ctl.routeFailed(id, c, m.Type(), err)
		return
	}
	if r.From.Role == domain.RoleHost {
		ctl.forward(r, protocol.NewHostCandidate(string(r.Session), m.Data, string(r.From.ID)))
		return
	}
	ctl.forward(r, protocol.NewViewerCandidate(string(r.Session), m.Data, string(r.From.Viewer)))
}

func (ctl *SignalWSController) forward(r orch.Route, v any) {
	for _, target := range r.Targets {
		if err := ctl.deliver(target, v); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("session", string(r.Session)).Str("from", string(r.From.ID)).Str("to", string(target.ID)).Msg("forward failed")
		}
	}
}

func (ctl *SignalWSController) routeFailed(id core.ConnID, c core.SignalConnection, t protocol.Type, err error) {
	lvl := zerolog.DebugLevel
	if errors.Is(err, orch.ErrTargetNotFound) {
		lvl = zerolog.WarnLevel
	}
	log.WithLevel(lvl).Err(err).Str("module", "signal").Str("conn", string(id)).Str("type", string(t)).Msg("message dropped")
	ctl.replyError(id, c, err)
}

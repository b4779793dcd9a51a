package signal

import (
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/dkeye/Cast/internal/protocol"
	"github.com/rs/zerolog/log"
)

// disconnect runs once per connection when its read pump exits and tells
// the rest of the session.
func (ctl *SignalWSController) disconnect(id core.ConnID) {
	ctl.limiter.Forget(id)

	dep, ok := ctl.Orch.Disconnect(id)
	if !ok {
		return
	}

	switch dep.Role {
	case domain.RoleHost:
		msg := protocol.NewHostDisconnected(string(dep.Session))
		for _, v := range dep.Viewers {
			_ = ctl.deliver(v, msg)
		}
		log.Info().Str("module", "signal").Str("conn", string(id)).Str("session", string(dep.Session)).Int("viewers", len(dep.Viewers)).Msg("host left, session closed")
	case domain.RoleViewer:
		if dep.Host != nil {
			_ = ctl.deliver(dep.Host, protocol.NewViewerCountChanged(string(dep.Session), dep.ViewerCount))
		}
		log.Info().Str("module", "signal").Str("conn", string(id)).Str("session", string(dep.Session)).Str("viewer", string(dep.Viewer)).Int("viewers", dep.ViewerCount).Msg("viewer left")
	}
}

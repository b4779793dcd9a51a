package orch

import (
	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/rs/zerolog/log"
)

type HostResult struct {
	Created     bool
	Replaced    core.ConnID
	ViewerCount int
}

type JoinResult struct {
	Host        *app.Connection
	ViewerCount int
}

// HostReady makes id the host of sid. A live session with that id is reused
// and keeps its viewers; a previous host connection is demoted.
func (o *Orchestrator) HostReady(id core.ConnID, sid domain.SessionID) (HostResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, ok := o.Registry.Lookup(id)
	if !ok {
		return HostResult{}, ErrConnNotFound
	}
	switch conn.Role {
	case domain.RoleViewer:
		return HostResult{}, ErrRoleNotAllowed
	case domain.RoleHost:
		if conn.SessionID != sid {
			return HostResult{}, ErrRoleNotAllowed
		}
	}

	sess, created := o.Sessions.GetOrCreate(sid)
	res := HostResult{Created: created}
	if prev := sess.Host; prev != nil && prev != conn {
		prev.Reset()
		res.Replaced = prev.ID
		log.Warn().Str("module", "orch").Str("session", string(sid)).Str("conn", string(prev.ID)).Msg("host replaced")
	}
	o.Sessions.SetHost(sess, conn)
	conn.Assign(domain.RoleHost, sid, "")
	res.ViewerCount = o.Sessions.ViewerCount(sess)

	log.Info().Str("module", "orch").Str("conn", string(id)).Str("session", string(sid)).Bool("created", created).Msg("host ready")
	return res, nil
}

// ViewerJoin adds id to sid as vid. The session must already exist.
func (o *Orchestrator) ViewerJoin(id core.ConnID, sid domain.SessionID, vid domain.ViewerID) (JoinResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, ok := o.Registry.Lookup(id)
	if !ok {
		return JoinResult{}, ErrConnNotFound
	}
	if conn.Role != domain.RoleUnassigned {
		return JoinResult{}, ErrRoleNotAllowed
	}
	sess, ok := o.Sessions.Get(sid)
	if !ok {
		return JoinResult{}, ErrSessionNotFound
	}
	if err := o.Sessions.AddViewer(sess, vid, conn); err != nil {
		return JoinResult{}, err
	}
	conn.Assign(domain.RoleViewer, sid, vid)

	res := JoinResult{Host: sess.Host, ViewerCount: o.Sessions.ViewerCount(sess)}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("session", string(sid)).Str("viewer", string(vid)).Int("viewers", res.ViewerCount).Msg("viewer joined")
	return res, nil
}

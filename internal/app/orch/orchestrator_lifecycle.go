package orch

import (
	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/rs/zerolog/log"
)

// Departure describes what a disconnect changed and who must hear about it.
type Departure struct {
	Conn    core.ConnID
	Role    domain.Role
	Session domain.SessionID
	Viewer  domain.ViewerID

	// Set when a viewer left: its host and the remaining viewer count.
	Host        *app.Connection
	ViewerCount int

	// Set when a host left: the viewers of the removed session.
	Viewers []*app.Connection
}

// Disconnect removes id from the Session Table and the Registry in one step.
// A connection that is already gone is a no-op. It never fails: a missing
// session or viewer entry is treated as already clean.
func (o *Orchestrator) Disconnect(id core.ConnID) (Departure, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, ok := o.Registry.Lookup(id)
	if !ok {
		return Departure{}, false
	}
	dep := Departure{
		Conn:    id,
		Role:    conn.Role,
		Session: conn.SessionID,
		Viewer:  conn.ViewerID,
	}

	switch conn.Role {
	case domain.RoleHost:
		o.dropHost(conn, &dep)
	case domain.RoleViewer:
		o.dropViewer(conn, &dep)
	}

	o.Registry.Unregister(id)
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("role", dep.Role.String()).Str("session", string(dep.Session)).Msg("disconnected")
	return dep, true
}

func (o *Orchestrator) dropHost(conn *app.Connection, dep *Departure) {
	sess, ok := o.Sessions.Get(conn.SessionID)
	if !ok || sess.Host != conn {
		return
	}
	dep.Viewers = o.Sessions.Members(sess, conn.ID)
	for _, v := range dep.Viewers {
		v.Reset()
	}
	o.Sessions.Remove(sess.Meta.ID)
}

func (o *Orchestrator) dropViewer(conn *app.Connection, dep *Departure) {
	sess, ok := o.Sessions.Get(conn.SessionID)
	if !ok {
		return
	}
	if cur, ok := o.Sessions.Viewer(sess, conn.ViewerID); !ok || cur != conn {
		return
	}
	o.Sessions.RemoveViewer(sess, conn.ViewerID)
	dep.Host = sess.Host
	dep.ViewerCount = o.Sessions.ViewerCount(sess)
}

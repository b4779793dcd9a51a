package orch

import (
	"encoding/json"

	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/rs/zerolog/log"
)

// Sender is a copy of the sending connection's identity taken under the lock.
type Sender struct {
	ID     core.ConnID
	Role   domain.Role
	Viewer domain.ViewerID
}

// Route is a resolved delivery. Targets may be used after the lock is gone:
// only their immutable fields (ID, Signal) are safe to read.
type Route struct {
	Session domain.SessionID
	From    Sender
	Targets []*app.Connection
}

// RouteToViewer resolves a host's message for one of its viewers.
func (o *Orchestrator) RouteToViewer(id core.ConnID, sid domain.SessionID, vid domain.ViewerID) (Route, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, sess, err := o.sender(id, sid, domain.RoleHost)
	if err != nil {
		return Route{}, err
	}
	return o.toViewer(conn, sess, vid)
}

// RouteToHost resolves a viewer's message for its host.
func (o *Orchestrator) RouteToHost(id core.ConnID, sid domain.SessionID) (Route, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, sess, err := o.sender(id, sid, domain.RoleViewer)
	if err != nil {
		return Route{}, err
	}
	return o.toHost(conn, sess)
}

// RouteCandidate picks the direction from the sender's role: a host reaches
// the named viewer, a viewer reaches its host.
func (o *Orchestrator) RouteCandidate(id core.ConnID, sid domain.SessionID, vid domain.ViewerID) (Route, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, sess, err := o.sender(id, sid, domain.RoleHost, domain.RoleViewer)
	if err != nil {
		return Route{}, err
	}
	if conn.Role == domain.RoleHost {
		return o.toViewer(conn, sess, vid)
	}
	return o.toHost(conn, sess)
}

// RouteBroadcast resolves everyone else in the sender's session.
func (o *Orchestrator) RouteBroadcast(id core.ConnID) (Route, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, sess, err := o.sender(id, "", domain.RoleHost, domain.RoleViewer)
	if err != nil {
		return Route{}, err
	}
	return Route{
		Session: sess.Meta.ID,
		From:    senderOf(conn),
		Targets: o.Sessions.Members(sess, conn.ID),
	}, nil
}

// RecordStats accumulates a host's stats report on its session.
func (o *Orchestrator) RecordStats(id core.ConnID, sid domain.SessionID, bytes uint64, payload json.RawMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, sess, err := o.sender(id, sid, domain.RoleHost)
	if err != nil {
		return err
	}
	o.Sessions.AddStats(sess, bytes, payload)
	log.Debug().Str("module", "orch").Str("session", string(sess.Meta.ID)).Uint64("bytes", sess.Stats.BytesTransferred).Int("reports", sess.Stats.StatsReports).Msg("stats recorded")
	return nil
}

// sender resolves the sending connection and its session. sid, when not
// empty, must match the session the connection is assigned to.
func (o *Orchestrator) sender(id core.ConnID, sid domain.SessionID, roles ...domain.Role) (*app.Connection, *app.Session, error) {
	conn, ok := o.Registry.Lookup(id)
	if !ok {
		return nil, nil, ErrConnNotFound
	}
	allowed := false
	for _, r := range roles {
		if conn.Role == r {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, nil, ErrRoleNotAllowed
	}
	if sid != "" && sid != conn.SessionID {
		return nil, nil, ErrSessionMismatch
	}
	sess, ok := o.Sessions.Get(conn.SessionID)
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	return conn, sess, nil
}

func (o *Orchestrator) toViewer(conn *app.Connection, sess *app.Session, vid domain.ViewerID) (Route, error) {
	target, ok := o.Sessions.Viewer(sess, vid)
	if !ok {
		return Route{}, ErrTargetNotFound
	}
	return Route{Session: sess.Meta.ID, From: senderOf(conn), Targets: []*app.Connection{target}}, nil
}

func (o *Orchestrator) toHost(conn *app.Connection, sess *app.Session) (Route, error) {
	if sess.Host == nil {
		return Route{}, ErrTargetNotFound
	}
	return Route{Session: sess.Meta.ID, From: senderOf(conn), Targets: []*app.Connection{sess.Host}}, nil
}

func senderOf(c *app.Connection) Sender {
	return Sender{ID: c.ID, Role: c.Role, Viewer: c.ViewerID}
}

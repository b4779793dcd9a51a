package orch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/core"
	"github.com/rs/zerolog/log"
)

var (
	ErrConnNotFound    = errors.New("connection not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrRoleNotAllowed  = errors.New("not allowed for role")
	ErrTargetNotFound  = errors.New("target not found")
	ErrSessionMismatch = errors.New("session mismatch")
)

// Orchestrator is the single serialization point for the Registry and the
// Session Table. Every step that touches both runs under mu, so a role
// assignment and the matching session mutation are never observed half done.
// It never sends: callers deliver to the connections it resolves after the
// lock is released.
type Orchestrator struct {
	mu sync.Mutex

	Registry *app.Registry
	Sessions *app.SessionTable
	Policy   app.Policy

	now func() time.Time
}

func New(reg *app.Registry, sessions *app.SessionTable, policy app.Policy) *Orchestrator {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Orchestrator{
		Registry: reg,
		Sessions: sessions,
		Policy:   policy,
		now:      time.Now,
	}
}

// Connect registers a freshly accepted transport.
func (o *Orchestrator) Connect(sig core.SignalConnection, cancel context.CancelFunc) (*app.Connection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Registry.Register(sig, cancel)
}

// Touch records a liveness acknowledgment from id.
func (o *Orchestrator) Touch(id core.ConnID) {
	if c, ok := o.Registry.Lookup(id); ok {
		c.Touch(o.now())
	}
}

// CloseAll sends a normal closure to every live connection.
func (o *Orchestrator) CloseAll(reason string) int {
	n := 0
	o.Registry.ForEach(func(c *app.Connection) {
		c.Signal.Shutdown(reason)
		n++
	})
	log.Info().Str("module", "orch").Int("connections", n).Msg("closed all connections")
	return n
}

func (o *Orchestrator) Stats() core.RelayStats {
	return core.RelayStats{
		TotalConnections: o.Registry.Total(),
		LiveConnections:  o.Registry.Len(),
		LiveSessions:     o.Sessions.Len(),
	}
}

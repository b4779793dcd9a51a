package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrRegistryExhausted = errors.New("registry: could not allocate a unique connection id")

const maxIDAttempts = 8

// Connection is one live transport link.
//
// ID, Signal and ConnectedAt never change. Role, SessionID and ViewerID are
// only written by the orchestrator while it holds its lock.
type Connection struct {
	ID          core.ConnID
	Signal      core.SignalConnection
	ConnectedAt time.Time

	Role      domain.Role
	SessionID domain.SessionID
	ViewerID  domain.ViewerID

	lastHeartbeat atomic.Int64
	cancel        context.CancelFunc
}

// Touch records a liveness acknowledgment.
func (c *Connection) Touch(at time.Time) {
	c.lastHeartbeat.Store(at.UnixNano())
}

func (c *Connection) LastHeartbeat() time.Time {
	return time.Unix(0, c.lastHeartbeat.Load())
}

func (c *Connection) Assign(role domain.Role, sid domain.SessionID, vid domain.ViewerID) {
	c.Role = role
	c.SessionID = sid
	c.ViewerID = vid
}

// Reset returns the connection to the unassigned state.
func (c *Connection) Reset() {
	c.Assign(domain.RoleUnassigned, "", "")
}

type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*Connection
	total atomic.Uint64

	newID func() string
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*Connection),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Register issues a fresh identity for sig. cancel, if not nil, is called
// when the connection is unregistered.
func (r *Registry) Register(sig core.SignalConnection, cancel context.CancelFunc) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for range maxIDAttempts {
		id := core.ConnID(r.newID())
		if _, taken := r.conns[id]; taken {
			continue
		}
		now := r.now()
		c := &Connection{
			ID:          id,
			Signal:      sig,
			ConnectedAt: now,
			cancel:      cancel,
		}
		c.Touch(now)
		r.conns[id] = c
		r.total.Add(1)
		log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
		return c, nil
	}
	return nil, ErrRegistryExhausted
}

func (r *Registry) Lookup(id core.ConnID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) Unregister(id core.ConnID) {
	r.mu.Lock()
	c, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered connection")
}

// ForEach visits a snapshot of the live connections. visit runs outside the
// registry lock and may call back into the registry.
func (r *Registry) ForEach(visit func(*Connection)) {
	r.mu.RLock()
	snap := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		snap = append(snap, c)
	}
	r.mu.RUnlock()
	for _, c := range snap {
		visit(c)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Total is the number of connections ever registered.
func (r *Registry) Total() uint64 {
	return r.total.Load()
}

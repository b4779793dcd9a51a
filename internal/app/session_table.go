package app

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrDuplicateViewerID = errors.New("viewer id already in session")

// Session binds one host connection to its viewers. Connection pointers are
// non-owning; the Registry owns them.
type Session struct {
	Meta      domain.Session
	Host      *Connection
	Viewers   map[domain.ViewerID]*Connection
	Stats     domain.SessionStats
	LastStats json.RawMessage
}

// SessionTable is a threadsafe in-memory table of live sessions.
// It never sends anything.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
	now      func() time.Time
}

func NewSessionTable() *SessionTable {
	return &SessionTable{
		sessions: make(map[domain.SessionID]*Session),
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, creating it with no viewers if it
// does not exist yet.
func (t *SessionTable) GetOrCreate(id domain.SessionID) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		return s, false
	}
	s := &Session{
		Meta:    domain.Session{ID: id, CreatedAt: t.now()},
		Viewers: make(map[domain.ViewerID]*Connection),
	}
	t.sessions[id] = s
	log.Info().Str("module", "app.sessions").Str("session", string(id)).Msg("session created")
	return s, true
}

func (t *SessionTable) Get(id domain.SessionID) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	return s, ok
}

// SetHost replaces the host reference. Viewers are kept.
func (t *SessionTable) SetHost(s *Session, c *Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.Host = c
}

func (t *SessionTable) AddViewer(s *Session, vid domain.ViewerID, c *Connection) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, taken := s.Viewers[vid]; taken {
		return ErrDuplicateViewerID
	}
	s.Viewers[vid] = c
	s.Stats.TotalViewers++
	s.Stats.PeakViewers = max(s.Stats.PeakViewers, len(s.Viewers))
	return nil
}

func (t *SessionTable) RemoveViewer(s *Session, vid domain.ViewerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(s.Viewers, vid)
}

func (t *SessionTable) Remove(id domain.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[id]; !ok {
		return
	}
	delete(t.sessions, id)
	log.Info().Str("module", "app.sessions").Str("session", string(id)).Msg("session removed")
}

// AddStats accumulates one host stats report.
func (t *SessionTable) AddStats(s *Session, bytes uint64, payload json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.Stats.BytesTransferred += bytes
	s.Stats.StatsReports++
	if len(payload) > 0 {
		s.LastStats = append(json.RawMessage(nil), payload...)
	}
}

func (t *SessionTable) Viewer(s *Session, vid domain.ViewerID) (*Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := s.Viewers[vid]
	return c, ok
}

func (t *SessionTable) ViewerCount(s *Session) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(s.Viewers)
}

// Members returns the host followed by every viewer, skipping except.
func (t *SessionTable) Members(s *Session, except core.ConnID) []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Connection, 0, len(s.Viewers)+1)
	if s.Host != nil && s.Host.ID != except {
		out = append(out, s.Host)
	}
	for _, c := range s.Viewers {
		if c.ID != except {
			out = append(out, c)
		}
	}
	return out
}

func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *SessionTable) List() []core.SessionInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.SessionInfo, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, info(s, false))
	}
	slices.SortFunc(out, func(a, b core.SessionInfo) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (t *SessionTable) Info(id domain.SessionID) (core.SessionInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	if !ok {
		return core.SessionInfo{}, false
	}
	return info(s, true), true
}

func info(s *Session, withViewers bool) core.SessionInfo {
	out := core.SessionInfo{
		ID:               s.Meta.ID,
		ViewerCount:      len(s.Viewers),
		PeakViewers:      s.Stats.PeakViewers,
		TotalViewers:     s.Stats.TotalViewers,
		BytesTransferred: s.Stats.BytesTransferred,
		StatsReports:     s.Stats.StatsReports,
		CreatedAt:        s.Meta.CreatedAt,
	}
	if s.Host != nil {
		out.HostID = s.Host.ID
	}
	if withViewers {
		out.Viewers = make([]domain.ViewerID, 0, len(s.Viewers))
		for vid := range s.Viewers {
			out.Viewers = append(out.Viewers, vid)
		}
		slices.Sort(out.Viewers)
	}
	return out
}

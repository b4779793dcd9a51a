// Package coretest provides in-memory SignalConnection fakes for tests.
package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Cast/internal/core"
)

// Signal records every frame queued on it.
type Signal struct {
	mu       sync.Mutex
	frames   []core.Frame
	pings    int
	closed   bool
	shutdown string
	full     bool
}

func NewSignal() *Signal { return &Signal{} }

func (s *Signal) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrConnClosed
	}
	if s.full {
		return core.ErrBackpressure
	}
	s.frames = append(s.frames, append(core.Frame(nil), f...))
	return nil
}

func (s *Signal) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrConnClosed
	}
	s.pings++
	return nil
}

func (s *Signal) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Signal) Shutdown(reason string) {
	s.mu.Lock()
	s.shutdown = reason
	s.closed = true
	s.mu.Unlock()
}

// SetFull makes TrySend fail with core.ErrBackpressure until called again with false.
func (s *Signal) SetFull(full bool) {
	s.mu.Lock()
	s.full = full
	s.mu.Unlock()
}

func (s *Signal) Frames() []core.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Messages decodes every queued frame as a JSON object.
func (s *Signal) Messages() []map[string]any {
	frames := s.Frames()
	out := make([]map[string]any, 0, len(frames))
	for _, f := range frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			m = map[string]any{"_raw": string(f)}
		}
		out = append(out, m)
	}
	return out
}

// Last returns the most recent decoded message, or nil.
func (s *Signal) Last() map[string]any {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// Reset drops recorded frames.
func (s *Signal) Reset() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

func (s *Signal) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

func (s *Signal) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Signal) ShutdownReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

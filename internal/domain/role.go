// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
)

const (
	MaxSessionIDLen = 128
	MaxViewerIDLen  = 64
)

var (
	ErrIDEmpty   = errors.New("id empty")
	ErrIDTooLong = errors.New("id too long")
)

// Role is what a connection does inside a session. It is set by host-ready
// or viewer-join and cleared when the session goes away.
type Role int

const (
	RoleUnassigned Role = iota
	RoleHost
	RoleViewer
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleViewer:
		return "viewer"
	default:
		return "unassigned"
	}
}

type (
	SessionID string
	ViewerID  string
)

func ParseSessionID(raw string) (SessionID, error) {
	if err := checkID(raw, MaxSessionIDLen); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return SessionID(raw), nil
}

func ParseViewerID(raw string) (ViewerID, error) {
	if err := checkID(raw, MaxViewerIDLen); err != nil {
		return "", fmt.Errorf("viewer id: %w", err)
	}
	return ViewerID(raw), nil
}

func checkID(raw string, max int) error {
	if len(raw) == 0 {
		return ErrIDEmpty
	}
	if len(raw) > max {
		return ErrIDTooLong
	}
	return nil
}

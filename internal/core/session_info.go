package core

import (
	"time"

	"github.com/dkeye/Cast/internal/domain"
)

// SessionInfo is a read-only view for APIs (no transport fields).
type SessionInfo struct {
	ID               domain.SessionID  `json:"id"`
	HostID           ConnID            `json:"hostId"`
	ViewerCount      int               `json:"viewerCount"`
	PeakViewers      int               `json:"peakViewers"`
	TotalViewers     int               `json:"totalViewers"`
	BytesTransferred uint64            `json:"bytesTransferred"`
	StatsReports     int               `json:"statsReports"`
	CreatedAt        time.Time         `json:"createdAt"`
	Viewers          []domain.ViewerID `json:"viewers,omitempty"`
}

// RelayStats is a point-in-time view of the relay counters.
type RelayStats struct {
	TotalConnections uint64 `json:"totalConnections"`
	LiveConnections  int    `json:"liveConnections"`
	LiveSessions     int    `json:"liveSessions"`
}

package domain

import "time"

// Session is the meta of one broadcast. Membership lives in the app layer.
type Session struct {
	ID        SessionID
	CreatedAt time.Time
}

// SessionStats are counters accumulated over the life of a session.
type SessionStats struct {
	PeakViewers      int
	TotalViewers     int
	BytesTransferred uint64
	StatsReports     int
}

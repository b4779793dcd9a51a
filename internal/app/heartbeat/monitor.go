// Package heartbeat probes every live connection on a single ticker and
// terminates the ones that stopped answering.
package heartbeat

import (
	"context"
	"time"

	"github.com/dkeye/Cast/internal/app"
	"github.com/rs/zerolog/log"
)

type Monitor struct {
	Registry *app.Registry
	Interval time.Duration
	Timeout  time.Duration
	Now      func() time.Time
}

func New(reg *app.Registry, interval, timeout time.Duration) *Monitor {
	return &Monitor{Registry: reg, Interval: interval, Timeout: timeout, Now: time.Now}
}

// Run sweeps until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	log.Info().Str("module", "heartbeat").Dur("interval", m.Interval).Dur("timeout", m.Timeout).Msg("started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "heartbeat").Msg("stopped")
			return
		case <-ticker.C:
			m.Sweep(m.Now())
		}
	}
}

// Sweep pings every connection seen within Timeout and terminates the rest.
// A terminated transport fails its read pump, which runs the regular
// disconnect path.
func (m *Monitor) Sweep(now time.Time) (pinged, terminated int) {
	m.Registry.ForEach(func(c *app.Connection) {
		if idle := now.Sub(c.LastHeartbeat()); idle > m.Timeout {
			log.Warn().Str("module", "heartbeat").Str("conn", string(c.ID)).Dur("idle", idle).Msg("heartbeat timeout, terminating")
			c.Signal.Close()
			terminated++
			return
		}
		if err := c.Signal.Ping(); err != nil {
			log.Debug().Str("module", "heartbeat").Str("conn", string(c.ID)).Err(err).Msg("ping failed")
			return
		}
		pinged++
	})
	if terminated > 0 {
		log.Info().Str("module", "heartbeat").Int("pinged", pinged).Int("terminated", terminated).Msg("sweep")
	}
	return pinged, terminated
}

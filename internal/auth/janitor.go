package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor removes refresh sessions that expired and were never logged
// out, so the sessions table does not grow without bound.
type Janitor struct {
	Store    Store
	Interval time.Duration
	Log      zerolog.Logger
	Now      func() time.Time
}

// Run sweeps on every tick until the context is cancelled.
func (j Janitor) Run(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep deletes every session whose expiry is in the past.
func (j Janitor) Sweep(ctx context.Context) {
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}
	n, err := j.Store.DeleteExpiredSessions(ctx, now)
	if err != nil {
		j.Log.Error().Err(err).Msg("sweep expired sessions")
		return
	}
	if n > 0 {
		j.Log.Info().Int64("sessions", n).Msg("expired sessions removed")
	}
}

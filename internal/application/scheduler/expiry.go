// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Expirer persists EXPIRADO for invitations whose expiration has passed.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

const sweepTimeout = 2 * time.Minute

// StartExpirySweeper schedules RunExpirySweep on schedule (standard cron or @every descriptors)
// and starts the cron. Callers stop it with Stop on shutdown.
func StartExpirySweeper(schedule string, svc Expirer) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		RunExpirySweep(ctx, svc)
	}); err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("schedule", schedule).Msg("invitation expiry sweeper started")
	return c, nil
}

// RunExpirySweep runs one sweep and logs the outcome.
func RunExpirySweep(ctx context.Context, svc Expirer) {
	n, err := svc.ExpireOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Int("expired", n).Msg("invitation expiry sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int("expired", n).Msg("invitations expired")
	}
}

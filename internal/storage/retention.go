package storage

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// retentionSchedule runs the sweep nightly at 03:10 local time.
const retentionSchedule = "10 3 * * *"

// Sweeper purges saved entries past their retention TTL on a cron
// schedule. Used in serve mode; CLI one-shots don't start it.
type Sweeper struct {
	store *Store
	ttl   time.Duration
	cron  *cron.Cron
}

// NewSweeper creates a sweeper that deletes entries older than
// retentionDays.
func NewSweeper(store *Store, retentionDays int) *Sweeper {
	return &Sweeper{
		store: store,
		ttl:   time.Duration(retentionDays) * 24 * time.Hour,
		cron:  cron.New(),
	}
}

// Start schedules the sweep and runs one immediately so a long-idle
// database is cleaned on startup.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(retentionSchedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.store.PurgeOlderThan(ctx, time.Now().Add(-s.ttl))
	if err != nil {
		// Storage failures never abort anything; log and move on.
		log.Warn().Err(err).Msg("retention_sweep_failed")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("retention_sweep_purged")
	}
}

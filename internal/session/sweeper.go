package session

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper periodically removes expired rows from a DBStore. Memory and Redis
// backends expire on their own and need no sweeper.
type Sweeper struct {
	store    *DBStore
	schedule string
}

// NewSweeper returns a sweeper that runs on the given 5-field cron schedule.
func NewSweeper(store *DBStore, schedule string) *Sweeper {
	return &Sweeper{store: store, schedule: schedule}
}

// Start schedules sweeping until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("session: schedule sweeper %q: %w", s.schedule, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// RunOnce performs a single sweep and logs the outcome.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	n, err := s.store.Sweep(ctx)
	if err != nil {
		log.WithError(err).Warn("session sweep failed")
		return 0
	}
	if n > 0 {
		log.WithField("removed", n).Info("swept expired session entries")
	}
	return n
}

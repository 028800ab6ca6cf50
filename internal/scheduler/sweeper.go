// Package scheduler runs periodic housekeeping over the auth collections.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Purger deletes records that expired before now and reports how many.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type Target struct {
	Name   string
	Purger Purger
}

// Sweeper purges every target in turn. One failing target does not stop
// the others.
type Sweeper struct {
	Targets []Target
	Timeout time.Duration
	Now     func() time.Time
}

func NewSweeper(targets ...Target) *Sweeper {
	return &Sweeper{Targets: targets, Timeout: time.Minute, Now: time.Now}
}

func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	now := s.Now()
	total := 0
	var errs []error
	for _, t := range s.Targets {
		n, err := t.Purger.PurgeExpired(ctx, now)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		if n > 0 {
			log.Printf("scheduler: purged %d expired %s", n, t.Name)
		}
	}
	return total, errors.Join(errs...)
}

// Start schedules Sweep every interval, with a first run right away. A run
// still in progress when the next is due causes that one to be skipped.
// Callers own the returned scheduler and must Shutdown it.
func Start(interval time.Duration, s *Sweeper) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := s.Sweep(context.Background()); err != nil {
				log.Printf("scheduler: sweep: %v", err)
			}
		}),
		gocron.WithName("purge-expired-tokens"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	sched.Start()
	return sched, nil
}

/*
scheduler.go - Scheduled closeout jobs

PURPOSE:
  Runs the two daily closeout jobs of the attendance engine on cron
  schedules evaluated in the business timezone:
  - missing-checkout: closes yesterday's records that never checked out
  - absenteeism: marks employees with no record today as ABSENT

DESIGN:
  - robfig/cron with a seconds field, so "1 0 0 * * *" means 00:00:01
  - SkipIfStillRunning: a slow run is never overlapped by the next tick
  - Absenteeism is skipped on rest days (weekends, holidays)
  - Each run is bounded by RunTimeout; the engine counts runs in
    CloseoutRunsTotal, skipped rest days are counted here

CONFIGURATION:
  - MissingCheckoutSpec: default config.DefaultCronMissingCheckout
  - AbsenteeismSpec:     default config.DefaultCronAbsenteeism
  - Enabled:             whether Start schedules anything

USAGE:
  scheduler := NewCloseoutScheduler(engine)
  if err := scheduler.Start(); err != nil {
      log.Fatal(err)
  }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: manual triggers under /api/admin/closeout
  - attendance/closeout.go: ProcessMissingCheckOut, ProcessAbsenteeism
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/log"
	"github.com/warp/attendance-engine/metrics"
)

const (
	JobMissingCheckout = "missing_checkout"
	JobAbsenteeism     = "absenteeism"
)

// CloseoutScheduler runs the closeout jobs of one engine.
type CloseoutScheduler struct {
	Engine              *attendance.Engine
	MissingCheckoutSpec string
	AbsenteeismSpec     string
	RunTimeout          time.Duration
	Enabled             bool

	cron    *cron.Cron
	mu      sync.Mutex
	logger  zerolog.Logger
	started bool
}

// NewCloseoutScheduler creates a scheduler with the default schedules.
func NewCloseoutScheduler(engine *attendance.Engine) *CloseoutScheduler {
	return &CloseoutScheduler{
		Engine:              engine,
		MissingCheckoutSpec: config.DefaultCronMissingCheckout,
		AbsenteeismSpec:     config.DefaultCronAbsenteeism,
		RunTimeout:          5 * time.Minute,
		Enabled:             true,
		logger:              log.WithComponent("scheduler"),
	}
}

// Start registers both jobs and starts the cron runner. Invalid cron specs
// are reported before anything is scheduled.
func (cs *CloseoutScheduler) Start() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.logger.Info().Msg("[Scheduler] Disabled, not starting")
		return nil
	}
	if cs.started {
		return nil
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cs.Engine.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(cs.MissingCheckoutSpec, func() { cs.run(JobMissingCheckout) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", JobMissingCheckout, cs.MissingCheckoutSpec, err)
	}
	if _, err := c.AddFunc(cs.AbsenteeismSpec, func() { cs.run(JobAbsenteeism) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", JobAbsenteeism, cs.AbsenteeismSpec, err)
	}

	c.Start()
	cs.cron = c
	cs.started = true

	cs.logger.Info().
		Str("missing_checkout", cs.MissingCheckoutSpec).
		Str("absenteeism", cs.AbsenteeismSpec).
		Str("timezone", cs.Engine.Location().String()).
		Msg("[Scheduler] Started")
	return nil
}

// Stop stops the cron runner and waits for a running job to finish.
func (cs *CloseoutScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.started {
		return
	}
	<-cs.cron.Stop().Done()
	cs.started = false
	cs.logger.Info().Msg("[Scheduler] Stopped")
}

// RunMissingCheckout runs the missing-checkout job now.
func (cs *CloseoutScheduler) RunMissingCheckout(ctx context.Context) (int, error) {
	n, err := cs.Engine.ProcessMissingCheckOut(ctx)
	cs.record(JobMissingCheckout, n, err)
	return n, err
}

// RunAbsenteeism runs the absenteeism job now. On a rest day it does nothing
// and reports skipped.
func (cs *CloseoutScheduler) RunAbsenteeism(ctx context.Context) (n int, skipped bool, err error) {
	today := cs.Engine.Today()
	if cs.Engine.IsRestDay(today) {
		cs.logger.Info().Str("date", today.String()).Msg("[Scheduler] Rest day, absenteeism skipped")
		metrics.CloseoutRunsTotal.WithLabelValues(JobAbsenteeism, "skipped").Inc()
		return 0, true, nil
	}
	n, err = cs.Engine.ProcessAbsenteeism(ctx)
	cs.record(JobAbsenteeism, n, err)
	return n, false, err
}

func (cs *CloseoutScheduler) run(job string) {
	ctx, cancel := context.WithTimeout(context.Background(), cs.RunTimeout)
	defer cancel()

	cs.logger.Info().Str("job", job).Msg("[Scheduler] Running")
	switch job {
	case JobMissingCheckout:
		cs.RunMissingCheckout(ctx)
	case JobAbsenteeism:
		cs.RunAbsenteeism(ctx)
	}
}

func (cs *CloseoutScheduler) record(job string, n int, err error) {
	if err != nil {
		cs.logger.Error().Err(err).Str("job", job).Int("records", n).Msg("[Scheduler] Job failed")
		return
	}
	cs.logger.Info().Str("job", job).Int("records", n).Msg("[Scheduler] Job complete")
}

// Package scheduler triggers the search pipeline on a cron expression. Runs
// never overlap: a tick that fires while a run is still in progress is
// skipped and logged.
package scheduler

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron    *cron.Cron
	spec    string
	run     func(context.Context) error
	running sync.Mutex
}

func New(spec string, run func(context.Context) error) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		spec: spec,
		run:  run,
	}
}

// Start registers the job and starts the cron loop. The passed context is
// handed to every triggered run; cancelling it aborts an in-flight run at
// the next stage boundary.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if !s.running.TryLock() {
			log.Printf("Skipping scheduled run: previous run still in progress")
			return
		}
		defer s.running.Unlock()

		if err := s.run(ctx); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Scheduler started with spec %q", s.spec)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

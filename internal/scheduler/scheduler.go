// Package scheduler starts sessions on a cron schedule while the server runs.
package scheduler

import (
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/blackwell-systems/autoapply/internal/session"
)

// Starter starts a background session run.
type Starter interface {
	Start() (session.Run, error)
}

// Scheduler wraps robfig/cron and triggers one session per tick.
type Scheduler struct {
	cron    *cron.Cron
	starter Starter
	spec    string // cron spec, e.g. "@every 6h" or "0 9 * * 1-5"
}

// Validate reports whether spec is a usable schedule.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// New creates a Scheduler firing on spec.
func New(starter Starter, spec string) (*Scheduler, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		starter: starter,
		spec:    spec,
	}, nil
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.trigger); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)
	return nil
}

// Stop stops the scheduler. A session already started keeps running.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) trigger() {
	run, err := s.starter.Start()
	if errors.Is(err, session.ErrBusy) {
		log.Println("[scheduler] Session already running, skipping tick")
		return
	}
	if err != nil {
		log.Printf("[scheduler] Failed to start session: %v", err)
		return
	}
	log.Printf("[scheduler] Session run %s started", run.ID)
}

// Package session runs automation sessions against the stored account and
// configuration, and persists their outcome.
package session

import (
	"context"
	"io"
	"path/filepath"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/automation"
	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/logger"
	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/store"
)

// JournalFile is the SQLite journal inside the data directory.
const JournalFile = config.JournalFile

// Options configures a Service.
type Options struct {
	Config   *config.Store
	Launcher automation.Launcher
	Site     automation.Site
	Timing   automation.Timing

	// Console receives the human-readable log. Nil discards it.
	Console io.Writer

	OnTransition func(from, to automation.State)
	OnOutcome    func(automation.Outcome)
}

// Service runs one session at a time for the account in the config store.
type Service struct {
	opts Options
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	return &Service{opts: opts}
}

// JournalPath returns the journal location for the service's data directory.
func (s *Service) JournalPath() string {
	return filepath.Join(s.opts.Config.Dir(), JournalFile)
}

// Run loads credentials and search config, drives one session, merges the
// resulting record into the user's statistics and journals it.
func (s *Service) Run(ctx context.Context) (model.SessionRecord, error) {
	cfgStore := s.opts.Config

	creds, err := cfgStore.LoadCredentials()
	if err != nil {
		return model.SessionRecord{}, err
	}
	searchCfg, err := cfgStore.LoadSearchConfig()
	if err != nil {
		return model.SessionRecord{}, err
	}
	if err := searchCfg.Ready(); err != nil {
		return model.SessionRecord{}, apperr.Wrap(apperr.KindValidation, err, "search config not ready")
	}

	log, err := logger.New(cfgStore.LogDir(), s.opts.Console)
	if err != nil {
		return model.SessionRecord{}, apperr.Wrap(apperr.KindPersistence, err, "failed to open log")
	}
	defer log.Close()
	log.Redact(creds.Email, creds.Password)

	journal, err := store.Open(s.JournalPath())
	if err != nil {
		// Statistics stay authoritative; the session runs without de-duplication.
		log.Warn("Journal unavailable: %v", err)
		journal = nil
	} else {
		defer journal.Close()
	}

	log.SessionStart(searchCfg)

	engine := automation.New(automation.Options{
		Site:         s.opts.Site,
		Timing:       s.opts.Timing,
		Launcher:     s.opts.Launcher,
		Logger:       log,
		DebugDir:     cfgStore.LogDir(),
		Seen:         seenFunc(journal, log),
		OnTransition: s.opts.OnTransition,
		OnOutcome:    s.opts.OnOutcome,
	})

	res, err := engine.Run(ctx, creds, searchCfg)
	if err != nil {
		log.Error("Session failed in state %s: %v", res.Final, err)
		return model.SessionRecord{}, err
	}

	if _, err := cfgStore.SaveSession(creds.Email, res.Session); err != nil {
		log.Error("Failed to save statistics: %v", err)
		return res.Session, err
	}
	if journal != nil {
		if err := journal.RecordSession(creds.Email, res.Session); err != nil {
			log.Warn("Failed to journal session: %v", err)
		}
	}

	log.SessionEnd(res.Session)
	return res.Session, nil
}

func seenFunc(journal *store.Store, log *logger.Logger) func(string) bool {
	if journal == nil {
		return nil
	}
	return func(url string) bool {
		ok, err := journal.AlreadyApplied(url)
		if err != nil {
			log.Warn("Journal lookup failed for %s: %v", url, err)
			return false
		}
		return ok
	}
}

package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/common"
	"github.com/ternarybob/dispatch/internal/interfaces"
)

// Service scans the feed directory on a cron schedule and hands every
// matching artifact to the pipeline. The orchestrator's per-artifact entry
// point stays callable from any other trigger; this service is just the
// default driver.
type Service struct {
	config   *common.WatcherConfig
	ingestor interfaces.Ingestor
	cron     *cron.Cron
	logger   arbor.ILogger
	mu       sync.Mutex // Prevents overlapping scans
	running  bool
}

// NewService creates a feed watcher.
func NewService(config *common.WatcherConfig, ingestor interfaces.Ingestor, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		ingestor: ingestor,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Start creates the feed directory if absent, runs one immediate scan and
// schedules recurring scans.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}

	if err := os.MkdirAll(s.config.FeedDir, 0755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create feed directory %s: %w", s.config.FeedDir, err)
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "*/5 * * * * *" // Every 5 seconds
	}

	if _, err := s.cron.AddFunc(schedule, s.Scan); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule feed scan: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Str("feed_dir", s.config.FeedDir).
		Str("schedule", schedule).
		Strs("extensions", s.config.Extensions).
		Msg("Feed watcher started")

	// Pick up anything already waiting in the feed.
	go s.Scan()

	return nil
}

// Stop halts the cron scheduler and waits for a running scan to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	// A scan started before Stop may still hold the lock; taking it here
	// waits it out.
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info().Msg("Feed watcher stopped")
}

// Scan walks the feed directory once and ingests every matching artifact.
// Scans never overlap; a tick that fires mid-scan is skipped.
func (s *Service) Scan() {
	if !s.mu.TryLock() {
		s.logger.Debug().Msg("Feed scan already in progress, skipping tick")
		return
	}
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.config.FeedDir)
	if err != nil {
		s.logger.Error().Err(err).Str("feed_dir", s.config.FeedDir).Msg("Failed to read feed directory")
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !s.matchesExtension(entry.Name()) {
			continue
		}

		path := filepath.Join(s.config.FeedDir, entry.Name())
		s.logger.Info().Str("artifact", entry.Name()).Msg("Found new artifact in feed")

		if err := s.ingestor.IngestFile(context.Background(), path); err != nil {
			// Surfaced, never swallowed: the artifact stays visible in the
			// feed or the error sink, and the operator sees why.
			s.logger.Error().
				Err(err).
				Str("artifact", entry.Name()).
				Msg("Artifact processing failed")
		}
	}
}

// matchesExtension reports whether a feed entry is an ingestable artifact.
// An empty extension list accepts everything.
func (s *Service) matchesExtension(name string) bool {
	if len(s.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range s.config.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

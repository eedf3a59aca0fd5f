package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"isl-announcer/internal/database"
	"isl-announcer/internal/logging"
	"isl-announcer/internal/metrics"
)

const (
	minInterval = time.Minute
	maxInterval = time.Hour
)

// Interval returns how often to sweep for the given retention period: a
// quarter of it, kept between one minute and one hour.
func Interval(retention time.Duration) time.Duration {
	if retention <= 0 {
		return maxInterval
	}
	return min(max(retention/4, minInterval), maxInterval)
}

// Sweeper periodically deletes announcements older than the retention period.
type Sweeper struct {
	db        *database.Database
	retention time.Duration
	interval  time.Duration
	stopChan  chan struct{}
	stopOnce  sync.Once
	now       func() time.Time

	mu          sync.Mutex
	sweeping    bool
	lastRun     time.Time
	lastRemoved int
}

// Status describes the most recent sweep.
type Status struct {
	Retention   string    `json:"retention"`
	Sweeping    bool      `json:"sweeping"`
	LastRun     time.Time `json:"lastRun,omitzero"`
	LastRemoved int       `json:"lastRemoved"`
}

// New creates a Sweeper. Start must be called to begin sweeping.
func New(db *database.Database, retention time.Duration) *Sweeper {
	return &Sweeper{
		db:        db,
		retention: retention,
		interval:  Interval(retention),
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}
}

// Interval returns the sweep interval in use.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Start runs an initial sweep in the background and then sweeps periodically.
func (s *Sweeper) Start() {
	if last, err := s.db.GetLastRetentionRun(context.Background()); err == nil && !last.IsZero() {
		logging.Debug("Retention: last sweep at %s", last.Format(time.RFC3339))
	}

	go func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			logging.Error("Initial retention sweep failed: %v", err)
		}
		s.periodicSweep()
	}()
}

// Stop ends the periodic sweep. It is safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Sweeper) periodicSweep() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic retention sweep triggered")
			if _, err := s.Sweep(context.Background()); err != nil {
				logging.Error("periodic retention sweep failed: %v", err)
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *Sweeper) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeping {
		return false
	}
	s.sweeping = true
	return true
}

func (s *Sweeper) finish(removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeping = false
	s.lastRun = s.now()
	s.lastRemoved = removed
}

// Sweep deletes every expired announcement and its files, then prunes
// expired sessions. It returns the number of announcements removed. A sweep
// already in progress makes this call a no-op.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if !s.tryStart() {
		logging.Debug("Retention sweep already running, skipping")
		return 0, nil
	}

	removed := 0
	defer func() { s.finish(removed) }()

	var errs []error
	if s.retention > 0 {
		cutoff := s.now().Add(-s.retention)
		expired, err := s.db.ExpiredAnnouncements(ctx, cutoff)
		if err != nil {
			return 0, err
		}

		for _, a := range expired {
			deleted, err := s.db.DeleteAnnouncement(ctx, a.ID)
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := RemoveFiles(deleted); err != nil {
				logging.Warn("Retention: %v", err)
			}
			removed++
			metrics.AnnouncementsExpired.Inc()
		}
	}

	if err := s.db.CleanExpiredSessions(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.SetLastRetentionRun(ctx, s.now()); err != nil {
		errs = append(errs, err)
	}

	if removed > 0 {
		logging.Info("Retention: removed %d expired announcements", removed)
		if err := s.db.Vacuum(ctx); err != nil {
			logging.Warn("Retention: vacuum failed: %v", err)
		}
	}

	return removed, errors.Join(errs...)
}

// Status returns the state of the last sweep.
func (s *Sweeper) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	retention := "forever"
	if s.retention > 0 {
		retention = s.retention.String()
	}
	return Status{
		Retention:   retention,
		Sweeping:    s.sweeping,
		LastRun:     s.lastRun,
		LastRemoved: s.lastRemoved,
	}
}

// RemoveFiles deletes the audio and video files of a. Missing files are
// not an error.
func RemoveFiles(a *database.Announcement) error {
	var errs []error
	for _, path := range []string{a.AudioPath, a.VideoPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

package metrics

import (
	"sync"
	"time"

	"isl-announcer/internal/logging"
)

// Stats is a point-in-time count of announcements and library assets.
type Stats struct {
	// Announcements is keyed by announcement status.
	Announcements map[string]int
	LibraryVideos int
	LibraryImages int
}

// StatsProvider supplies the counts the collector exports as gauges.
type StatsProvider interface {
	GetStats() Stats
}

// StatsFunc adapts a function to StatsProvider
type StatsFunc func() Stats

// GetStats calls f
func (f StatsFunc) GetStats() Stats { return f() }

// DBMetricsUpdater refreshes database connection gauges
type DBMetricsUpdater interface {
	UpdateDBMetrics()
}

// Collector refreshes the gauges that are cheaper to sample than to track:
// announcement counts by status, library size and database pool stats.
type Collector struct {
	stats    StatsProvider
	db       DBMetricsUpdater
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewCollector returns a collector sampling every interval. Either source
// may be nil.
func NewCollector(stats StatsProvider, db DBMetricsUpdater, interval time.Duration) *Collector {
	return &Collector{
		stats:    stats,
		db:       db,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start samples once immediately and then on every tick.
func (c *Collector) Start() {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			c.collect()
			select {
			case <-ticker.C:
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sample. It must follow
// Start and may be called more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) collect() {
	if c.db != nil {
		c.db.UpdateDBMetrics()
	}
	if c.stats == nil {
		return
	}
	s := c.stats.GetStats()

	// statuses that disappeared since the last sample drop to zero
	AnnouncementsTotal.Reset()
	for _, status := range announcementStatuses {
		AnnouncementsTotal.WithLabelValues(status).Set(float64(s.Announcements[status]))
	}
	CatalogEntries.WithLabelValues("video").Set(float64(s.LibraryVideos))
	CatalogEntries.WithLabelValues("image").Set(float64(s.LibraryImages))

	logging.Debug("Metrics sampled: announcements=%v videos=%d images=%d",
		s.Announcements, s.LibraryVideos, s.LibraryImages)
}

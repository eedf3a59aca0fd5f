package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"isl-announcer/internal/logging"
	"isl-announcer/internal/metrics"
)

// Config controls the Monitor.
type Config struct {
	// LimitBytes is the budget; 0 uses GOMEMLIMIT.
	LimitBytes int64
	// HighWaterMark is the usage below which a pause ends.
	HighWaterMark float64
	// CriticalWaterMark is the usage at which renders pause.
	CriticalWaterMark float64
	CheckInterval     time.Duration
	// MaxWait bounds how long Wait blocks before letting work through.
	MaxWait time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
		MaxWait:           2 * time.Minute,
	}
}

// Monitor tracks heap usage and holds back renders under memory pressure.
type Monitor struct {
	config    Config
	limit     int64
	readAlloc func() uint64

	stopChan chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}
}

// NewMonitor creates a Monitor. Without a limit it never pauses.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Info("Memory monitor: no memory limit, backpressure disabled")
	}

	return &Monitor{
		config:    config,
		limit:     limit,
		readAlloc: heapAlloc,
		stopChan:  make(chan struct{}),
		resume:    make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Limit returns the memory budget in bytes, 0 when there is none.
func (m *Monitor) Limit() int64 {
	return m.limit
}

// Start samples memory every CheckInterval until Stop.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop ends sampling and releases any waiters.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) check() {
	alloc := m.readAlloc()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit == 0 {
		return
	}
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case !m.paused && usage >= m.config.CriticalWaterMark:
		logging.Warn("Memory critical (%.1f%% of limit), pausing renders", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case m.paused && usage < m.config.HighWaterMark:
		logging.Info("Memory recovered (%.1f%% of limit), resuming renders", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait blocks while the monitor is paused. It returns nil once memory
// recovers, the monitor stops or MaxWait passes, and ctx.Err() if ctx ends
// first.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	paused, resume := m.paused, m.resume
	m.mu.RUnlock()
	if !paused {
		return nil
	}

	metrics.MemoryWaitsTotal.Inc()
	logging.Debug("Waiting for memory pressure to ease")

	var timeout <-chan time.Time
	if m.config.MaxWait > 0 {
		timer := time.NewTimer(m.config.MaxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-resume:
	case <-m.stopChan:
	case <-timeout:
		logging.Warn("Memory still critical after %v, continuing", m.config.MaxWait)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Paused reports whether renders are being held back.
func (m *Monitor) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled allocation as a fraction of the limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}

// Package janitor implements background cleanup of expired and consumed files.
// It operates independently from the main app Service to keep lifecycle
// concerns (periodic deletion) isolated from request path logic.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper abstracts the single operation the Janitor requires: reclaiming
// dead entries (expired or already consumed) as of the given instant.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Recorder receives operational metrics from completed cycles. Both methods
// must be safe for concurrent use.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, value int64)
}

// Names reported through the Recorder.
const (
	counterSwept = "files_swept_total"
	summaryCycle = "sweep_deleted_per_cycle"
)

// Config holds tunables for the Janitor.
type Config struct {
	Interval time.Duration // how often a cycle begins
	Logger   *slog.Logger  // optional logger (defaults to slog.Default())
	Recorder Recorder      // optional metrics sink
}

// Metrics accumulates counters (in-memory) for operational insight.
type Metrics struct {
	mu                  sync.Mutex
	Cycles              uint64
	Deleted             uint64
	CycleLastDurationMS int64
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	Deleted             uint64
	CycleLastDurationMS int64
}

func (m *Metrics) addDeleted(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Deleted += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCycle(d time.Duration) {
	m.mu.Lock()
	m.Cycles++
	m.CycleLastDurationMS = d.Milliseconds()
	m.mu.Unlock()
}

// Janitor schedules periodic sweeps via a cron runner. Cycles that overrun
// the interval are skipped rather than stacked.
type Janitor struct {
	sweeper Sweeper
	cfg     Config
	metrics *Metrics
	cron    *cron.Cron
	ctx     context.Context
	once    sync.Once
}

// New constructs but does not start a Janitor.
func New(sweeper Sweeper, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		sweeper: sweeper,
		cfg:     cfg,
		metrics: &Metrics{},
	}
}

// Start launches the cron scheduler. Subsequent calls are no-ops.
func (j *Janitor) Start(ctx context.Context) error {
	var err error
	j.once.Do(func() {
		j.ctx = ctx
		log := j.cfg.Logger.With("domain", "janitor")
		c := cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		))
		if _, aerr := c.AddFunc("@every "+j.cfg.Interval.String(), func() { j.runCycle(j.ctx) }); aerr != nil {
			err = aerr
			return
		}
		c.Start()
		j.cron = c
		log.Info("janitor start", "interval", j.cfg.Interval.String())
	})
	return err
}

// Stop halts the scheduler and waits for any in-flight cycle to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// MetricsSnapshot returns a copy of current metrics.
func (j *Janitor) MetricsSnapshot() MetricsView {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	return MetricsView{
		Cycles:              j.metrics.Cycles,
		Deleted:             j.metrics.Deleted,
		CycleLastDurationMS: j.metrics.CycleLastDurationMS,
	}
}

// runCycle performs one sweep of dead entries.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")
	now := time.Now().UTC()
	count, err := j.sweeper.Sweep(ctx, now)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sweep", "error", err)
	}
	j.metrics.addDeleted(count)
	j.metrics.recordCycle(time.Since(start))
	if j.cfg.Recorder != nil {
		j.cfg.Recorder.Inc(counterSwept, int64(count))
		j.cfg.Recorder.Observe(summaryCycle, int64(count))
	}
	log.Info("cycle complete", "deleted", count, "ms", time.Since(start).Milliseconds())
}
